package statsqueue

import (
	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
)

// QueueName is the dedicated River queue for stats jobs.
const QueueName = "stats"

// RecalculateGroupJob replays every completed result of one group. AfterJobID is
// set on a follow-up queued while an identical job was already running.
type RecalculateGroupJob struct {
	GroupID    statsdomain.GroupID `json:"group_id"`
	Reason     string              `json:"reason"`
	AfterJobID int64               `json:"after_job_id,omitempty"`
}

// Kind returns the job type identifier for River
func (RecalculateGroupJob) Kind() string { return "stats_recalculate_group" }

// DriftSweepJob enqueues one recalculation per group that has results.
type DriftSweepJob struct{}

// Kind returns the job type identifier for River
func (DriftSweepJob) Kind() string { return "stats_drift_sweep" }

// Reasons attached to recalculations this package enqueues itself.
const (
	ReasonDriftSweep = "drift_sweep"
	ReasonRequested  = "requested"
)

// JobInfo represents information about a queued job (for operators)
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	GroupID     string `json:"group_id"`
	Reason      string `json:"reason"`
	State       string `json:"state"`
	CreatedAt   string `json:"created_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
