package statsevents

// Inbound topics.
const (
	// ResultRecordedV1 announces a result that is already stored in the result log.
	ResultRecordedV1 = "stats.result.recorded.v1"
	// ResultReversedV1 carries a result that was removed from the log.
	ResultReversedV1 = "stats.result.reversed.v1"
	// ResultReplacedV1 carries both versions of an edited result.
	ResultReplacedV1 = "stats.result.replaced.v1"
	// RecalculateRequestedV1 asks for a full replay of one group.
	RecalculateRequestedV1 = "stats.recalculate.requested.v1"
)

// Outbound topics.
const (
	ResultAppliedV1        = "stats.result.applied.v1"
	GroupRecalculatedV1    = "stats.group.recalculated.v1"
	RecalculateFailedV1    = "stats.recalculate.failed.v1"
	RecalculateThrottledV1 = "stats.recalculate.throttled.v1"
)

// InboundTopics lists every topic the stats router subscribes to.
func InboundTopics() []string {
	return []string{ResultRecordedV1, ResultReversedV1, ResultReplacedV1, RecalculateRequestedV1}
}

// OutboundTopics lists every topic the stats module publishes.
func OutboundTopics() []string {
	return []string{ResultAppliedV1, GroupRecalculatedV1, RecalculateFailedV1, RecalculateThrottledV1}
}
