package statshandlers

import (
	"sync"
	"time"

	statsdomain "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/domain"
	"golang.org/x/time/rate"
)

// GroupLimiter keeps one token bucket per group.
type GroupLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[statsdomain.GroupID]*rate.Limiter
	now      func() time.Time
}

// NewGroupLimiter allows perMinute requests per group with a burst of one. A
// non-positive rate disables limiting.
func NewGroupLimiter(perMinute int) *GroupLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &GroupLimiter{
		limit:    limit,
		burst:    1,
		limiters: make(map[statsdomain.GroupID]*rate.Limiter),
		now:      time.Now,
	}
}

// Reserve takes a token for the group. When none is available ok is false and
// retryAfter is the wait until the next one. cancel returns the token.
func (l *GroupLimiter) Reserve(groupID statsdomain.GroupID) (cancel func(), retryAfter time.Duration, ok bool) {
	l.mu.Lock()
	lim, found := l.limiters[groupID]
	if !found {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[groupID] = lim
	}
	l.mu.Unlock()

	now := l.now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return func() {}, 0, false
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return func() {}, delay, false
	}
	return func() { r.CancelAt(l.now()) }, 0, true
}
