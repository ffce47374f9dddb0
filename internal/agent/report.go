package agent

import "time"

// Reporter decides when the periodic full-status report is due. The last
// report time only advances after a confirmed successful send, so a failed
// send leaves the report due again on the next cycle.
type Reporter struct {
	interval   time.Duration
	lastReport time.Time
}

// NewReporter creates a report scheduler anchored at the given start time.
func NewReporter(interval time.Duration, start time.Time) *Reporter {
	return &Reporter{interval: interval, lastReport: start}
}

// IsDue reports whether a full-status report should be sent now.
func (r *Reporter) IsDue(now time.Time) bool {
	return now.Sub(r.lastReport) >= r.interval
}

// MarkSent records a confirmed successful report send.
func (r *Reporter) MarkSent(now time.Time) {
	r.lastReport = now
}
