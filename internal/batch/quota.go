package batch

// Quota tracks submissions against the daily limit. The counter is
// scoped to one controller's lifetime; resetting it per calendar day is
// the caller's concern.
type Quota struct {
	limit     int
	submitted int
}

func NewQuota(limit int) *Quota {
	return &Quota{limit: limit}
}

func (q *Quota) Limit() int     { return q.limit }
func (q *Quota) Submitted() int { return q.submitted }

func (q *Quota) Exhausted() bool {
	return q.submitted >= q.limit
}

// Record counts one successful submission. It never pushes the counter
// past the limit: callers must check Exhausted before submitting.
func (q *Quota) Record() {
	if q.submitted < q.limit {
		q.submitted++
	}
}
