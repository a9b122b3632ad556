package treeroom

import "golang.org/x/time/rate"

// newInputLimiter builds the per-connection token bucket described in
// spec.md §4.3.1: capacity and refill rate both equal hz tokens per
// second, starting with a full bucket. golang.org/x/time/rate implements
// exactly this algorithm (continuous refill, deny below one token, consume
// one per allowed call), so the room never hand-rolls the bucket math.
func newInputLimiter(hz int) *rate.Limiter {
	if hz <= 0 {
		return rate.NewLimiter(0, 0)
	}
	return rate.NewLimiter(rate.Limit(hz), hz)
}
