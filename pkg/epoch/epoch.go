// Package epoch implements a generation counter used to reject stale
// asynchronous results.
//
// The pattern has two rules:
//
//	R1 (invalidate): whenever the thing a request was issued against changes,
//	   bump the counter.
//	R2 (check): a request captures the counter before it suspends and commits
//	   its result afterwards only if the counter still holds the captured value.
//
// A request that loses the check is not a failure. Its result is simply
// dropped; whoever bumped the counter owns the state now.
//
// Note: Counter is not goroutine-safe. Callers guard it with the same lock that
// guards the state it versions, so the compare in R2 and the commit that
// follows happen atomically.
package epoch

// Counter is a monotonically increasing generation number. The zero value is
// ready to use. Not goroutine-safe; see package doc.
type Counter struct {
	gen uint64
}

// Bump implements R1 and returns the new generation.
func (c *Counter) Bump() uint64 {
	c.gen++
	return c.gen
}

// Value returns the current generation without advancing it. Requests
// capture this before suspending.
func (c *Counter) Value() uint64 { return c.gen }

// Current implements R2: it reports whether a token captured earlier still
// names the current generation.
func (c *Counter) Current(token uint64) bool { return c.gen == token }
