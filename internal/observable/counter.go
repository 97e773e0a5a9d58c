package observable

import "sync"

// Counter tracks in-flight work and exposes a busy flag that only changes
// when the count crosses zero.
type Counter struct {
	mu   sync.Mutex
	n    int
	busy *Subject[bool]
}

func NewCounter() *Counter {
	return &Counter{busy: NewDistinct(false, func(a, b bool) bool { return a == b })}
}

func (c *Counter) Inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	c.busy.Set(c.n > 0)
}

func (c *Counter) Dec() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n > 0 {
		c.n--
	}
	c.busy.Set(c.n > 0)
}

// Count returns the number of in-flight operations.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Busy reports count > 0.
func (c *Counter) Busy() *Subject[bool] {
	return c.busy
}
