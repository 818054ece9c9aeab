package sales

import "sync"

// carLocks serializes reservation decisions per car. The lock for a car is
// held across the whole read-modify-write cycle, so a concurrent Reserve call
// blocks until the first one commits and then observes its result.
type carLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newCarLocks() *carLocks {
	return &carLocks{locks: map[int64]*sync.Mutex{}}
}

// Lock blocks until the per-car mutex is acquired and returns its unlock func.
func (c *carLocks) Lock(carID int64) func() {
	c.mu.Lock()
	l, ok := c.locks[carID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[carID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}
