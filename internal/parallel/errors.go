// Package parallel holds small synchronization helpers shared by concurrent
// workers.
package parallel

import (
	"errors"
	"sync"
)

// ErrorCollector records errors reported concurrently by workers. The
// first non-nil error is kept verbatim; later ones are counted and joined
// so none is silently dropped. The zero value is ready to use.
type ErrorCollector struct {
	mu     sync.Mutex
	first  error
	others []error
}

// SetError records err. Nil errors are ignored.
func (c *ErrorCollector) SetError(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.first == nil {
		c.first = err
		return
	}
	c.others = append(c.others, err)
}

// Err returns the first recorded error, or nil.
func (c *ErrorCollector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.first
}

// Count returns how many non-nil errors were recorded.
func (c *ErrorCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.first == nil {
		return 0
	}
	return 1 + len(c.others)
}

// Joined returns all recorded errors combined with errors.Join, first error
// leading, or nil if none were recorded.
func (c *ErrorCollector) Joined() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.first == nil {
		return nil
	}
	if len(c.others) == 0 {
		return c.first
	}
	return errors.Join(append([]error{c.first}, c.others...)...)
}
