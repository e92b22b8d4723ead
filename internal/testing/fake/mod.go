// Package fake provides fake implementations and helpers commonly used by the
// unit tests of the module.
// The implementations offer configuration to return errors when it is needed by
// the unit test and it is also possible to record the call of functions of an
// object in some cases.
package fake

import (
	"fmt"
	"sync"

	"golang.org/x/xerrors"
)

var fakeErr = xerrors.New("fake error")

// GetError returns the fake error.
func GetError() error {
	return fakeErr
}

// Err returns the message of an error built as "<msg>: fake error".
func Err(msg string) string {
	return fmt.Sprintf("%s: %v", msg, fakeErr)
}

// Call is a tool to keep track of a function calls.
type Call struct {
	sync.Mutex
	calls [][]interface{}
}

// Get returns the nth call ith parameter.
func (c *Call) Get(n, i int) interface{} {
	c.Lock()
	defer c.Unlock()

	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.calls)
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	c.Lock()
	c.calls = append(c.calls, args)
	c.Unlock()
}

// Counter is a helper to delay errors or actions. It can be nil without
// panics.
type Counter struct {
	Value int
}

// NewCounter returns a new counter set to the given value.
func NewCounter(value int) *Counter {
	return &Counter{Value: value}
}

// Done returns true when the counter reached zero.
func (c *Counter) Done() bool {
	return c == nil || c.Value <= 0
}

// Decrease decrements the counter.
func (c *Counter) Decrease() {
	if c == nil {
		return
	}

	c.Value--
}

// BadWriter is an io.Writer that always fails.
type BadWriter struct{}

// Write implements io.Writer. It returns the fake error.
func (BadWriter) Write([]byte) (int, error) {
	return 0, fakeErr
}

// Liveness is a fake implementation of client.Liveness.
type Liveness struct {
	sync.Mutex
	alive bool
}

// NewLiveness returns a liveness source with the given state.
func NewLiveness(alive bool) *Liveness {
	return &Liveness{alive: alive}
}

// Set changes the state.
func (l *Liveness) Set(alive bool) {
	l.Lock()
	l.alive = alive
	l.Unlock()
}

// IsAlive implements client.Liveness.
func (l *Liveness) IsAlive() bool {
	l.Lock()
	defer l.Unlock()

	return l.alive
}
