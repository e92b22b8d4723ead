package controller

import (
	"context"
	"sort"
	"sync"

	"go.dedis.ch/browsermob/client"
	"golang.org/x/xerrors"
)

// Registry tracks the sessions provisioned by the daemon, by port. It is safe
// for concurrent use as each command runs on its own goroutine.
type Registry struct {
	sync.Mutex
	sessions map[int]*client.Client
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int]*client.Client),
	}
}

// Add tracks the session. A session already tracked on the same port is
// replaced.
func (r *Registry) Add(cl *client.Client) {
	r.Lock()
	r.sessions[cl.Port()] = cl
	r.Unlock()
}

// Get returns the session of the port.
func (r *Registry) Get(port int) (*client.Client, error) {
	r.Lock()
	defer r.Unlock()

	cl, found := r.sessions[port]
	if !found {
		return nil, xerrors.Errorf("unknown proxy port %d", port)
	}

	return cl, nil
}

// Remove stops tracking the session of the port.
func (r *Registry) Remove(port int) {
	r.Lock()
	delete(r.sessions, port)
	r.Unlock()
}

// Ports returns the ports of the tracked sessions in increasing order.
func (r *Registry) Ports() []int {
	r.Lock()
	defer r.Unlock()

	ports := make([]int, 0, len(r.sessions))
	for port := range r.sessions {
		ports = append(ports, port)
	}

	sort.Ints(ports)

	return ports
}

// CloseAll closes every tracked session and stops tracking them, even when the
// teardown request fails. It returns the ports that failed.
func (r *Registry) CloseAll(ctx context.Context) []int {
	r.Lock()
	sessions := r.sessions
	r.sessions = make(map[int]*client.Client)
	r.Unlock()

	var failed []int

	for port, cl := range sessions {
		err := cl.Close(ctx)
		if err != nil {
			failed = append(failed, port)
		}
	}

	sort.Ints(failed)

	return failed
}
