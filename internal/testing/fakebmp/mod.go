// Package fakebmp provides an in-memory implementation of the proxy control
// API. It records the requests it receives so that tests can check what was
// sent on the wire.
package fakebmp

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/xerrors"
)

// Request is a recorded request.
type Request struct {
	Method        string
	Path          string
	ContentType   string
	ContentLength int64
	RequestID     string
	Body          string
}

// Handler is the fake control API.
//
// - implements http.Handler
type Handler struct {
	sync.Mutex

	port      int
	provision *string
	har       string
	status    int
	requests  []Request
}

// NewHandler returns a handler that assigns the given port.
func NewHandler(port int) *Handler {
	return &Handler{port: port}
}

// SetProvision overrides the body of the provisioning response.
func (h *Handler) SetProvision(body string) {
	h.Lock()
	h.provision = &body
	h.Unlock()
}

// SetHar sets the body returned when the capture is retrieved.
func (h *Handler) SetHar(body string) {
	h.Lock()
	h.har = body
	h.Unlock()
}

// SetStatus sets the status of every command that is not the provisioning.
// Zero restores the default behaviour.
func (h *Handler) SetStatus(code int) {
	h.Lock()
	h.status = code
	h.Unlock()
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.Lock()
	defer h.Unlock()

	h.requests = append(h.requests, Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		ContentType:   r.Header.Get("Content-Type"),
		ContentLength: r.ContentLength,
		RequestID:     r.Header.Get("X-Request-Id"),
		Body:          string(body),
	})

	if r.URL.Path == "/proxy" && r.Method == http.MethodPost {
		w.Header().Set("Content-Type", "application/json")

		if h.provision != nil {
			io.WriteString(w, *h.provision)
		} else {
			fmt.Fprintf(w, `{"port":%d}`, h.port)
		}
		return
	}

	if h.status != 0 {
		w.WriteHeader(h.status)
		return
	}

	if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/har") {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, h.har)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Requests returns a copy of the recorded requests.
func (h *Handler) Requests() []Request {
	h.Lock()
	defer h.Unlock()

	return append([]Request(nil), h.requests...)
}

// Last returns the last recorded request, or an empty one.
func (h *Handler) Last() Request {
	h.Lock()
	defer h.Unlock()

	if len(h.requests) == 0 {
		return Request{}
	}

	return h.requests[len(h.requests)-1]
}

// Listen serves the handler on the local port until the listener fails. It is
// used by tests that need a real process playing the proxy executable.
func Listen(port int, h *Handler) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)))
	if err != nil {
		return xerrors.Errorf("failed to listen: %v", err)
	}

	return http.Serve(ln, h)
}

// PortFromArgs returns the value of the --port=<n> argument, or the given
// fallback when there is none.
func PortFromArgs(args []string, fallback int) int {
	for _, arg := range args {
		value := strings.TrimPrefix(arg, "--port=")
		if value == arg {
			continue
		}

		port, err := strconv.Atoi(value)
		if err == nil {
			return port
		}
	}

	return fallback
}

// FreePort returns a port that was free at the time of the call.
func FreePort() (int, error) {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, xerrors.Errorf("failed to listen: %v", err)
	}

	defer ln.Close()

	return ln.Addr().(*net.TCPAddr).Port, nil
}
