// Package http implements the metrics server on top of the standard HTTP
// server.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/browsermob"
	"golang.org/x/xerrors"
)

type key int

const (
	requestIDKey key = 0
)

const shutdownTimeout = 10 * time.Second

// HTTP is an HTTP server that handlers can be registered to while it runs. It
// is listening once, a stopped server can't be restarted.
//
// - implements metrics.Server
type HTTP struct {
	sync.Mutex

	mux        *http.ServeMux
	server     *http.Server
	logger     zerolog.Logger
	listenAddr string
	ln         net.Listener
	paths      map[string]struct{}
}

// NewHTTP creates a new server that will listen to the address. An empty
// address or a zero port makes it listen to a random free port.
func NewHTTP(listenAddr string) *HTTP {
	logger := browsermob.Logger.With().Str("role", "metrics http").Logger()

	mux := http.NewServeMux()

	h := &HTTP{
		mux:        mux,
		logger:     logger,
		listenAddr: listenAddr,
		paths:      make(map[string]struct{}),
	}

	h.server = &http.Server{
		Handler:           tracing(nextRequestID)(logging(h)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return h
}

// Listen implements metrics.Server. It blocks until the server is stopped.
func (h *HTTP) Listen() error {
	ln, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		return xerrors.Errorf("failed to create conn '%s': %v", h.listenAddr, err)
	}

	h.Lock()
	h.ln = ln
	h.Unlock()

	h.logger.Info().Stringer("addr", ln.Addr()).Msg("metrics server is ready to handle requests")

	err = h.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return xerrors.Errorf("failed to serve on %s: %v", ln.Addr(), err)
	}

	h.logger.Info().Msg("metrics server stopped")

	return nil
}

// Stop implements metrics.Server. It gracefully shuts the server down. It can
// be called multiple times.
func (h *HTTP) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	h.server.SetKeepAlivesEnabled(false)

	err := h.server.Shutdown(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("could not gracefully shutdown the server")
	}
}

// GetAddr implements metrics.Server.
func (h *HTTP) GetAddr() net.Addr {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// RegisterHandler implements metrics.Server.
func (h *HTTP) RegisterHandler(path string, handler func(http.ResponseWriter,
	*http.Request)) error {

	h.Lock()
	defer h.Unlock()

	_, found := h.paths[path]
	if found {
		return xerrors.Errorf("path '%s' is already registered", path)
	}

	h.paths[path] = struct{}{}
	h.mux.HandleFunc(path, handler)

	return nil
}

func nextRequestID() string {
	return xid.New().String()
}

// logging is a utility function that logs the http server events
func logging(h *HTTP) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				requestID, ok := r.Context().Value(requestIDKey).(string)
				if !ok {
					requestID = "unknown"
				}
				h.logger.Debug().Str("requestID", requestID).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).Msg("")
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// tracing is a utility function that adds header tracing
func tracing(nextRequestID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = nextRequestID()
			}
			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set("X-Request-Id", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
