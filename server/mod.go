// Package server supervises the proxy executable. It starts the process, waits
// until its port accepts TCP connections, and provisions control sessions on
// it.
//
// Readiness is only checked at the TCP level: a connection to the port is
// enough, whatever the control API would answer.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/browsermob"
	"go.dedis.ch/browsermob/client"
	"go.dedis.ch/browsermob/maybe"
	"golang.org/x/xerrors"
)

const (
	// Host is the interface the proxy server is reached on.
	Host = "localhost"

	// DefaultPort is the port of the proxy server when none is set, and the
	// port the executable listens to when it is started without a port
	// argument.
	DefaultPort = 8080

	defaultInterval    = time.Second
	defaultAttempts    = 30
	defaultStopTimeout = 10 * time.Second
	probeTimeout       = time.Second
)

// defines prometheus metrics
var (
	promProbes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "browsermob_server_probes_total",
		Help: "total number of readiness probes sent to the proxy server",
	})

	promUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "browsermob_server_up",
		Help: "1 when the proxy server is running",
	})
)

func init() {
	browsermob.PromCollectors = append(browsermob.PromCollectors, promProbes, promUp)
}

// Server owns one proxy server process.
//
// - implements client.Liveness
type Server struct {
	sync.Mutex

	path        string
	port        int
	interval    time.Duration
	attempts    int
	stopTimeout time.Duration
	output      io.Writer
	logger      zerolog.Logger
	dialFn      func(network, addr string, timeout time.Duration) (net.Conn, error)

	proc     *process
	starting bool
}

// Option is the type of the options to create a server.
type Option func(*Server)

// WithPort sets the port of the proxy server. Zero means that no port argument
// is given to the executable, which then listens to DefaultPort.
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithProbe sets the interval between two readiness probes and the number of
// attempts before giving up. The default is one probe per second for 30
// seconds.
func WithProbe(interval time.Duration, attempts int) Option {
	return func(s *Server) {
		s.interval = interval
		s.attempts = attempts
	}
}

// WithStopTimeout sets how long a stopping server is given to exit before it is
// killed.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.stopTimeout = d
	}
}

// WithOutput sets the writer receiving the standard and error outputs of the
// executable. They are discarded by default.
func WithOutput(w io.Writer) Option {
	return func(s *Server) {
		s.output = w
	}
}

// WithLogger overrides the logger of the server.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New returns a server for the executable at the given path. Nothing is
// started until Start is called.
func New(path string, opts ...Option) *Server {
	s := &Server{
		path:        path,
		port:        DefaultPort,
		interval:    defaultInterval,
		attempts:    defaultAttempts,
		stopTimeout: defaultStopTimeout,
		logger:      browsermob.Logger.With().Str("role", "proxy server").Logger(),
		dialFn:      net.DialTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.attempts < 1 {
		s.attempts = 1
	}

	return s
}

// URL returns the base URL of the control API. When the port is zero, the
// executable is expected to listen to DefaultPort and the URL reports it.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.address())
}

// Start launches the executable and blocks until its port accepts connections.
// The process is killed if it does not before the probe budget is exhausted,
// or if the context is done first.
func (s *Server) Start(ctx context.Context) error {
	if s.path == "" {
		return xerrors.Errorf("path not supplied: %w", browsermob.ErrConfiguration)
	}

	s.Lock()
	if s.proc != nil || s.starting {
		s.Unlock()
		return xerrors.Errorf("%s: %w", s.path, browsermob.ErrAlreadyStarted)
	}
	s.starting = true
	s.Unlock()

	defer func() {
		s.Lock()
		s.starting = false
		s.Unlock()
	}()

	proc, err := startProcess(s.command())
	if err != nil {
		return xerrors.Errorf("failed to start %s: %v", s.path, err)
	}

	s.logger.Info().Int("pid", proc.pid()).Str("addr", s.address()).
		Msg("proxy server process started")

	err = s.waitListening(ctx, proc)
	if err != nil {
		proc.kill()

		s.logger.Warn().Err(err).Msg("proxy server failed to start")

		return err
	}

	s.Lock()
	s.proc = proc
	s.Unlock()

	promUp.Set(1)

	s.logger.Info().Str("url", s.URL()).Msg("proxy server is listening")

	return nil
}

// Stop terminates the process, if any. The process is asked to exit and is
// killed if it is still running after the stop timeout. It does nothing when
// the server was never started or the process has already exited.
func (s *Server) Stop() {
	s.Lock()
	proc := s.proc
	s.proc = nil
	s.Unlock()

	if proc == nil {
		return
	}

	promUp.Set(0)

	if proc.hasExited() {
		s.logger.Info().Err(proc.exitErr()).Msg("proxy server had already exited")
		return
	}

	err := proc.stop(s.stopTimeout)
	if err != nil {
		s.logger.Warn().Err(err).Msg("proxy server has been killed")
		return
	}

	s.logger.Info().Msg("proxy server stopped")
}

// IsAlive implements client.Liveness. It returns true while the process started
// by the server is running.
func (s *Server) IsAlive() bool {
	s.Lock()
	defer s.Unlock()

	return s.proc != nil && !s.proc.hasExited()
}

// CreateProxy provisions a new proxy port on the server. The settings are sent
// verbatim. The server must be listening; it is not checked again here. The
// session then fails with ErrServerStopped once the process is gone.
func (s *Server) CreateProxy(ctx context.Context, settings maybe.Value[string],
	opts ...client.Option) (*client.Client, error) {

	opts = append([]client.Option{client.WithLiveness(s)}, opts...)

	cl, err := client.New(ctx, s.URL(), settings, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create proxy: %w", err)
	}

	return cl, nil
}

func (s *Server) command() *exec.Cmd {
	var args []string
	if s.port != 0 {
		args = append(args, fmt.Sprintf("--port=%d", s.port))
	}

	cmd := exec.Command(s.path, args...)
	cmd.Stdout = s.output
	cmd.Stderr = s.output

	return cmd
}

func (s *Server) address() string {
	port := s.port
	if port == 0 {
		port = DefaultPort
	}

	return net.JoinHostPort(Host, strconv.Itoa(port))
}

func (s *Server) waitListening(ctx context.Context, proc *process) error {
	addr := s.address()

	for attempt := 1; !s.isListening(addr); attempt++ {
		s.logger.Debug().Int("attempt", attempt).Msg("proxy server is not listening yet")

		timer := time.NewTimer(s.interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return xerrors.Errorf("while waiting for %s: %w", addr, ctx.Err())
		case <-proc.exited:
			timer.Stop()
			return xerrors.Errorf("process exited before listening: %v", proc.exitErr())
		case <-timer.C:
		}

		if attempt >= s.attempts {
			return xerrors.Errorf("can't connect to %s after %d attempts: %w",
				addr, attempt, browsermob.ErrStartupTimeout)
		}
	}

	return nil
}

func (s *Server) isListening(addr string) bool {
	promProbes.Inc()

	conn, err := s.dialFn("tcp", addr, probeTimeout)
	if err != nil {
		return false
	}

	conn.Close()

	return true
}
