package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/browsermob"
	"go.dedis.ch/browsermob/internal/testing/fake"
	"go.dedis.ch/browsermob/internal/testing/fakebmp"
	"go.dedis.ch/browsermob/maybe"
	"golang.org/x/xerrors"
)

const helperEnv = fakebmp.HelperEnv

func TestMain(m *testing.M) {
	fakebmp.RunHelper(DefaultPort)

	os.Exit(m.Run())
}

func TestServer_Start(t *testing.T) {
	t.Setenv(helperEnv, "listen")

	srv := newServer(t)
	defer srv.Stop()

	require.False(t, srv.IsAlive())

	err := srv.Start(context.Background())
	require.NoError(t, err)
	require.True(t, srv.IsAlive())

	conn, err := net.Dial("tcp", srv.address())
	require.NoError(t, err)
	conn.Close()

	srv.Stop()
	require.False(t, srv.IsAlive())

	// The server can be started again once stopped.
	err = srv.Start(context.Background())
	require.NoError(t, err)
	require.True(t, srv.IsAlive())
}

func TestServer_AlreadyStarted_Start(t *testing.T) {
	t.Setenv(helperEnv, "listen")

	srv := newServer(t)
	defer srv.Stop()

	err := srv.Start(context.Background())
	require.NoError(t, err)

	err = srv.Start(context.Background())
	require.ErrorIs(t, err, browsermob.ErrAlreadyStarted)
	require.True(t, srv.IsAlive())
}

func TestServer_Timeout_Start(t *testing.T) {
	t.Setenv(helperEnv, "sleep")

	port, err := fakebmp.FreePort()
	require.NoError(t, err)

	srv := New(os.Args[0], WithPort(port), WithProbe(10*time.Millisecond, 5))

	err = srv.Start(context.Background())
	require.ErrorIs(t, err, browsermob.ErrStartupTimeout)
	require.Contains(t, err.Error(), "after 5 attempts")

	require.False(t, srv.IsAlive())
	require.Nil(t, srv.proc)
	require.False(t, srv.starting)

	// Stop after a failed start is a no-op.
	srv.Stop()
}

func TestServer_ProcessExited_Start(t *testing.T) {
	t.Setenv(helperEnv, "exit")

	port, err := fakebmp.FreePort()
	require.NoError(t, err)

	srv := New(os.Args[0], WithPort(port), WithProbe(50*time.Millisecond, 100))

	err = srv.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "process exited before listening: ")
	require.Nil(t, srv.proc)
}

func TestServer_Canceled_Start(t *testing.T) {
	t.Setenv(helperEnv, "sleep")

	port, err := fakebmp.FreePort()
	require.NoError(t, err)

	srv := New(os.Args[0], WithPort(port), WithProbe(20*time.Millisecond, 1000))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = srv.Start(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Nil(t, srv.proc)
}

func TestServer_MissingPath_Start(t *testing.T) {
	srv := New("")

	err := srv.Start(context.Background())
	require.ErrorIs(t, err, browsermob.ErrConfiguration)
}

func TestServer_BadPath_Start(t *testing.T) {
	srv := New(filepath.Join(t.TempDir(), "missing"))

	err := srv.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to start ")
	require.False(t, srv.IsAlive())
}

func TestServer_Probe(t *testing.T) {
	calls := &fake.Call{}
	counter := fake.NewCounter(2)

	srv := New("bmp", WithPort(9090), WithProbe(time.Millisecond, 30))
	srv.dialFn = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		calls.Add(network, addr)

		if !counter.Done() {
			counter.Decrease()
			return nil, fake.GetError()
		}

		client, server := net.Pipe()
		server.Close()

		return client, nil
	}

	proc := &process{exited: make(chan struct{})}

	err := srv.waitListening(context.Background(), proc)
	require.NoError(t, err)
	require.Equal(t, 3, calls.Len())
	require.Equal(t, "tcp", calls.Get(0, 0))
	require.Equal(t, "localhost:9090", calls.Get(0, 1))
}

func TestServer_ProbeBudget(t *testing.T) {
	calls := &fake.Call{}

	srv := New("bmp", WithProbe(time.Millisecond, 30))
	srv.dialFn = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		calls.Add(addr)
		return nil, fake.GetError()
	}

	proc := &process{exited: make(chan struct{})}

	err := srv.waitListening(context.Background(), proc)
	require.ErrorIs(t, err, browsermob.ErrStartupTimeout)
	require.Equal(t, 30, calls.Len())
}

func TestServer_Command(t *testing.T) {
	srv := New("/opt/bmp/bin/browsermob-proxy")

	cmd := srv.command()
	require.Equal(t, []string{"/opt/bmp/bin/browsermob-proxy", "--port=8080"}, cmd.Args)
	require.Equal(t, "http://localhost:8080", srv.URL())

	srv = New("/opt/bmp/bin/browsermob-proxy", WithPort(9090))
	require.Equal(t, []string{"/opt/bmp/bin/browsermob-proxy", "--port=9090"}, srv.command().Args)
	require.Equal(t, "http://localhost:9090", srv.URL())

	srv = New("/opt/bmp/bin/browsermob-proxy", WithPort(0))
	require.Equal(t, []string{"/opt/bmp/bin/browsermob-proxy"}, srv.command().Args)
	require.Equal(t, "http://localhost:8080", srv.URL())
}

func TestServer_NotStarted_Stop(t *testing.T) {
	srv := New("bmp")

	srv.Stop()
	srv.Stop()

	require.False(t, srv.IsAlive())
}

func TestServer_Killed_Stop(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no termination signal on windows")
	}

	t.Setenv(helperEnv, "ignore-term")

	logger, check := fake.CheckLog("proxy server has been killed")

	port, err := fakebmp.FreePort()
	require.NoError(t, err)

	srv := New(os.Args[0], WithPort(port), WithProbe(20*time.Millisecond, 250),
		WithStopTimeout(50*time.Millisecond), WithLogger(logger))

	err = srv.Start(context.Background())
	require.NoError(t, err)

	proc := srv.proc

	srv.Stop()
	require.False(t, srv.IsAlive())
	require.True(t, proc.hasExited())

	check(t)
}

func TestServer_Exited_Stop(t *testing.T) {
	logger, check := fake.CheckLog("proxy server had already exited")

	proc := &process{exited: make(chan struct{})}
	close(proc.exited)

	srv := New("bmp", WithLogger(logger))
	srv.proc = proc

	require.False(t, srv.IsAlive())

	srv.Stop()
	require.Nil(t, srv.proc)

	check(t)
}

func TestServer_CreateProxy(t *testing.T) {
	t.Setenv(helperEnv, "listen")

	srv := newServer(t)
	defer srv.Stop()

	err := srv.Start(context.Background())
	require.NoError(t, err)

	cl, err := srv.CreateProxy(context.Background(), maybe.None[string]())
	require.NoError(t, err)

	require.Equal(t, 9091, cl.Port())
	require.Equal(t, "localhost:9091", cl.SeleniumProxy())
	require.Equal(t, srv.URL(), cl.URL())
}

func TestServer_NotStarted_CreateProxy(t *testing.T) {
	port, err := fakebmp.FreePort()
	require.NoError(t, err)

	handler := fakebmp.NewHandler(9091)

	ln, err := net.Listen("tcp", net.JoinHostPort(Host, strconv.Itoa(port)))
	require.NoError(t, err)

	web := &http.Server{Handler: handler}
	go web.Serve(ln)
	defer web.Close()

	srv := New("bmp", WithPort(port))

	cl, err := srv.CreateProxy(context.Background(), maybe.None[string]())
	require.NoError(t, err)
	require.Equal(t, 9091, cl.Port())
	require.Len(t, handler.Requests(), 1)

	// The server did not start the process, so the session is not usable.
	err = cl.NewHar(context.Background(), maybe.None[string]())
	require.ErrorIs(t, err, browsermob.ErrServerStopped)
	require.Len(t, handler.Requests(), 1)
}

func TestServer_NotListening_CreateProxy(t *testing.T) {
	port, err := fakebmp.FreePort()
	require.NoError(t, err)

	srv := New("bmp", WithPort(port))

	_, err = srv.CreateProxy(context.Background(), maybe.None[string]())
	require.ErrorIs(t, err, browsermob.ErrTransport)
	require.False(t, xerrors.Is(err, browsermob.ErrServerStopped))

	var terr *browsermob.TransportError
	require.True(t, xerrors.As(err, &terr))
	require.Equal(t, http.MethodPost, terr.Method)
}

// TestScenario goes through the whole lifecycle of a capture against a process
// playing the proxy executable.
func TestScenario(t *testing.T) {
	t.Setenv(helperEnv, "listen")

	srv := newServer(t)
	defer srv.Stop()

	ctx := context.Background()

	err := srv.Start(ctx)
	require.NoError(t, err)

	cl, err := srv.CreateProxy(ctx, maybe.None[string]())
	require.NoError(t, err)

	err = cl.NewHar(ctx, maybe.Some("session1"))
	require.NoError(t, err)

	res, err := cl.GetHar(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "fake", res.Log.Creator.Name)

	err = cl.Close(ctx)
	require.NoError(t, err)

	srv.Stop()
	require.False(t, srv.IsAlive())

	err = cl.NewHar(ctx, maybe.None[string]())
	require.ErrorIs(t, err, browsermob.ErrServerStopped)
}

// -----------------------------------------------------------------------------
// Utility functions

func newServer(t *testing.T) *Server {
	port, err := fakebmp.FreePort()
	require.NoError(t, err)

	return New(os.Args[0], WithPort(port), WithProbe(20*time.Millisecond, 250),
		WithStopTimeout(5*time.Second))
}
