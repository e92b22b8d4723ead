package controller

import (
	"fmt"
	"sync"
	"time"

	"go.dedis.ch/browsermob/cli/node"
	"go.dedis.ch/browsermob/metrics"
	mhttp "go.dedis.ch/browsermob/metrics/http"
	"go.dedis.ch/browsermob/server"
	"golang.org/x/xerrors"
)

const (
	listenRetry    = 50
	listenInterval = 100 * time.Millisecond
)

var metricsFac = func(addr string) metrics.Server {
	return mhttp.NewHTTP(addr)
}

// statusAction is an action to print the state of the proxy server.
//
// - implements node.ActionTemplate
type statusAction struct{}

// Execute implements node.ActionTemplate. It prints the URL of the control API
// and whether the process is running.
func (a statusAction) Execute(ctx node.Context) error {
	var srv *server.Server
	err := ctx.Injector.Resolve(&srv)
	if err != nil {
		return xerrors.Errorf("failed to resolve the proxy server: %v", err)
	}

	state := "stopped"
	if srv.IsAlive() {
		state = "running"
	}

	fmt.Fprintf(ctx.Out, "%s %s", srv.URL(), state)

	return nil
}

// promAction is an action to expose the prometheus collectors.
//
// - implements node.ActionTemplate
type promAction struct {
	sync.Mutex
}

// Execute implements node.ActionTemplate. It starts the metrics server the
// first time, and registers the prometheus handler on the path.
func (a *promAction) Execute(ctx node.Context) error {
	a.Lock()
	defer a.Unlock()

	var srv metrics.Server

	err := ctx.Injector.Resolve(&srv)
	if err != nil {
		srv, err = a.listen(ctx)
		if err != nil {
			return err
		}
	}

	path := ctx.Flags.String("path")

	err = metrics.Expose(srv, path)
	if err != nil {
		return xerrors.Errorf("failed to expose metrics: %v", err)
	}

	fmt.Fprintf(ctx.Out, "registered prometheus service on http://%s%s", srv.GetAddr(), path)

	return nil
}

func (a *promAction) listen(ctx node.Context) (metrics.Server, error) {
	srv := metricsFac(ctx.Flags.String("addr"))

	errs := make(chan error, 1)

	go func() {
		errs <- srv.Listen()
	}()

	for i := 0; i < listenRetry && srv.GetAddr() == nil; i++ {
		select {
		case err := <-errs:
			return nil, xerrors.Errorf("failed to start metrics server: %v", err)
		case <-ctx.Ctx.Done():
			srv.Stop()
			return nil, xerrors.Errorf("failed to start metrics server: %v", ctx.Ctx.Err())
		case <-time.After(listenInterval):
		}
	}

	if srv.GetAddr() == nil {
		srv.Stop()
		return nil, xerrors.New("failed to start metrics server: not listening")
	}

	ctx.Injector.Inject(srv)

	return srv, nil
}
