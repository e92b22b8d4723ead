// Package metrics defines the server exposing the prometheus collectors of the
// daemon.
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.dedis.ch/browsermob"
	"golang.org/x/xerrors"
)

// Server defines the primitives of an HTTP server that handlers can be added
// to while it runs.
type Server interface {
	// Listen starts the server. This call is blocking.
	Listen() error

	// Stop stops the server.
	Stop()

	// GetAddr returns the address the server is listening to, or nil if it is
	// not listening yet.
	GetAddr() net.Addr

	// RegisterHandler registers a new handler. It fails if the path is already
	// taken.
	RegisterHandler(path string, handler func(http.ResponseWriter, *http.Request)) error
}

// Register registers the collectors of the module to the registerer. The
// collectors that are already registered are skipped so that it can be called
// more than once.
func Register(reg prometheus.Registerer) error {
	for _, c := range browsermob.PromCollectors {
		err := reg.Register(c)
		if err != nil {
			var already prometheus.AlreadyRegisteredError
			if xerrors.As(err, &already) {
				continue
			}

			return xerrors.Errorf("failed to register collector: %v", err)
		}
	}

	return nil
}

// Expose registers the collectors to the default registry and serves them on
// the path of the server.
func Expose(srv Server, path string) error {
	err := Register(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	err = srv.RegisterHandler(path, promhttp.Handler().ServeHTTP)
	if err != nil {
		return xerrors.Errorf("failed to register handler: %v", err)
	}

	return nil
}
