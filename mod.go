// Package browsermob drives an external BrowserMob-style recording proxy. The
// server package supervises the proxy executable and the client package
// controls one provisioned proxy port through the REST interface.
//
// The root package holds what is shared between the two: the logger, the
// prometheus collectors and the error taxonomy.
package browsermob

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(zerolog.InfoLevel)

// PromCollectors exposes the prometheus collectors created by the packages of
// the module. They are not registered by default; the daemon registers them
// when the metrics endpoint is started.
var PromCollectors []prometheus.Collector
