// Package controller implements the initializer that owns the proxy server of
// the daemon.
package controller

import (
	"context"
	"io"

	opentracing "github.com/opentracing/opentracing-go"
	"go.dedis.ch/browsermob"
	"go.dedis.ch/browsermob/cli"
	"go.dedis.ch/browsermob/cli/node"
	"go.dedis.ch/browsermob/internal/tracing"
	"go.dedis.ch/browsermob/maybe"
	"go.dedis.ch/browsermob/metrics"
	"go.dedis.ch/browsermob/server"
	"golang.org/x/xerrors"
)

const defaultPromAddr = "127.0.0.1:9100"

const defaultPromPath = "/metrics"

var tracerFac = tracing.NewTracer

// NewController returns the initializer of the proxy server.
func NewController() node.Initializer {
	return &controller{}
}

// controller starts the proxy server with the daemon and stops it with the
// daemon. The server is injected so that the other controllers can provision
// sessions on it.
//
// - implements node.Initializer
type controller struct {
	tracerCloser io.Closer
}

// SetCommands implements node.Initializer. It sets the flags of the start
// command and the commands to inspect the server.
func (c *controller) SetCommands(builder node.Builder) {
	builder.SetStartFlags(
		cli.PathFlag{
			Name:  "bmp-path",
			Usage: "path to the browsermob-proxy executable",
		},
		cli.IntFlag{
			Name:  "bmp-port",
			Usage: "port of the proxy server, 0 lets the executable choose",
			Value: server.DefaultPort,
		},
		cli.PathFlag{
			Name:  "bmp-config",
			Usage: "YAML profile of the proxy server, it takes precedence over the other flags",
		},
		cli.BoolFlag{
			Name:  "tracing",
			Usage: "report the spans of the control requests to jaeger",
		},
	)

	cmd := builder.SetCommand("server")
	cmd.SetDescription("inspect the proxy server")

	sub := cmd.SetSubCommand("status")
	sub.SetDescription("print the URL of the proxy server and whether it is running")
	sub.SetAction(builder.MakeAction(statusAction{}))

	sub = cmd.SetSubCommand("prom")
	sub.SetDescription("start the HTTP server exposing the prometheus collectors")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "addr",
			Usage: "the address of the metrics server",
			Value: defaultPromAddr,
		},
		cli.StringFlag{
			Name:  "path",
			Usage: "the handler path",
			Value: defaultPromPath,
		},
	)
	sub.SetAction(builder.MakeAction(&promAction{}))
}

// OnStart implements node.Initializer. It starts the proxy server and injects
// it.
func (c *controller) OnStart(flags cli.Flags, inj node.Injector) error {
	if flags.Bool("tracing") {
		tracer, closer, err := tracerFac(tracing.ServiceName)
		if err != nil {
			return xerrors.Errorf("failed to create tracer: %v", err)
		}

		opentracing.SetGlobalTracer(tracer)
		c.tracerCloser = closer
	}

	cfg, err := makeConfig(flags)
	if err != nil {
		return err
	}

	srv := server.NewFromConfig(cfg)

	err = srv.Start(context.Background())
	if err != nil {
		return xerrors.Errorf("failed to start proxy server: %w", err)
	}

	inj.Inject(srv)

	return nil
}

// OnStop implements node.Initializer. It stops the metrics server, if any, and
// the proxy server.
func (c *controller) OnStop(inj node.Injector) error {
	var srv metrics.Server
	err := inj.Resolve(&srv)
	if err == nil {
		srv.Stop()
	}

	var proxy *server.Server
	err = inj.Resolve(&proxy)
	if err == nil {
		proxy.Stop()
	}

	if c.tracerCloser != nil {
		err = c.tracerCloser.Close()
		c.tracerCloser = nil

		if err != nil {
			return xerrors.Errorf("failed to close tracer: %v", err)
		}
	}

	return nil
}

// makeConfig returns the profile of the server. Without a profile, it is built
// from the flags. The flags fill the fields a profile leaves unset.
func makeConfig(flags cli.Flags) (server.Config, error) {
	var cfg server.Config

	path := flags.Path("bmp-config")
	if path != "" {
		var err error

		cfg, err = server.LoadConfig(path)
		if err != nil {
			return cfg, xerrors.Errorf("failed to load profile: %v", err)
		}

		browsermob.Logger.Info().Str("profile", path).Msg("proxy server profile loaded")
	}

	if cfg.Path == "" {
		cfg.Path = flags.Path("bmp-path")
	}

	if !cfg.Port.IsSome() {
		cfg.Port = maybe.Some(flags.Int("bmp-port"))
	}

	return cfg, nil
}
