// Package main implements the daemon that supervises a BrowserMob proxy server
// and drives its sessions.
//
//	bmproxy start --bmp-path /opt/browsermob-proxy/bin/browsermob-proxy
//	bmproxy proxy create
//	bmproxy har new --port 8081 --ref home
//	bmproxy har get --port 8081 --out home.har
//	bmproxy --config /tmp/bmp start --bmp-config bmp.yaml --tracing
//	bmproxy server prom --addr 127.0.0.1:9100
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/browsermob/cli/node"
	proxy "go.dedis.ch/browsermob/client/controller"
	bmp "go.dedis.ch/browsermob/server/controller"
)

type config struct {
	Channel chan os.Signal
	Writer  io.Writer
}

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return runWithCfg(args, config{})
}

func runWithCfg(args []string, cfg config) error {
	// The server controller comes first so that the proxy server is injected
	// before the sessions need it, and is stopped after they are closed.
	builder := node.NewBuilderWithCfg(
		cfg.Channel,
		cfg.Writer,
		bmp.NewController(),
		proxy.NewController(),
	)

	app := builder.Build()

	return app.Run(args)
}
