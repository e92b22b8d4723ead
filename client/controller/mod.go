// Package controller implements the initializer that provisions and drives
// proxy sessions from the daemon.
//
// The sessions are created on the proxy server injected by the server
// controller, which must come first in the list of initializers.
package controller

import (
	"context"
	"time"

	"go.dedis.ch/browsermob"
	"go.dedis.ch/browsermob/cli"
	"go.dedis.ch/browsermob/cli/node"
)

const closeTimeout = 10 * time.Second

// NewController returns the initializer of the sessions.
func NewController() node.Initializer {
	return controller{}
}

// controller defines one command per session operation. The sessions are
// closed when the daemon stops.
//
// - implements node.Initializer
type controller struct{}

// SetCommands implements node.Initializer.
func (controller) SetCommands(builder node.Builder) {
	portFlag := cli.IntFlag{
		Name:     "port",
		Usage:    "port of the proxy session",
		Required: true,
	}

	cmd := builder.SetCommand("proxy")
	cmd.SetDescription("provision and list proxy sessions")

	sub := cmd.SetSubCommand("create")
	sub.SetDescription("provision a new proxy port on the server")
	sub.SetFlags(cli.StringFlag{
		Name:  "settings",
		Usage: "form data sent verbatim with the provisioning request",
	})
	sub.SetAction(builder.MakeAction(createAction{}))

	sub = cmd.SetSubCommand("list")
	sub.SetDescription("list the sessions of the daemon")
	sub.SetAction(builder.MakeAction(listAction{}))

	sub = cmd.SetSubCommand("close")
	sub.SetDescription("close a session and release its port")
	sub.SetFlags(portFlag)
	sub.SetAction(builder.MakeAction(closeAction{}))

	cmd = builder.SetCommand("har")
	cmd.SetDescription("record the traffic of a session")

	sub = cmd.SetSubCommand("new")
	sub.SetDescription("start a new capture")
	sub.SetFlags(portFlag, cli.StringFlag{
		Name:  "ref",
		Usage: "reference of the first page",
	})
	sub.SetAction(builder.MakeAction(harNewAction{}))

	sub = cmd.SetSubCommand("page")
	sub.SetDescription("start a new page in the capture")
	sub.SetFlags(portFlag, cli.StringFlag{
		Name:     "ref",
		Usage:    "reference of the page",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(harPageAction{}))

	sub = cmd.SetSubCommand("get")
	sub.SetDescription("fetch the capture")
	sub.SetFlags(portFlag, cli.PathFlag{
		Name:  "out",
		Usage: "file to write the document to, instead of the output",
	})
	sub.SetAction(builder.MakeAction(harGetAction{}))

	cmd = builder.SetCommand("headers")
	cmd.SetDescription("manage the headers added to the requests")

	sub = cmd.SetSubCommand("set")
	sub.SetDescription("set the headers from a JSON object")
	sub.SetFlags(portFlag, cli.StringFlag{
		Name:     "json",
		Usage:    "JSON object of the headers",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(headersAction{}))

	cmd = builder.SetCommand("limit")
	cmd.SetDescription("manage the bandwidth and latency limits")

	sub = cmd.SetSubCommand("set")
	sub.SetDescription("set the limits, only the given ones are sent")
	sub.SetFlags(append([]cli.Flag{portFlag, cli.PathFlag{
		Name:  "file",
		Usage: "YAML file of the limits, the other flags take precedence",
	}}, limitFlags()...)...)
	sub.SetAction(builder.MakeAction(limitAction{}))

	for _, kind := range []string{whitelist, blacklist} {
		cmd = builder.SetCommand(kind)
		cmd.SetDescription("manage the " + kind + " of the session")

		sub = cmd.SetSubCommand("set")
		sub.SetDescription("set the regular expression and the status of the " + kind)
		sub.SetFlags(portFlag,
			cli.StringFlag{
				Name:     "regex",
				Usage:    "regular expression of the URLs",
				Required: true,
			},
			cli.IntFlag{
				Name:     "status",
				Usage:    "HTTP status code",
				Required: true,
			},
		)
		sub.SetAction(builder.MakeAction(urlListAction{kind: kind}))
	}

	cmd = builder.SetCommand("hosts")
	cmd.SetDescription("manage the host name resolution of the session")

	sub = cmd.SetSubCommand("remap")
	sub.SetDescription("resolve a host to the address")
	sub.SetFlags(portFlag,
		cli.StringFlag{
			Name:     "host",
			Usage:    "host name",
			Required: true,
		},
		cli.StringFlag{
			Name:     "ip",
			Usage:    "address the host resolves to",
			Required: true,
		},
	)
	sub.SetAction(builder.MakeAction(remapAction{}))

	cmd = builder.SetCommand("filter")
	cmd.SetDescription("manage the filters of the session")

	sub = cmd.SetSubCommand("request")
	sub.SetDescription("set the script filtering the requests")
	sub.SetFlags(portFlag, cli.PathFlag{
		Name:     "script",
		Usage:    "file of the script",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(filterAction{}))
}

// OnStart implements node.Initializer. It injects an empty registry.
func (controller) OnStart(flags cli.Flags, inj node.Injector) error {
	inj.Inject(NewRegistry())

	return nil
}

// OnStop implements node.Initializer. It closes the sessions still open. The
// failures are only logged so that the proxy server is stopped anyway.
func (controller) OnStop(inj node.Injector) error {
	var reg *Registry
	err := inj.Resolve(&reg)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	failed := reg.CloseAll(ctx)
	if len(failed) > 0 {
		browsermob.Logger.Warn().Ints("ports", failed).Msg("failed to close sessions")
	}

	return nil
}
