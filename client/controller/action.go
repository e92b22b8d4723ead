package controller

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.dedis.ch/browsermob/cli"
	"go.dedis.ch/browsermob/cli/node"
	"go.dedis.ch/browsermob/client"
	"go.dedis.ch/browsermob/maybe"
	"golang.org/x/xerrors"
)

const (
	whitelist = "whitelist"
	blacklist = "blacklist"
)

// Provisioner is the component that creates the sessions. The proxy server
// implements it.
type Provisioner interface {
	CreateProxy(ctx context.Context, settings maybe.Value[string],
		opts ...client.Option) (*client.Client, error)
}

// createAction is an action to provision a new session.
//
// - implements node.ActionTemplate
type createAction struct{}

// Execute implements node.ActionTemplate. It provisions a session on the proxy
// server and tracks it.
func (a createAction) Execute(ctx node.Context) error {
	var prov Provisioner
	err := ctx.Injector.Resolve(&prov)
	if err != nil {
		return xerrors.Errorf("failed to resolve the proxy server: %v", err)
	}

	reg, err := resolveRegistry(ctx)
	if err != nil {
		return err
	}

	settings := maybe.None[string]()
	if ctx.Flags.String("settings") != "" {
		settings = maybe.Some(ctx.Flags.String("settings"))
	}

	cl, err := prov.CreateProxy(ctx.Ctx, settings)
	if err != nil {
		return err
	}

	reg.Add(cl)

	fmt.Fprintf(ctx.Out, "%d %s", cl.Port(), cl.SeleniumProxy())

	return nil
}

// listAction is an action to print the tracked sessions.
//
// - implements node.ActionTemplate
type listAction struct{}

// Execute implements node.ActionTemplate. It prints one line per session with
// the port and the proxy address.
func (a listAction) Execute(ctx node.Context) error {
	reg, err := resolveRegistry(ctx)
	if err != nil {
		return err
	}

	for _, port := range reg.Ports() {
		cl, err := reg.Get(port)
		if err != nil {
			// Closed in the meantime.
			continue
		}

		fmt.Fprintf(ctx.Out, "%d %s", port, cl.SeleniumProxy())
	}

	return nil
}

// closeAction is an action to tear a session down.
//
// - implements node.ActionTemplate
type closeAction struct{}

// Execute implements node.ActionTemplate. It releases the port of the session
// and stops tracking it.
func (a closeAction) Execute(ctx node.Context) error {
	reg, err := resolveRegistry(ctx)
	if err != nil {
		return err
	}

	port := ctx.Flags.Int("port")

	cl, err := reg.Get(port)
	if err != nil {
		return err
	}

	err = cl.Close(ctx.Ctx)
	if err != nil {
		return err
	}

	reg.Remove(port)

	fmt.Fprintf(ctx.Out, "proxy %d closed", port)

	return nil
}

// harNewAction is an action to start a new capture.
//
// - implements node.ActionTemplate
type harNewAction struct{}

// Execute implements node.ActionTemplate.
func (a harNewAction) Execute(ctx node.Context) error {
	cl, err := session(ctx)
	if err != nil {
		return err
	}

	ref := maybe.None[string]()
	if ctx.Flags.String("ref") != "" {
		ref = maybe.Some(ctx.Flags.String("ref"))
	}

	return cl.NewHar(ctx.Ctx, ref)
}

// harPageAction is an action to start a new page in the capture.
//
// - implements node.ActionTemplate
type harPageAction struct{}

// Execute implements node.ActionTemplate.
func (a harPageAction) Execute(ctx node.Context) error {
	cl, err := session(ctx)
	if err != nil {
		return err
	}

	return cl.NewPage(ctx.Ctx, ctx.Flags.String("ref"))
}

// harGetAction is an action to fetch the capture.
//
// - implements node.ActionTemplate
type harGetAction struct{}

// Execute implements node.ActionTemplate. It writes the document as it was
// received, either to the output or to the file.
func (a harGetAction) Execute(ctx node.Context) error {
	cl, err := session(ctx)
	if err != nil {
		return err
	}

	res, err := cl.GetHar(ctx.Ctx)
	if err != nil {
		return err
	}

	if res == nil {
		fmt.Fprint(ctx.Out, "no capture")
		return nil
	}

	out := ctx.Flags.Path("out")
	if out == "" {
		_, err = ctx.Out.Write(res.Raw())
		if err != nil {
			return xerrors.Errorf("failed to write har: %v", err)
		}

		return nil
	}

	err = os.WriteFile(out, res.Raw(), 0600)
	if err != nil {
		return xerrors.Errorf("failed to write har: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%d entries written to %s", len(res.Log.Entries), out)

	return nil
}

// headersAction is an action to set the headers added to the requests.
//
// - implements node.ActionTemplate
type headersAction struct{}

// Execute implements node.ActionTemplate.
func (a headersAction) Execute(ctx node.Context) error {
	cl, err := session(ctx)
	if err != nil {
		return err
	}

	return cl.SetHeaders(ctx.Ctx, ctx.Flags.String("json"))
}

// limitAction is an action to set the limits of a session.
//
// - implements node.ActionTemplate
type limitAction struct{}

// Execute implements node.ActionTemplate. The limits are read from the file, if
// any, and then from the flags.
func (a limitAction) Execute(ctx node.Context) error {
	cl, err := session(ctx)
	if err != nil {
		return err
	}

	opts := &client.LimitOptions{}

	path := ctx.Flags.Path("file")
	if path != "" {
		opts, err = client.LoadLimits(path)
		if err != nil {
			return err
		}
	}

	err = parseLimits(ctx.Flags, opts)
	if err != nil {
		return err
	}

	return cl.SetLimits(ctx.Ctx, opts)
}

// urlListAction is an action to set the whitelist or the blacklist of a
// session.
//
// - implements node.ActionTemplate
type urlListAction struct {
	kind string
}

// Execute implements node.ActionTemplate.
func (a urlListAction) Execute(ctx node.Context) error {
	cl, err := session(ctx)
	if err != nil {
		return err
	}

	regex := ctx.Flags.String("regex")
	status := ctx.Flags.Int("status")

	if a.kind == blacklist {
		return cl.Blacklist(ctx.Ctx, regex, status)
	}

	return cl.WhiteList(ctx.Ctx, regex, status)
}

// remapAction is an action to resolve a host to an address.
//
// - implements node.ActionTemplate
type remapAction struct{}

// Execute implements node.ActionTemplate.
func (a remapAction) Execute(ctx node.Context) error {
	cl, err := session(ctx)
	if err != nil {
		return err
	}

	return cl.RemapHost(ctx.Ctx, ctx.Flags.String("host"), ctx.Flags.String("ip"))
}

// filterAction is an action to set the script filtering the requests.
//
// - implements node.ActionTemplate
type filterAction struct{}

// Execute implements node.ActionTemplate. The script is read on the daemon
// side.
func (a filterAction) Execute(ctx node.Context) error {
	cl, err := session(ctx)
	if err != nil {
		return err
	}

	script, err := os.ReadFile(ctx.Flags.Path("script"))
	if err != nil {
		return xerrors.Errorf("failed to read script: %v", err)
	}

	return cl.FilterRequest(ctx.Ctx, string(script))
}

func resolveRegistry(ctx node.Context) (*Registry, error) {
	var reg *Registry
	err := ctx.Injector.Resolve(&reg)
	if err != nil {
		return nil, xerrors.Errorf("failed to resolve the registry: %v", err)
	}

	return reg, nil
}

func session(ctx node.Context) (*client.Client, error) {
	reg, err := resolveRegistry(ctx)
	if err != nil {
		return nil, err
	}

	return reg.Get(ctx.Flags.Int("port"))
}

// limitField binds a flag to a field of the limits.
type limitField struct {
	flag  string
	usage string
	field func(*client.LimitOptions) *maybe.Value[int64]
}

var limitFields = []limitField{
	{"downstream-kbps", "downstream bandwidth in kilobits per second",
		func(o *client.LimitOptions) *maybe.Value[int64] { return &o.DownstreamKbps }},
	{"upstream-kbps", "upstream bandwidth in kilobits per second",
		func(o *client.LimitOptions) *maybe.Value[int64] { return &o.UpstreamKbps }},
	{"downstream-max-kb", "maximum number of kilobytes downloaded",
		func(o *client.LimitOptions) *maybe.Value[int64] { return &o.DownstreamMaxKB }},
	{"upstream-max-kb", "maximum number of kilobytes uploaded",
		func(o *client.LimitOptions) *maybe.Value[int64] { return &o.UpstreamMaxKB }},
	{"latency", "latency added to the requests in milliseconds",
		func(o *client.LimitOptions) *maybe.Value[int64] { return &o.Latency }},
	{"payload-percentage", "share of the payload counted against the bandwidth",
		func(o *client.LimitOptions) *maybe.Value[int64] { return &o.PayloadPercentage }},
	{"max-bits-per-second", "maximum bitrate",
		func(o *client.LimitOptions) *maybe.Value[int64] { return &o.MaxBitsPerSecond }},
}

// limitFlags returns the flags of the limits. They are strings so that an
// unset flag is told apart from a zero.
func limitFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(limitFields)+1)

	for _, f := range limitFields {
		flags = append(flags, cli.StringFlag{Name: f.flag, Usage: f.usage})
	}

	flags = append(flags, cli.StringFlag{
		Name:  "enable",
		Usage: "true or false to turn the limits on or off",
	})

	return flags
}

func parseLimits(flags cli.Flags, opts *client.LimitOptions) error {
	for _, f := range limitFields {
		raw := flags.String(f.flag)
		if raw == "" {
			continue
		}

		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return xerrors.Errorf("invalid value for --%s: %v", f.flag, err)
		}

		*f.field(opts) = maybe.Some(v)
	}

	raw := flags.String("enable")
	if raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return xerrors.Errorf("invalid value for --enable: %v", err)
		}

		opts.Enable = maybe.Some(v)
	}

	return nil
}
