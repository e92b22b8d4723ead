package node

import (
	"fmt"
	"os"

	"go.dedis.ch/browsermob/cli"
)

func ExampleCLIBuilder_Build() {
	builder := NewBuilder(exampleController{})

	cmd := builder.SetCommand("version")

	cmd.SetFlags(cli.BoolFlag{
		Name:  "short",
		Usage: "only print the number",
	})

	// This action is only executed on the CLI process. The commands set with
	// MakeAction are executed by the daemon once it has been started with
	// "start".
	cmd.SetAction(func(flags cli.Flags) error {
		if flags.Bool("short") {
			fmt.Print("2.1.4")
			return nil
		}

		fmt.Print("browsermob-proxy 2.1.4")
		return nil
	})

	app := builder.Build()

	err := app.Run([]string{os.Args[0], "version", "--short"})
	if err != nil {
		panic("app failed: " + err.Error())
	}

	// Output: 2.1.4
}

// Ports is an example of a component that can be injected and resolved on the
// daemon side.
type Ports interface {
	List() []int
}

type staticPorts []int

func (p staticPorts) List() []int {
	return p
}

// portsAction is an example of an action template to be executed on the
// daemon.
//
// - implements node.ActionTemplate
type portsAction struct{}

// Execute implements node.ActionTemplate. It resolves the ports component and
// writes one port per line.
func (tmpl portsAction) Execute(ctx Context) error {
	var ports Ports
	err := ctx.Injector.Resolve(&ports)
	if err != nil {
		return err
	}

	for _, port := range ports.List() {
		fmt.Fprintln(ctx.Out, port)
	}

	return nil
}

// exampleController is an example of a controller passed to the builder. It
// defines the command available and the component that are injected when the
// daemon is started.
//
// - implements node.Initializer
type exampleController struct{}

// SetCommands implements node.Initializer. It defines the ports command.
func (exampleController) SetCommands(builder Builder) {
	cmd := builder.SetCommand("ports")

	// Set an action that will be executed on the daemon.
	cmd.SetAction(builder.MakeAction(portsAction{}))

	cmd.SetDescription("List the open proxy ports")
}

// OnStart implements node.Initializer. It injects the ports component.
func (exampleController) OnStart(flags cli.Flags, inj Injector) error {
	inj.Inject(staticPorts{9091, 9092})

	return nil
}

// OnStop implements node.Initializer.
func (exampleController) OnStop(Injector) error {
	return nil
}
