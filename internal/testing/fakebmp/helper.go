package fakebmp

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

// HelperEnv is the environment variable that turns a test binary into a fake
// proxy executable. The tests start the binary itself as the executable with
// one of the modes:
//
//	listen:      serve the fake control API on the port of the arguments
//	ignore-term: same as listen, but SIGTERM is ignored
//	sleep:       never listen
//	exit:        exit at once with the status 3
const HelperEnv = "BROWSERMOB_TEST_HELPER"

// HelperPort is the port provisioned by the fake executable.
const HelperPort = 9091

// HelperHar is the document returned by the fake executable.
const HelperHar = `{"log":{"version":"1.2","creator":{"name":"fake","version":"0"},"entries":[]}}`

// RunHelper plays the executable when the test binary is started in one of the
// helper modes, and returns at once otherwise. It must be called by TestMain
// before the tests run.
func RunHelper(defaultPort int) {
	mode := os.Getenv(HelperEnv)

	switch mode {
	case "listen", "ignore-term":
		if mode == "ignore-term" {
			signal.Ignore(syscall.SIGTERM)
		}

		handler := NewHandler(HelperPort)
		handler.SetHar(HelperHar)

		err := Listen(PortFromArgs(os.Args[1:], defaultPort), handler)
		if err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	case "exit":
		os.Exit(3)
	}
}
