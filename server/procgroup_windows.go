//go:build windows

package server

import (
	"os/exec"
)

func setupProcessGroup(cmd *exec.Cmd) {}

// terminateProcessGroup kills the process as there is no signal to request a
// graceful exit.
func terminateProcessGroup(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func killProcessGroup(cmd *exec.Cmd) {
	cmd.Process.Kill()
}
