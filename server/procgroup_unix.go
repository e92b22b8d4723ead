//go:build !windows

package server

import (
	"os"
	"os/exec"
	"syscall"
)

// setupProcessGroup starts the executable in its own session so that the
// signals reach the children it spawns, like the JVM of a wrapper script.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
}

func terminateProcessGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGTERM)
}

func killProcessGroup(cmd *exec.Cmd) {
	err := signalGroup(cmd, syscall.SIGKILL)
	if err != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return os.ErrProcessDone
	}

	// kill(-1) and kill(0) would reach far more than the group.
	pid := cmd.Process.Pid
	if pid <= 1 {
		return os.ErrProcessDone
	}

	return syscall.Kill(-pid, sig)
}
