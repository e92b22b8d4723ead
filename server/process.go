package server

import (
	"os/exec"
	"time"

	"golang.org/x/xerrors"
)

// process is a started executable. It is reaped by its own goroutine, which
// closes the exited channel once the process is gone.
type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
	err    error
}

func startProcess(cmd *exec.Cmd) (*process, error) {
	setupProcessGroup(cmd)

	err := cmd.Start()
	if err != nil {
		return nil, err
	}

	proc := &process{
		cmd:    cmd,
		exited: make(chan struct{}),
	}

	go func() {
		proc.err = cmd.Wait()
		close(proc.exited)
	}()

	return proc, nil
}

func (p *process) pid() int {
	return p.cmd.Process.Pid
}

func (p *process) hasExited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// exitErr returns the result of the wait. It must only be called once the
// process has exited.
func (p *process) exitErr() error {
	if !p.hasExited() {
		return nil
	}

	return p.err
}

// stop asks the process to exit and kills it when it is still running after
// the timeout. An error is returned when it had to be killed.
func (p *process) stop(timeout time.Duration) error {
	err := terminateProcessGroup(p.cmd)
	if err == nil {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-p.exited:
			return nil
		case <-timer.C:
			err = xerrors.Errorf("process still running after %v", timeout)
		}
	}

	p.kill()

	return xerrors.Errorf("couldn't terminate gracefully: %v", err)
}

// kill kills the process and waits for it to be reaped.
func (p *process) kill() {
	killProcessGroup(p.cmd)
	<-p.exited
}
