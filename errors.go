package browsermob

import (
	"fmt"

	"golang.org/x/xerrors"
)

var (
	// ErrConfiguration is returned when a required argument is missing or
	// empty, before anything is sent or spawned.
	ErrConfiguration = xerrors.New("invalid configuration")

	// ErrAlreadyStarted is returned when a server is started while it still
	// holds a process.
	ErrAlreadyStarted = xerrors.New("server already started")

	// ErrStartupTimeout is returned when the proxy executable does not accept
	// connections within the probe budget.
	ErrStartupTimeout = xerrors.New("proxy server did not start listening")

	// ErrProvisioning is returned when the proxy server does not assign a port
	// to a new session.
	ErrProvisioning = xerrors.New("proxy port provisioning failed")

	// ErrTransport is matched by every TransportError.
	ErrTransport = xerrors.New("transport failure")

	// ErrDecode is returned when a non-empty response cannot be decoded.
	ErrDecode = xerrors.New("malformed response")

	// ErrServerStopped is returned by a session whose server has been stopped.
	ErrServerStopped = xerrors.New("proxy server is not running")
)

// TransportError is the error returned by a control request that either failed
// at the network level or received a non-2xx status.
type TransportError struct {
	Method string
	URL    string
	// StatusCode is zero when no response was received.
	StatusCode int
	Err        error
}

// Error implements error.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}

	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the network error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes the error match ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
