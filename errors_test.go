package browsermob

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestTransportError_Status(t *testing.T) {
	err := &TransportError{Method: "PUT", URL: "http://localhost/proxy", StatusCode: 404}

	require.EqualError(t, err, "PUT http://localhost/proxy: unexpected status 404")
	require.True(t, xerrors.Is(err, ErrTransport))
	require.Nil(t, xerrors.Unwrap(err))
}

func TestTransportError_Network(t *testing.T) {
	cause := xerrors.New("connection refused")
	err := &TransportError{Method: "GET", URL: "http://localhost/proxy", Err: cause}

	require.EqualError(t, err, "GET http://localhost/proxy: connection refused")
	require.True(t, xerrors.Is(err, ErrTransport))
	require.True(t, xerrors.Is(err, cause))

	wrapped := xerrors.Errorf("failed to get har: %w", err)

	var terr *TransportError
	require.True(t, xerrors.As(wrapped, &terr))
	require.Equal(t, "GET", terr.Method)
}
