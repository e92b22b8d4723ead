package controller

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/browsermob/client"
	"go.dedis.ch/browsermob/internal/testing/fakebmp"
	"go.dedis.ch/browsermob/maybe"
)

func TestRegistry_Add(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get(9091)
	require.EqualError(t, err, "unknown proxy port 9091")

	cl := newSession(t, fakebmp.NewHandler(9091))
	reg.Add(cl)
	reg.Add(newSession(t, fakebmp.NewHandler(9093)))
	reg.Add(newSession(t, fakebmp.NewHandler(9092)))

	res, err := reg.Get(9091)
	require.NoError(t, err)
	require.Same(t, cl, res)
	require.Equal(t, []int{9091, 9092, 9093}, reg.Ports())

	reg.Remove(9092)
	reg.Remove(9092)
	require.Equal(t, []int{9091, 9093}, reg.Ports())
}

func TestRegistry_CloseAll(t *testing.T) {
	handler := fakebmp.NewHandler(9091)
	failing := fakebmp.NewHandler(9092)

	reg := NewRegistry()
	reg.Add(newSession(t, handler))
	reg.Add(newSession(t, failing))

	failing.SetStatus(http.StatusInternalServerError)

	failed := reg.CloseAll(context.Background())
	require.Equal(t, []int{9092}, failed)
	require.Empty(t, reg.Ports())

	req := handler.Last()
	require.Equal(t, http.MethodDelete, req.Method)
	require.Equal(t, "/proxy/9091", req.Path)

	require.Empty(t, reg.CloseAll(context.Background()))
}

// -----------------------------------------------------------------------------
// Utility functions

func newSession(t *testing.T, handler *fakebmp.Handler) *client.Client {
	cl, err := client.New(context.Background(), newServer(t, handler), maybe.None[string]())
	require.NoError(t, err)

	return cl
}
