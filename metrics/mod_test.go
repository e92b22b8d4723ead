package metrics

import (
	"net"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/browsermob"
	"go.dedis.ch/browsermob/internal/testing/fake"
)

func TestRegister(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "browsermob_test_total",
	})

	defer swapCollectors(counter)()

	reg := prometheus.NewRegistry()

	err := Register(reg)
	require.NoError(t, err)

	// Registering twice is allowed.
	err = Register(reg)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Equal(t, "browsermob_test_total", families[0].GetName())
}

func TestRegister_Failure(t *testing.T) {
	defer swapCollectors(badCollector{})()

	err := Register(prometheus.NewRegistry())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to register collector: ")
}

func TestExpose(t *testing.T) {
	defer swapCollectors()()

	srv := &fakeServer{}

	err := Expose(srv, "/metrics")
	require.NoError(t, err)
	require.Equal(t, "/metrics", srv.path)

	srv.err = fake.GetError()

	err = Expose(srv, "/metrics")
	require.EqualError(t, err, fake.Err("failed to register handler"))
}

// -----------------------------------------------------------------------------
// Utility functions

func swapCollectors(collectors ...prometheus.Collector) func() {
	previous := browsermob.PromCollectors
	browsermob.PromCollectors = collectors

	return func() {
		browsermob.PromCollectors = previous
	}
}

// badCollector describes an invalid metric name.
type badCollector struct{}

func (badCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- prometheus.NewDesc("bad name", "", nil, nil)
}

func (badCollector) Collect(chan<- prometheus.Metric) {}

type fakeServer struct {
	Server

	path string
	err  error
}

func (s *fakeServer) GetAddr() net.Addr {
	return nil
}

func (s *fakeServer) RegisterHandler(path string, h func(http.ResponseWriter, *http.Request)) error {
	s.path = path
	return s.err
}
