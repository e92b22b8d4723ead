package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"go.dedis.ch/browsermob"
	"go.dedis.ch/browsermob/maybe"
	"golang.org/x/net/context/ctxhttp"
	"golang.org/x/xerrors"
)

// defines prometheus metrics
var (
	promRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "browsermob_client_requests_total",
		Help: "total number of control requests by operation and status code",
	}, []string{"operation", "code"})

	promDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "browsermob_client_request_duration_seconds",
		Help:    "duration of the control requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

func init() {
	browsermob.PromCollectors = append(browsermob.PromCollectors, promRequests, promDuration)
}

// payload is the body of a control request. An absent payload is sent as a
// zero-length body without content type.
type payload struct {
	contentType string
	data        maybe.Value[string]
}

var noBody = payload{}

func formBody(v maybe.Value[string]) payload {
	return payload{contentType: contentTypeForm, data: v}
}

func typedBody(contentType, data string) payload {
	return payload{contentType: contentType, data: maybe.Some(data)}
}

// send performs one request and returns the body of a 2xx response.
func (c *Client) send(ctx context.Context, op, method, url string, body payload) ([]byte, error) {
	if c.liveness != nil && !c.liveness.IsAlive() {
		return nil, xerrors.Errorf("%s %s: %w", method, url, browsermob.ErrServerStopped)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader = http.NoBody

	data, present := body.data.Get()
	if present {
		reader = bytes.NewBufferString(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, xerrors.Errorf("couldn't create request: %v", err)
	}

	if present {
		req.Header.Set("Content-Type", body.contentType)
	}

	requestID := xid.New().String()
	req.Header.Set("X-Request-Id", requestID)

	span := opentracing.GlobalTracer().StartSpan("browsermob." + op)
	defer span.Finish()

	ext.SpanKindRPCClient.Set(span)
	ext.HTTPMethod.Set(span, method)
	ext.HTTPUrl.Set(span, url)

	err = span.Tracer().Inject(span.Context(), opentracing.HTTPHeaders,
		opentracing.HTTPHeadersCarrier(req.Header))
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to inject span")
	}

	c.logger.Trace().
		Str("requestID", requestID).
		Str("method", method).
		Str("url", url).
		Msg("sending control request")

	start := time.Now()

	resp, err := ctxhttp.Do(ctx, c.http, req)

	promDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		promRequests.WithLabelValues(op, "error").Inc()
		ext.Error.Set(span, true)

		return nil, &browsermob.TransportError{Method: method, URL: url, Err: err}
	}

	defer resp.Body.Close()

	promRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	ext.HTTPStatusCode.Set(span, uint16(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ext.Error.Set(span, true)

		return nil, &browsermob.TransportError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
		}
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &browsermob.TransportError{Method: method, URL: url, Err: err}
	}

	return out, nil
}
