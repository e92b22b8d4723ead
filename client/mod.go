// Package client implements the control session of a provisioned proxy port.
//
// A session is created by asking the proxy server for a new port, then each
// operation is translated into exactly one HTTP request on a sub-resource of
// that port. Nothing is retried: a network failure or a non-2xx status is
// returned to the caller as a *browsermob.TransportError.
//
//	cl, err := client.New(ctx, "http://localhost:8080", maybe.None[string]())
//	...
//	err = cl.NewHar(ctx, maybe.Some("home"))
//	res, err := cl.GetHar(ctx)
//	err = cl.Close(ctx)
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/browsermob"
	"go.dedis.ch/browsermob/har"
	"go.dedis.ch/browsermob/maybe"
	"golang.org/x/xerrors"
)

const (
	contentTypeForm  = "application/x-www-form-urlencoded"
	contentTypeJSON  = "text/json"
	contentTypePlain = "text/plain"
)

// Liveness reports whether the proxy server behind a session is still running.
type Liveness interface {
	IsAlive() bool
}

// Client is a control session bound to one provisioned proxy port.
type Client struct {
	url      string
	baseURL  string
	port     int
	proxy    string
	http     *http.Client
	timeout  time.Duration
	liveness Liveness
	logger   zerolog.Logger
}

type template struct {
	http     *http.Client
	timeout  time.Duration
	liveness Liveness
	logger   zerolog.Logger
}

// Option is the type of the options to create a session.
type Option func(*template)

// WithHTTPClient sets the HTTP client used to send the requests. The default
// one is http.DefaultClient.
func WithHTTPClient(cl *http.Client) Option {
	return func(tmpl *template) {
		tmpl.http = cl
	}
}

// WithTimeout bounds every request of the session, provisioning included. The
// default, zero, waits for the response indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(tmpl *template) {
		tmpl.timeout = d
	}
}

// WithLiveness sets the source consulted before each request. When it reports
// that the server is gone, the request is not sent and ErrServerStopped is
// returned.
func WithLiveness(l Liveness) Option {
	return func(tmpl *template) {
		tmpl.liveness = l
	}
}

// WithLogger overrides the logger of the session.
func WithLogger(logger zerolog.Logger) Option {
	return func(tmpl *template) {
		tmpl.logger = logger
	}
}

// New provisions a new proxy port on the server reachable at the given URL and
// returns the session controlling it. The settings, when present, are sent
// verbatim as the form body of the provisioning request. The liveness, if any,
// only gates the calls made after the port is provisioned.
func New(ctx context.Context, rawURL string, settings maybe.Value[string],
	opts ...Option) (*Client, error) {

	if rawURL == "" {
		return nil, xerrors.Errorf("url not supplied: %w", browsermob.ErrConfiguration)
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, xerrors.Errorf("malformed url %q: %w", rawURL, browsermob.ErrConfiguration)
	}

	tmpl := template{
		http:   http.DefaultClient,
		logger: browsermob.Logger.With().Str("role", "proxy client").Logger(),
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	rawURL = strings.TrimSuffix(rawURL, "/")

	c := &Client{
		url:     rawURL,
		baseURL: rawURL + "/proxy",
		http:    tmpl.http,
		timeout: tmpl.timeout,
		logger:  tmpl.logger,
	}

	resp, err := c.send(ctx, "provision", http.MethodPost, c.baseURL, formBody(settings))
	if err != nil {
		return nil, xerrors.Errorf("failed to provision proxy: %w", err)
	}

	port, err := parsePort(resp)
	if err != nil {
		return nil, err
	}

	c.port = port
	c.liveness = tmpl.liveness
	c.proxy = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	c.logger = c.logger.With().Int("port", port).Logger()

	c.logger.Info().Str("proxy", c.proxy).Msg("proxy port provisioned")

	return c, nil
}

// URL returns the URL of the proxy server.
func (c *Client) URL() string {
	return c.url
}

// Port returns the port assigned by the proxy server.
func (c *Client) Port() int {
	return c.port
}

// SeleniumProxy returns the host:port address a browser should use as its
// proxy.
func (c *Client) SeleniumProxy() string {
	return c.proxy
}

// NewHar starts a new capture, or resets the current one. The reference, when
// present, names the first page.
func (c *Client) NewHar(ctx context.Context, ref maybe.Value[string]) error {
	_, err := c.send(ctx, "new_har", http.MethodPut, c.resource("har"), formBody(ref))
	if err != nil {
		return xerrors.Errorf("failed to create har: %w", err)
	}

	return nil
}

// NewPage starts a new page in the current capture.
func (c *Client) NewPage(ctx context.Context, ref string) error {
	_, err := c.send(ctx, "new_page", http.MethodPut, c.resource("har/pageRef"),
		formBody(maybe.Some(ref)))
	if err != nil {
		return xerrors.Errorf("failed to create page: %w", err)
	}

	return nil
}

// GetHar returns the current capture. It returns a nil result without error
// when the server answers with an empty body.
func (c *Client) GetHar(ctx context.Context) (*har.Result, error) {
	resp, err := c.send(ctx, "get_har", http.MethodGet, c.resource("har"), noBody)
	if err != nil {
		return nil, xerrors.Errorf("failed to get har: %w", err)
	}

	if len(resp) == 0 {
		return nil, nil
	}

	res, err := har.Decode(resp)
	if err != nil {
		return nil, xerrors.Errorf("%v: %w", err, browsermob.ErrDecode)
	}

	return res, nil
}

// SetHeaders sets the headers added to every request going through the proxy.
// The payload is a JSON object sent as is.
func (c *Client) SetHeaders(ctx context.Context, payload string) error {
	_, err := c.send(ctx, "set_headers", http.MethodPost, c.resource("headers"),
		typedBody(contentTypeJSON, payload))
	if err != nil {
		return xerrors.Errorf("failed to set headers: %w", err)
	}

	return nil
}

// SetLimits sets the bandwidth and latency limits of the proxy.
func (c *Client) SetLimits(ctx context.Context, options *LimitOptions) error {
	if options == nil {
		return xerrors.Errorf("limit options must be supplied: %w", browsermob.ErrConfiguration)
	}

	_, err := c.send(ctx, "set_limits", http.MethodPut, c.resource("limit"),
		formBody(maybe.Some(options.FormData())))
	if err != nil {
		return xerrors.Errorf("failed to set limits: %w", err)
	}

	return nil
}

// WhiteList restricts the proxy to the URLs matching the regular expression.
// Other requests are answered with the status code.
func (c *Client) WhiteList(ctx context.Context, regexp string, statusCode int) error {
	_, err := c.send(ctx, "whitelist", http.MethodPut, c.resource("whitelist"),
		formBody(maybe.Some(listFormData(regexp, statusCode))))
	if err != nil {
		return xerrors.Errorf("failed to set whitelist: %w", err)
	}

	return nil
}

// Blacklist makes the proxy answer the URLs matching the regular expression
// with the status code.
func (c *Client) Blacklist(ctx context.Context, regexp string, statusCode int) error {
	_, err := c.send(ctx, "blacklist", http.MethodPut, c.resource("blacklist"),
		formBody(maybe.Some(listFormData(regexp, statusCode))))
	if err != nil {
		return xerrors.Errorf("failed to set blacklist: %w", err)
	}

	return nil
}

// RemapHost makes the proxy resolve the host to the IP address.
func (c *Client) RemapHost(ctx context.Context, host, ip string) error {
	data, err := json.Marshal(map[string]string{host: ip})
	if err != nil {
		return xerrors.Errorf("failed to encode host: %v", err)
	}

	_, err = c.send(ctx, "remap_host", http.MethodPost, c.resource("hosts"),
		typedBody(contentTypeJSON, string(data)))
	if err != nil {
		return xerrors.Errorf("failed to remap host: %w", err)
	}

	return nil
}

// FilterRequest installs a JavaScript request filter on the proxy.
func (c *Client) FilterRequest(ctx context.Context, script string) error {
	_, err := c.send(ctx, "filter_request", http.MethodPost, c.resource("filter/request"),
		typedBody(contentTypePlain, script))
	if err != nil {
		return xerrors.Errorf("failed to set request filter: %w", err)
	}

	return nil
}

// Close shuts down the proxy and releases its port on the server. The session
// must not be used afterwards.
func (c *Client) Close(ctx context.Context) error {
	_, err := c.send(ctx, "close", http.MethodDelete, fmt.Sprintf("%s/%d", c.baseURL, c.port), noBody)
	if err != nil {
		return xerrors.Errorf("failed to close proxy: %w", err)
	}

	c.logger.Info().Msg("proxy port closed")

	return nil
}

func (c *Client) resource(name string) string {
	return fmt.Sprintf("%s/%d/%s", c.baseURL, c.port, name)
}

func listFormData(regexp string, statusCode int) string {
	values := url.Values{
		"regex":  {regexp},
		"status": {strconv.Itoa(statusCode)},
	}

	return values.Encode()
}

func parsePort(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, xerrors.Errorf("no response from proxy: %w", browsermob.ErrProvisioning)
	}

	var resp struct {
		Port *int `json:"port"`
	}

	err := json.Unmarshal(data, &resp)
	if err != nil {
		return 0, xerrors.Errorf("couldn't decode %q: %w", data, browsermob.ErrProvisioning)
	}

	if resp.Port == nil {
		return 0, xerrors.Errorf("no port number returned from proxy: %w",
			browsermob.ErrProvisioning)
	}

	if *resp.Port <= 0 || *resp.Port > 65535 {
		return 0, xerrors.Errorf("invalid port %d: %w", *resp.Port, browsermob.ErrProvisioning)
	}

	return *resp.Port, nil
}
