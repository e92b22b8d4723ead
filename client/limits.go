package client

import (
	"net/url"
	"os"
	"strconv"

	"go.dedis.ch/browsermob/maybe"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// LimitOptions are the bandwidth and latency limits of a proxy. Only the
// present fields are sent, the proxy keeps its current value for the others.
type LimitOptions struct {
	// DownstreamKbps is the downstream bandwidth in kilobits per second.
	DownstreamKbps maybe.Value[int64] `yaml:"downstreamKbps"`
	// UpstreamKbps is the upstream bandwidth in kilobits per second.
	UpstreamKbps maybe.Value[int64] `yaml:"upstreamKbps"`
	// DownstreamMaxKB caps the number of kilobytes downloaded.
	DownstreamMaxKB maybe.Value[int64] `yaml:"downstreamMaxKB"`
	// UpstreamMaxKB caps the number of kilobytes uploaded.
	UpstreamMaxKB maybe.Value[int64] `yaml:"upstreamMaxKB"`
	// Latency is added to every request, in milliseconds.
	Latency maybe.Value[int64] `yaml:"latency"`
	// Enable turns the limits on or off.
	Enable maybe.Value[bool] `yaml:"enable"`
	// PayloadPercentage is the share of the payload counted against the
	// bandwidth.
	PayloadPercentage maybe.Value[int64] `yaml:"payloadPercentage"`
	// MaxBitsPerSecond is the maximum bitrate of the proxy.
	MaxBitsPerSecond maybe.Value[int64] `yaml:"maxBitsPerSecond"`
}

// LoadLimits reads limit options from a YAML file whose keys are the
// parameter names of the limit resource.
func LoadLimits(path string) (*LimitOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read limits: %v", err)
	}

	opts := &LimitOptions{}

	err = yaml.UnmarshalStrict(data, opts)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode limits: %v", err)
	}

	return opts, nil
}

// FormData returns the x-www-form-urlencoded representation of the options,
// with the keys sorted.
func (o LimitOptions) FormData() string {
	values := url.Values{}

	setInt(values, "downstreamKbps", o.DownstreamKbps)
	setInt(values, "upstreamKbps", o.UpstreamKbps)
	setInt(values, "downstreamMaxKB", o.DownstreamMaxKB)
	setInt(values, "upstreamMaxKB", o.UpstreamMaxKB)
	setInt(values, "latency", o.Latency)
	setInt(values, "payloadPercentage", o.PayloadPercentage)
	setInt(values, "maxBitsPerSecond", o.MaxBitsPerSecond)

	enable, ok := o.Enable.Get()
	if ok {
		values.Set("enable", strconv.FormatBool(enable))
	}

	return values.Encode()
}

func setInt(values url.Values, key string, v maybe.Value[int64]) {
	value, ok := v.Get()
	if ok {
		values.Set(key, strconv.FormatInt(value, 10))
	}
}
