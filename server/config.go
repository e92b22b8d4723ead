package server

import (
	"os"
	"time"

	"go.dedis.ch/browsermob/maybe"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Config is the YAML profile of a server.
//
//	path: /opt/browsermob-proxy/bin/browsermob-proxy
//	port: 9090
//	probeInterval: 500ms
//	probeAttempts: 60
//	stopTimeout: 5s
type Config struct {
	Path          string           `yaml:"path"`
	Port          maybe.Value[int] `yaml:"port"`
	ProbeInterval time.Duration    `yaml:"probeInterval"`
	ProbeAttempts int              `yaml:"probeAttempts"`
	StopTimeout   time.Duration    `yaml:"stopTimeout"`
}

// LoadConfig reads a profile from a YAML file.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, xerrors.Errorf("failed to read config: %v", err)
	}

	err = yaml.UnmarshalStrict(data, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to decode config: %v", err)
	}

	return cfg, nil
}

// Options returns the server options of the profile. The unset fields keep
// their default.
func (c Config) Options() []Option {
	var opts []Option

	port, ok := c.Port.Get()
	if ok {
		opts = append(opts, WithPort(port))
	}

	if c.ProbeInterval > 0 || c.ProbeAttempts > 0 {
		interval := c.ProbeInterval
		if interval <= 0 {
			interval = defaultInterval
		}

		attempts := c.ProbeAttempts
		if attempts <= 0 {
			attempts = defaultAttempts
		}

		opts = append(opts, WithProbe(interval, attempts))
	}

	if c.StopTimeout > 0 {
		opts = append(opts, WithStopTimeout(c.StopTimeout))
	}

	return opts
}

// NewFromConfig returns a server built from the profile.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	return New(cfg.Path, append(cfg.Options(), opts...)...)
}
