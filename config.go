// Copyright 2026 VirtualConnekt
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package roomhq

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/virtualconnekt/roomhq/registry"
)

const DefaultJurySize = 5

type Config struct {
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	registry     registry.Registry
	dataDir      string
	jurySize     int
	now          func() time.Time
}

// NewConfig builds a coordinator config with the given options applied
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		jurySize: DefaultJurySize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type ConfigOptionFunc func(*Config)

// WithLogger specifies the logger for all components
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDataDir specifies the directory for persistent storage. An empty
// value keeps all state in memory.
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithPrometheusRegistry specifies a prometheus registry for metrics
func WithPrometheusRegistry(
	promRegistry prometheus.Registerer,
) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = promRegistry
	}
}

// WithRegistry specifies the juror eligibility registry
func WithRegistry(reg registry.Registry) ConfigOptionFunc {
	return func(c *Config) {
		c.registry = reg
	}
}

// WithJurySize specifies how many jurors are selected per room
func WithJurySize(jurySize int) ConfigOptionFunc {
	return func(c *Config) {
		c.jurySize = jurySize
	}
}

// WithClock overrides the wall clock used for deadline checks. Tests use
// this to control time.
func WithClock(now func() time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.now = now
	}
}
