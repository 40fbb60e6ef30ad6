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

package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir         string `yaml:"dataDir"         envconfig:"ROOMHQ_DATA_DIR"`
	MetricsAddress  string `yaml:"metricsAddress"  envconfig:"ROOMHQ_METRICS_ADDRESS"`
	LogLevel        string `yaml:"logLevel"        envconfig:"ROOMHQ_LOG_LEVEL"`
	JurySize        int    `yaml:"jurySize"        envconfig:"ROOMHQ_JURY_SIZE"`
	ShutdownTimeout string `yaml:"shutdownTimeout" envconfig:"ROOMHQ_SHUTDOWN_TIMEOUT"`
}

var globalConfig = &Config{
	MetricsAddress:  ":12799",
	LogLevel:        "info",
	JurySize:        5,
	ShutdownTimeout: "30s",
}

// LoadConfig loads configuration from an optional YAML file, then applies
// environment variable overrides
func LoadConfig(configFile string) (*Config, error) {
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("roomhq", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

// GetConfig returns the global config instance
func GetConfig() *Config {
	return globalConfig
}

func (c *Config) Validate() error {
	if c.JurySize <= 0 {
		return fmt.Errorf("invalid jury size: %d", c.JurySize)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}
