/*
Copyright 2026 The Bors Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config knows how to read and validate the bot's
// configuration: which repositories are under merge-queue
// management, how their priority thresholds and the queue store are
// set up.
package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"

	"github.com/clarketm/bors/queue"
)

// RepoConfig is one repository's merge-queue settings as they appear
// in the configuration file.
type RepoConfig struct {
	Owner string `mapstructure:"owner"`
	Name  string `mapstructure:"name"`

	MergeQueueEnabled bool `mapstructure:"merge_queue_enabled"`
	MinPriority       int  `mapstructure:"min_priority"`
}

// StoreConfig selects and configures the Queue Store backend.
type StoreConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`
	// DSN is the Postgres connection string, or the sqlite file path.
	DSN string `mapstructure:"dsn"`
}

// Config is the bot's full runtime configuration.
type Config struct {
	// SyncPeriodString compiles into SyncPeriod at load time.
	SyncPeriodString string        `mapstructure:"sync_period"`
	SyncPeriod       time.Duration `mapstructure:"-"`

	GitHubToken     string `mapstructure:"github_token"`
	GitHubBaseURL   string `mapstructure:"github_base_url"`
	GitHubUploadURL string `mapstructure:"github_upload_url"`
	DryRun          bool   `mapstructure:"dry_run"`

	Store StoreConfig  `mapstructure:"store"`
	Repos []RepoConfig `mapstructure:"repos"`

	MetricsAddr   string `mapstructure:"metrics_addr"`
	DashboardAddr string `mapstructure:"dashboard_addr"`
}

const defaultSyncPeriod = time.Minute

// Load reads configuration from path (YAML) with BORS_-prefixed
// environment variable overrides (e.g. BORS_GITHUB_TOKEN).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("bors")
	v.AutomaticEnv()

	v.SetDefault("sync_period", "1m")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("dashboard_addr", ":8080")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if c.SyncPeriodString == "" {
		c.SyncPeriod = defaultSyncPeriod
	} else {
		d, err := time.ParseDuration(c.SyncPeriodString)
		if err != nil {
			return nil, fmt.Errorf("config: invalid sync_period %q: %w", c.SyncPeriodString, err)
		}
		c.SyncPeriod = d
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the configuration for mistakes that would silently
// misbehave rather than fail outright. Non-fatal smells are logged as
// warnings rather than returned as errors, matching this codebase's
// preference for warning on config smells instead of refusing to
// start.
func (c *Config) Validate() error {
	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if len(c.Repos) == 0 {
		logrus.Warning("no repositories configured, the queue driver will have nothing to do")
	}
	seen := make(map[string]bool)
	for _, r := range c.Repos {
		if r.Owner == "" || r.Name == "" {
			return fmt.Errorf("config: repo entry missing owner or name: %+v", r)
		}
		key := r.Owner + "/" + r.Name
		if seen[key] {
			return fmt.Errorf("config: repo %s listed more than once", key)
		}
		seen[key] = true
	}
	return nil
}

// Dump renders the effective configuration as YAML, with the GitHub
// token redacted, for startup diagnostics.
func (c *Config) Dump() (string, error) {
	redacted := *c
	if redacted.GitHubToken != "" {
		redacted.GitHubToken = "<redacted>"
	}
	b, err := yaml.Marshal(redacted)
	if err != nil {
		return "", fmt.Errorf("config: dump: %w", err)
	}
	return string(b), nil
}

// Repositories converts the configured repos into queue.Repository
// values for the tick engine.
func (c *Config) Repositories() []queue.Repository {
	out := make([]queue.Repository, 0, len(c.Repos))
	for _, r := range c.Repos {
		out = append(out, queue.Repository{
			Owner:             r.Owner,
			Name:              r.Name,
			MergeQueueEnabled: r.MergeQueueEnabled,
			MinPriority:       r.MinPriority,
		})
	}
	return out
}
