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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clarketm/bors/config"
	"github.com/clarketm/bors/forge"
	"github.com/clarketm/bors/metrics"
	"github.com/clarketm/bors/queue"
	"github.com/clarketm/bors/storelite"
	"github.com/clarketm/bors/storepg"
)

// deployment bundles everything main's subcommands need, so both
// "serve" and "tick" build it the same way and differ only in how
// long they run afterward.
type deployment struct {
	cfg      *config.Config
	recorder *metrics.Recorder
	engine   *queue.Engine
	driver   *queue.Driver

	closeStore func() error
}

func buildDeployment(ctx context.Context, configPath string) (*deployment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var store queue.Store
	var closeStore func() error
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := storepg.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		store, closeStore = pg, func() error { pg.Close(); return nil }

	case "sqlite":
		lite, err := storelite.Open(cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		store, closeStore = lite, lite.Close

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	logger := logrus.WithField("component", "bors")

	var forgeOpts []forge.Option
	if cfg.GitHubBaseURL != "" {
		forgeOpts = append(forgeOpts, forge.WithBaseURL(cfg.GitHubBaseURL, cfg.GitHubUploadURL))
	}
	if cfg.DryRun {
		forgeOpts = append(forgeOpts, forge.WithDryRun())
	}
	forgeClient := forge.New(cfg.GitHubToken, logger, forgeOpts...)

	recorder := metrics.NewRecorder()

	// The cooldown callback needs to re-trigger the driver, and the
	// driver needs the engine to exist first; close over a variable
	// the driver assignment below fills in.
	var driver *queue.Driver
	onCooldown := func(repo string, d time.Duration) {
		if driver != nil {
			driver.TriggerAfter(d)
		}
	}

	engine := queue.NewEngine(logger, store, forgeClient, cfg.Repositories(), onCooldown, recorder)
	driver = queue.NewDriver(logger, engine)

	return &deployment{
		cfg:        cfg,
		recorder:   recorder,
		engine:     engine,
		driver:     driver,
		closeStore: closeStore,
	}, nil
}
