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

// Package scheduler periodically calls Trigger on the queue driver, so
// the merge queue keeps making progress even when no webhook arrives
// (a stuck check run, a forge outage that suppressed a delivery, or a
// cooldown that has quietly expired).
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Triggerer is the subset of *queue.Driver the scheduler depends on.
type Triggerer interface {
	Trigger()
}

// Scheduler wraps a cron.Cron configured with a single every-period
// job that calls Trigger.
type Scheduler struct {
	logger *logrus.Entry
	cron   *cron.Cron
}

// New builds a Scheduler that triggers target every period. period
// must be a positive duration; it is rendered as a "@every" cron
// spec since robfig/cron has no native duration-only schedule.
func New(logger *logrus.Entry, period time.Duration, target Triggerer) (*Scheduler, error) {
	if period <= 0 {
		return nil, fmt.Errorf("scheduler: period must be positive, got %s", period)
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithField("component", "scheduler")

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	spec := fmt.Sprintf("@every %s", period)
	if _, err := c.AddFunc(spec, func() {
		logger.Debug("scheduled trigger firing")
		target.Trigger()
	}); err != nil {
		return nil, fmt.Errorf("scheduler: add periodic job: %w", err)
	}
	return &Scheduler{logger: logger, cron: c}, nil
}

// Start runs the cron scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
