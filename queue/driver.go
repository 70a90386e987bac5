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

package queue

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type event int

const (
	eventTrigger event = iota
	eventShutdown
)

// eventBufferSize bounds the Driver's event channel. The tick engine
// is naturally self-coalescing (every tick recomputes state from the
// store and forge) so a small buffer is enough; a full buffer simply
// backpressures Trigger.
const eventBufferSize = 10

// ticker abstracts Engine.Tick so the driver's event loop is testable
// without a real store/forge pair.
type ticker interface {
	Tick(ctx context.Context) error
}

// Driver owns the single goroutine that runs ticks one at a time. It
// multiplexes Trigger and Shutdown requests onto the ticker, and
// reschedules itself after a cooldown expires.
type Driver struct {
	logger *logrus.Entry
	engine ticker

	events chan event
	done   chan struct{}

	seq int
}

// NewDriver wraps engine in a Driver. Call Run in its own goroutine,
// then Trigger/Shutdown from anywhere.
func NewDriver(logger *logrus.Entry, engine ticker) *Driver {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Driver{
		logger: logger.WithField("component", "driver"),
		engine: engine,
		events: make(chan event, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// Trigger requests a tick. It blocks only if the event buffer is
// full.
func (d *Driver) Trigger() {
	d.events <- eventTrigger
}

// TriggerAfter schedules a Trigger to fire after delay elapses. The
// cooldown callback wired up in cmd/bors calls it with each
// cooldown's duration.
func (d *Driver) TriggerAfter(delay time.Duration) {
	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			select {
			case d.events <- eventTrigger:
			case <-d.done:
			}
		case <-d.done:
		}
	}()
}

// Shutdown requests the Run loop stop after its current tick. It is
// non-blocking; if the buffer is full the request is best-effort and
// the caller should also stop issuing Triggers.
func (d *Driver) Shutdown() {
	close(d.done)
	select {
	case d.events <- eventShutdown:
	default:
	}
}

// Run processes events until Shutdown is called, running at most one
// tick at a time. It returns when the loop exits.
func (d *Driver) Run(ctx context.Context) {
	for {
		select {
		case ev := <-d.events:
			switch ev {
			case eventTrigger:
				d.seq++
				log := d.logger.WithField("tick", d.seq)
				if err := d.engine.Tick(ctx); err != nil {
					log.WithError(err).Error("tick failed")
				}
			case eventShutdown:
				return
			}
		case <-ctx.Done():
			return
		case <-d.done:
			return
		}
	}
}
