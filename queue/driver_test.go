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
	"sync/atomic"
	"testing"
	"time"
)

type countingTicker struct {
	n int64
}

func (c *countingTicker) Tick(_ context.Context) error {
	atomic.AddInt64(&c.n, 1)
	return nil
}

func TestDriverRunsTicksSequentially(t *testing.T) {
	ct := &countingTicker{}
	d := NewDriver(nil, ct)

	go d.Run(context.Background())

	d.Trigger()
	d.Trigger()

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt64(&ct.n) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt64(&ct.n); got != 2 {
		t.Fatalf("expected 2 ticks, got %d", got)
	}

	d.Shutdown()
}

func TestDriverTriggerAfter(t *testing.T) {
	ct := &countingTicker{}
	d := NewDriver(nil, ct)
	go d.Run(context.Background())
	defer d.Shutdown()

	d.TriggerAfter(20 * time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt64(&ct.n) < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt64(&ct.n); got != 1 {
		t.Fatalf("expected 1 tick from delayed trigger, got %d", got)
	}
}
