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

package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTriggerer struct{ n int64 }

func (c *countingTriggerer) Trigger() { atomic.AddInt64(&c.n, 1) }

func TestSchedulerFiresPeriodically(t *testing.T) {
	target := &countingTriggerer{}
	s, err := New(nil, 20*time.Millisecond, target)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(&target.n) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, atomic.LoadInt64(&target.n), int64(2))
}

func TestSchedulerRejectsNonPositivePeriod(t *testing.T) {
	_, err := New(nil, 0, &countingTriggerer{})
	require.Error(t, err)
}
