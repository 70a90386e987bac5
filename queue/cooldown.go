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
	"sync"
	"time"
)

// Cooldown durations used by the tick engine. Exact values matter:
// they come from the original bors implementation this module's
// behaviour is modelled on.
const (
	CooldownFastForwardConflict = 5 * time.Second
	CooldownValidationFailed    = 10 * time.Second
	CooldownStoreFailure        = 60 * time.Second
)

// cooldowns tracks, per repository, the deadline before which the
// tick engine should skip that repository. It uses a monotonic clock
// (time.Now's monotonic reading) so wall-clock adjustments cannot
// shorten or extend a cooldown.
type cooldowns struct {
	mu        sync.Mutex
	deadlines map[string]time.Time

	// onCooldownSet is invoked (outside the lock) with the duration
	// every time a cooldown is set, so the driver can schedule a
	// delayed re-trigger. Nil is a valid no-op.
	onCooldownSet func(repo string, d time.Duration)
}

func newCooldowns(onSet func(repo string, d time.Duration)) *cooldowns {
	return &cooldowns{
		deadlines:     make(map[string]time.Time),
		onCooldownSet: onSet,
	}
}

// set records a cooldown for repo lasting d from now, and schedules a
// delayed trigger so the queue wakes up once it elapses.
func (c *cooldowns) set(repo string, d time.Duration) {
	c.mu.Lock()
	c.deadlines[repo] = time.Now().Add(d)
	c.mu.Unlock()

	if c.onCooldownSet != nil {
		c.onCooldownSet(repo, d)
	}
}

// active reports whether repo is currently in cooldown.
func (c *cooldowns) active(repo string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, ok := c.deadlines[repo]
	if !ok {
		return false
	}
	return time.Now().Before(deadline)
}
