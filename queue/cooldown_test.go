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
	"testing"
	"time"
)

func TestCooldownsActive(t *testing.T) {
	var gotRepo string
	var gotDur time.Duration
	c := newCooldowns(func(repo string, d time.Duration) {
		gotRepo, gotDur = repo, d
	})

	if c.active("acme/widgets") {
		t.Fatal("repo should not be in cooldown before set")
	}

	c.set("acme/widgets", 50*time.Millisecond)
	if !c.active("acme/widgets") {
		t.Fatal("repo should be in cooldown immediately after set")
	}
	if gotRepo != "acme/widgets" || gotDur != 50*time.Millisecond {
		t.Fatalf("onCooldownSet callback got (%q, %v)", gotRepo, gotDur)
	}

	time.Sleep(75 * time.Millisecond)
	if c.active("acme/widgets") {
		t.Fatal("cooldown should have expired")
	}
}
