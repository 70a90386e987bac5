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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bors.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsSyncPeriod(t *testing.T) {
	path := writeConfig(t, `
github_token: tok
repos:
  - owner: acme
    name: widgets
    merge_queue_enabled: true
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SyncPeriod != defaultSyncPeriod {
		t.Fatalf("expected default sync period, got %v", c.SyncPeriod)
	}
	if c.Store.Driver != "sqlite" {
		t.Fatalf("expected default store driver sqlite, got %q", c.Store.Driver)
	}
}

func TestLoadParsesSyncPeriod(t *testing.T) {
	path := writeConfig(t, `
sync_period: 30s
repos: []
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SyncPeriod.String() != "30s" {
		t.Fatalf("expected 30s, got %v", c.SyncPeriod)
	}
}

func TestLoadRejectsUnknownStoreDriver(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: mongo
repos: []
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown store driver")
	}
}

func TestLoadRejectsDuplicateRepo(t *testing.T) {
	path := writeConfig(t, `
repos:
  - owner: acme
    name: widgets
  - owner: acme
    name: widgets
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a duplicate repo entry")
	}
}

func TestRepositoriesConversion(t *testing.T) {
	c := &Config{Repos: []RepoConfig{
		{Owner: "acme", Name: "widgets", MergeQueueEnabled: true, MinPriority: 2},
	}}
	repos := c.Repositories()
	if len(repos) != 1 || repos[0].FullName() != "acme/widgets" || repos[0].MinPriority != 2 {
		t.Fatalf("unexpected conversion: %+v", repos)
	}
}
