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

package storepg

import (
	"context"
	"os"
	"testing"

	"github.com/clarketm/bors/queue"
)

// openTestStore connects to the Postgres instance named by
// BORS_TEST_DATABASE_URL, applying schema.sql and truncating every
// table first. Skipped when no URL is configured, since this package
// has no embedded Postgres of its own to spin up.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("BORS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BORS_TEST_DATABASE_URL not set, skipping storepg integration test")
	}

	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)

	schema, err := os.ReadFile("schema.sql")
	if err != nil {
		t.Fatalf("read schema.sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	for _, table := range []string{"workflows", "builds", "pull_requests", "repositories"} {
		if _, err := s.pool.Exec(ctx, "TRUNCATE "+table+" CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return s
}

func TestStoreRoundTripsPRAndBuild(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.pool.Exec(ctx, `INSERT INTO repositories (owner, name, merge_queue_enabled, min_priority) VALUES ($1, $2, $3, $4)`,
		"acme", "widgets", true, 0); err != nil {
		t.Fatalf("seed repository: %v", err)
	}
	repo := queue.Repository{Owner: "acme", Name: "widgets", MergeQueueEnabled: true}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO pull_requests (repo_owner, repo_name, number, base, head, head_sha, status, mergeable, priority, rollup)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		"acme", "widgets", 1, "main", "feature", "deadbeef", queue.PRStatusApproved, queue.Mergeable, 0, queue.RollupNever); err != nil {
		t.Fatalf("seed pr: %v", err)
	}

	prs, err := s.EligiblePRs(ctx, repo, 0)
	if err != nil {
		t.Fatalf("EligiblePRs: %v", err)
	}
	if len(prs) != 1 || prs[0].Number != 1 {
		t.Fatalf("expected one eligible pr, got %+v", prs)
	}

	build, err := s.AttachBuild(ctx, prs[0], "automation/bors/auto", "mergesha", "deadbeef")
	if err != nil {
		t.Fatalf("AttachBuild: %v", err)
	}
	if build.Status != queue.BuildPending {
		t.Fatalf("expected pending build, got %v", build.Status)
	}

	if err := s.SetBuildCheckRunID(ctx, build.ID, 42); err != nil {
		t.Fatalf("SetBuildCheckRunID: %v", err)
	}
	if err := s.SetBuildStatus(ctx, build.ID, queue.BuildSuccess); err != nil {
		t.Fatalf("SetBuildStatus: %v", err)
	}

	prs, err = s.EligiblePRs(ctx, repo, 0)
	if err != nil {
		t.Fatalf("EligiblePRs after build: %v", err)
	}
	if len(prs) != 1 || prs[0].Build == nil || prs[0].Build.Status != queue.BuildSuccess || prs[0].Build.CheckRunID != 42 {
		t.Fatalf("expected pr carrying a successful build, got %+v", prs)
	}
}

func TestStoreRepoByNameNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RepoByName(context.Background(), "nobody", "nothing")
	if err != queue.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
