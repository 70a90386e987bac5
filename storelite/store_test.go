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

package storelite

import (
	"context"
	"testing"

	"github.com/clarketm/bors/queue"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTripsPRAndBuild(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	repo := queue.Repository{Owner: "acme", Name: "widgets", MergeQueueEnabled: true}
	if err := s.AddRepository(ctx, repo); err != nil {
		t.Fatalf("AddRepository: %v", err)
	}

	pr := queue.PullRequest{
		Repo: repo, Number: 1, Base: "main", Head: "feature", HeadSHA: "deadbeef",
		Status: queue.PRStatusApproved, Mergeable: queue.Mergeable, Rollup: queue.RollupNever,
	}
	if err := s.UpsertPullRequest(ctx, pr); err != nil {
		t.Fatalf("UpsertPullRequest: %v", err)
	}

	prs, err := s.EligiblePRs(ctx, repo, 0)
	if err != nil {
		t.Fatalf("EligiblePRs: %v", err)
	}
	if len(prs) != 1 || prs[0].Number != 1 || prs[0].Build != nil {
		t.Fatalf("expected one buildless eligible pr, got %+v", prs)
	}

	build, err := s.AttachBuild(ctx, prs[0], queue.AutoBranch, "mergesha", "deadbeef")
	if err != nil {
		t.Fatalf("AttachBuild: %v", err)
	}
	if build.Status != queue.BuildPending {
		t.Fatalf("expected pending build, got %v", build.Status)
	}

	if err := s.SetBuildCheckRunID(ctx, build.ID, 42); err != nil {
		t.Fatalf("SetBuildCheckRunID: %v", err)
	}

	prs, err = s.EligiblePRs(ctx, repo, 0)
	if err != nil {
		t.Fatalf("EligiblePRs with pending build: %v", err)
	}
	if len(prs) != 1 || prs[0].Build == nil || prs[0].Build.CheckRunID != 42 {
		t.Fatalf("expected pr carrying its pending build, got %+v", prs)
	}

	if err := s.SetBuildStatus(ctx, build.ID, queue.BuildFailure); err != nil {
		t.Fatalf("SetBuildStatus: %v", err)
	}
	prs, err = s.EligiblePRs(ctx, repo, 0)
	if err != nil {
		t.Fatalf("EligiblePRs after failure: %v", err)
	}
	if len(prs) != 0 {
		t.Fatalf("a failed build should no longer make its pr eligible, got %+v", prs)
	}
}

func TestStoreMinPriorityFiltersEligiblePRs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := queue.Repository{Owner: "acme", Name: "widgets", MergeQueueEnabled: true}
	if err := s.AddRepository(ctx, repo); err != nil {
		t.Fatalf("AddRepository: %v", err)
	}

	for _, n := range []int{1, 2} {
		priority := 0
		if n == 2 {
			priority = 5
		}
		if err := s.UpsertPullRequest(ctx, queue.PullRequest{
			Repo: repo, Number: n, Base: "main", Head: "feature", HeadSHA: "sha",
			Status: queue.PRStatusApproved, Mergeable: queue.Mergeable, Priority: priority,
		}); err != nil {
			t.Fatalf("UpsertPullRequest %d: %v", n, err)
		}
	}

	prs, err := s.EligiblePRs(ctx, repo, 3)
	if err != nil {
		t.Fatalf("EligiblePRs: %v", err)
	}
	if len(prs) != 1 || prs[0].Number != 2 {
		t.Fatalf("expected only the high priority pr, got %+v", prs)
	}
}

func TestStoreRepoByNameNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RepoByName(context.Background(), "nobody", "nothing")
	if err != queue.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreSetPRStatusAndMergeable(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := queue.Repository{Owner: "acme", Name: "widgets"}
	if err := s.AddRepository(ctx, repo); err != nil {
		t.Fatalf("AddRepository: %v", err)
	}
	if err := s.UpsertPullRequest(ctx, queue.PullRequest{
		Repo: repo, Number: 1, Base: "main", Head: "feature", HeadSHA: "sha",
		Status: queue.PRStatusApproved, Mergeable: queue.Mergeable,
	}); err != nil {
		t.Fatalf("UpsertPullRequest: %v", err)
	}

	if err := s.SetPRMergeable(ctx, repo, 1, queue.HasConflicts); err != nil {
		t.Fatalf("SetPRMergeable: %v", err)
	}
	prs, err := s.EligiblePRs(ctx, repo, 0)
	if err != nil {
		t.Fatalf("EligiblePRs: %v", err)
	}
	if len(prs) != 0 {
		t.Fatalf("a conflicting pr should not be eligible, got %+v", prs)
	}

	if err := s.SetPRStatus(ctx, repo, 1, queue.PRStatusMerged); err != nil {
		t.Fatalf("SetPRStatus: %v", err)
	}
	if err := s.SetPRMergeable(ctx, repo, 1, queue.Mergeable); err != nil {
		t.Fatalf("SetPRMergeable: %v", err)
	}
	prs, err = s.EligiblePRs(ctx, repo, 0)
	if err != nil {
		t.Fatalf("EligiblePRs: %v", err)
	}
	if len(prs) != 0 {
		t.Fatalf("a merged pr should not be eligible, got %+v", prs)
	}
}
