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
	"errors"
)

// ErrNotFound is returned by Store lookups that find nothing.
var ErrNotFound = errors.New("queue: not found")

// Store is the persistence contract the tick engine depends on. The
// production implementation is backed by Postgres (package storepg);
// package storelite provides an identical sqlite-backed
// implementation for local development and tests.
type Store interface {
	// RepoByName returns the repository record, or ErrNotFound.
	RepoByName(ctx context.Context, owner, name string) (Repository, error)

	// EligiblePRs returns PRs in repo that are approved, not yet
	// merged or closed, not known to have conflicts, and whose
	// priority is at least minPriority, together with any build
	// already attached. Excludes PRs whose build is in a terminal
	// failure/cancelled/timeouted state.
	EligiblePRs(ctx context.Context, repo Repository, minPriority int) ([]PullRequest, error)

	// WorkflowsForBuild returns the CI runs recorded against a build.
	WorkflowsForBuild(ctx context.Context, buildID string) ([]Workflow, error)

	// AttachBuild creates a new pending Build for pr and returns it.
	AttachBuild(ctx context.Context, pr PullRequest, branch, mergeSHA, parentSHA string) (Build, error)

	// SetBuildCheckRunID records the forge check-run id for a build.
	SetBuildCheckRunID(ctx context.Context, buildID string, checkRunID int64) error

	// SetBuildStatus transitions a build's status.
	SetBuildStatus(ctx context.Context, buildID string, status BuildStatus) error

	// SetPRMergeable records the forge's mergeability verdict.
	SetPRMergeable(ctx context.Context, repo Repository, number int, state MergeableState) error

	// SetPRStatus records a PR lifecycle transition (used to mark a
	// PR merged after a successful fast-forward).
	SetPRStatus(ctx context.Context, repo Repository, number int, status PRStatus) error
}
