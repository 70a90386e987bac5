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

import "context"

// CheckRunOutput is the free-form text shown on a forge check run.
type CheckRunOutput struct {
	Title   string
	Summary string
}

// forgeClient is the subset of forge operations the tick engine
// depends on. It is declared here, next to its only consumer, the
// way tide.Controller declares its own githubClient interface rather
// than depending on a concrete client type. Package forge provides
// the production implementation.
type forgeClient interface {
	// GetPullRequest fetches the forge's live view of the pull
	// request: head SHA, head label, title/body, and base branch.
	// The engine calls this immediately before a trial merge rather
	// than trusting the store's cached head SHA, which may be stale
	// if the author pushed since the last sync.
	GetPullRequest(ctx context.Context, repo Repository, number int) (ForgePullRequest, error)

	// GetBranchSHA returns the current head commit of branch.
	GetBranchSHA(ctx context.Context, repo Repository, branch string) (string, error)

	// SetBranchToSHA advances (or, if force, resets) branch to sha.
	// Returns a *BranchUpdateError on rejection.
	SetBranchToSHA(ctx context.Context, repo Repository, branch, sha string, force bool) error

	// MergeBranches merges head into branch, returning the resulting
	// commit SHA, or ErrMergeConflict if the merge cannot be made
	// cleanly.
	MergeBranches(ctx context.Context, repo Repository, branch, head, message string) (string, error)

	// CreateCheckRun starts an in-progress check run on sha and
	// returns its id.
	CreateCheckRun(ctx context.Context, repo Repository, sha string, externalID string) (int64, error)

	// CompleteCheckRun marks a check run completed with the given
	// conclusion ("success" or "failure") and output.
	CompleteCheckRun(ctx context.Context, repo Repository, checkRunID int64, conclusion string, output CheckRunOutput) error

	// CancelWorkflowRuns best-effort cancels the given workflow runs.
	CancelWorkflowRuns(ctx context.Context, repo Repository, runIDs []int64) error

	// WorkflowRunsForCommit lists workflow runs observed for sha.
	WorkflowRunsForCommit(ctx context.Context, repo Repository, sha string) ([]WorkflowRun, error)

	// PostComment posts a comment on a pull request.
	PostComment(ctx context.Context, repo Repository, number int, body string) error
}

// WorkflowRun is a forge-reported CI run, as distinct from the
// store's Workflow (which is keyed to a Build, not a commit).
type WorkflowRun struct {
	ID     int64
	Status string
}

// ForgePullRequest is the forge's live view of a pull request, as
// opposed to the store's denormalized PullRequest.
type ForgePullRequest struct {
	Number    int
	HeadSHA   string
	HeadLabel string
	Title     string
	Body      string
	Base      string
}
