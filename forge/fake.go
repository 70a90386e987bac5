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

package forge

import (
	"context"
	"fmt"
	"sync"

	"github.com/clarketm/bors/queue"
)

// Fake is an in-memory forge used by tests. It performs no network
// calls at all, unlike Client in dry-run mode, which still talks to
// the real API for reads.
type Fake struct {
	mu sync.Mutex

	Branches     map[string]string                 // "owner/name:branch" -> sha
	PullRequests map[string]queue.ForgePullRequest // "owner/name#number" -> pr
	Comments     map[string][]string
	CheckRuns    map[int64]*fakeCheckRun
	nextCheck    int64

	// MergeResult, keyed by head SHA, lets tests force a specific
	// merge outcome (a SHA, or queue.ErrMergeConflict).
	MergeResult map[string]fakeMergeResult

	// FailSetBranch, keyed by "owner/name:branch", forces SetBranchToSHA
	// to return the given error for that branch.
	FailSetBranch map[string]error
}

type fakeCheckRun struct {
	Repo       string
	HeadSHA    string
	ExternalID string
	Conclusion string
}

type fakeMergeResult struct {
	SHA string
	Err error
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		Branches:      make(map[string]string),
		PullRequests:  make(map[string]queue.ForgePullRequest),
		Comments:      make(map[string][]string),
		CheckRuns:     make(map[int64]*fakeCheckRun),
		MergeResult:   make(map[string]fakeMergeResult),
		FailSetBranch: make(map[string]error),
	}
}

func branchKey(repo queue.Repository, branch string) string {
	return repo.FullName() + ":" + branch
}

func prKey(repo queue.Repository, number int) string {
	return fmt.Sprintf("%s#%d", repo.FullName(), number)
}

// GetPullRequest returns the preset ForgePullRequest for number, keyed
// by repo and number in PullRequests.
func (f *Fake) GetPullRequest(_ context.Context, repo queue.Repository, number int) (queue.ForgePullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.PullRequests[prKey(repo, number)]
	if !ok {
		return queue.ForgePullRequest{}, fmt.Errorf("forge fake: unknown pull request %s", prKey(repo, number))
	}
	return pr, nil
}

func (f *Fake) GetBranchSHA(_ context.Context, repo queue.Repository, branch string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sha, ok := f.Branches[branchKey(repo, branch)]
	if !ok {
		return "", fmt.Errorf("forge fake: unknown branch %s", branchKey(repo, branch))
	}
	return sha, nil
}

func (f *Fake) SetBranchToSHA(_ context.Context, repo queue.Repository, branch, sha string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailSetBranch[branchKey(repo, branch)]; ok {
		return err
	}
	f.Branches[branchKey(repo, branch)] = sha
	return nil
}

func (f *Fake) MergeBranches(_ context.Context, repo queue.Repository, branch, head, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.MergeResult[head]; ok {
		if r.Err != nil {
			return "", r.Err
		}
		f.Branches[branchKey(repo, branch)] = r.SHA
		return r.SHA, nil
	}
	sha := "merge-" + head
	f.Branches[branchKey(repo, branch)] = sha
	return sha, nil
}

func (f *Fake) CreateCheckRun(_ context.Context, repo queue.Repository, sha string, externalID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCheck++
	f.CheckRuns[f.nextCheck] = &fakeCheckRun{Repo: repo.FullName(), HeadSHA: sha, ExternalID: externalID}
	return f.nextCheck, nil
}

func (f *Fake) CompleteCheckRun(_ context.Context, _ queue.Repository, checkRunID int64, conclusion string, _ queue.CheckRunOutput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if run, ok := f.CheckRuns[checkRunID]; ok {
		run.Conclusion = conclusion
	}
	return nil
}

func (f *Fake) CancelWorkflowRuns(_ context.Context, _ queue.Repository, _ []int64) error {
	return nil
}

func (f *Fake) WorkflowRunsForCommit(_ context.Context, _ queue.Repository, _ string) ([]queue.WorkflowRun, error) {
	return nil, nil
}

func (f *Fake) PostComment(_ context.Context, repo queue.Repository, number int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s#%d", repo.FullName(), number)
	f.Comments[key] = append(f.Comments[key], body)
	return nil
}
