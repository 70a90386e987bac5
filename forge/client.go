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
	"strings"

	gogithub "github.com/google/go-github/v82/github"

	"github.com/clarketm/bors/queue"
)

// GetPullRequest fetches the forge's current view of a pull request.
func (c *Client) GetPullRequest(ctx context.Context, repo queue.Repository, number int) (queue.ForgePullRequest, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return queue.ForgePullRequest{}, fmt.Errorf("forge: get pull request #%d: %w", number, err)
	}
	return queue.ForgePullRequest{
		Number:    number,
		HeadSHA:   pr.GetHead().GetSHA(),
		HeadLabel: pr.GetHead().GetLabel(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		Base:      pr.GetBase().GetRef(),
	}, nil
}

// GetBranchSHA returns the current head commit of branch.
func (c *Client) GetBranchSHA(ctx context.Context, repo queue.Repository, branch string) (string, error) {
	ref, _, err := c.gh.Git.GetRef(ctx, repo.Owner, repo.Name, "refs/heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("forge: get ref %s: %w", branch, err)
	}
	return ref.GetObject().GetSHA(), nil
}

// SetBranchToSHA advances, or with force resets, branch to sha. It
// classifies the forge's error response into the *queue.BranchUpdateError
// kinds the tick engine reacts to.
func (c *Client) SetBranchToSHA(ctx context.Context, repo queue.Repository, branch, sha string, force bool) error {
	if c.logDryRun(fmt.Sprintf("push %s to %s (force=%v)", sha, branch, force), map[string]interface{}{"repo": repo.FullName(), "branch": branch, "sha": sha}) {
		return nil
	}

	ref := &gogithub.Reference{
		Ref:    gogithub.Ptr("refs/heads/" + branch),
		Object: &gogithub.GitObject{SHA: gogithub.Ptr(sha)},
	}
	_, resp, err := c.gh.Git.UpdateRef(ctx, repo.Owner, repo.Name, ref, force)
	if err == nil {
		return nil
	}

	if resp != nil && resp.StatusCode == 422 && !force {
		return &queue.BranchUpdateError{Kind: "fast-forward-conflict", Cause: err}
	}
	if resp != nil && (resp.StatusCode == 403 || resp.StatusCode == 422) {
		return &queue.BranchUpdateError{Kind: "validation-failed", Message: err.Error(), Cause: err}
	}
	// Reference does not exist yet (first push to a never-created
	// branch): create it instead of updating.
	if resp != nil && resp.StatusCode == 404 {
		_, _, cerr := c.gh.Git.CreateRef(ctx, repo.Owner, repo.Name, ref)
		if cerr != nil {
			return &queue.BranchUpdateError{Cause: cerr}
		}
		return nil
	}
	return &queue.BranchUpdateError{Cause: err}
}

// MergeBranches merges head into branch, returning the resulting
// commit SHA, or queue.ErrMergeConflict if the merge has conflicts.
func (c *Client) MergeBranches(ctx context.Context, repo queue.Repository, branch, head, message string) (string, error) {
	if c.logDryRun(fmt.Sprintf("merge %s into %s", head, branch), map[string]interface{}{"repo": repo.FullName(), "branch": branch, "head": head}) {
		return "dry-run-merge-sha", nil
	}

	req := &gogithub.RepositoryMergeRequest{
		Base:          gogithub.Ptr(branch),
		Head:          gogithub.Ptr(head),
		CommitMessage: gogithub.Ptr(message),
	}
	commit, resp, err := c.gh.Repositories.Merge(ctx, repo.Owner, repo.Name, req)
	if resp != nil && resp.StatusCode == 409 {
		return "", queue.ErrMergeConflict
	}
	if err != nil {
		return "", fmt.Errorf("forge: merge %s into %s: %w", head, branch, err)
	}
	return commit.GetSHA(), nil
}

// CreateCheckRun starts an in-progress check run named
// queue.CheckRunName on sha.
func (c *Client) CreateCheckRun(ctx context.Context, repo queue.Repository, sha string, externalID string) (int64, error) {
	if c.logDryRun("create check run", map[string]interface{}{"repo": repo.FullName(), "sha": sha}) {
		return 0, nil
	}
	opts := gogithub.CreateCheckRunOptions{
		Name:       queue.CheckRunName,
		HeadSHA:    sha,
		Status:     gogithub.Ptr("in_progress"),
		ExternalID: gogithub.Ptr(externalID),
	}
	run, _, err := c.gh.Checks.CreateCheckRun(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		return 0, fmt.Errorf("forge: create check run: %w", err)
	}
	return run.GetID(), nil
}

// CompleteCheckRun marks a check run completed with conclusion
// ("success" or "failure").
func (c *Client) CompleteCheckRun(ctx context.Context, repo queue.Repository, checkRunID int64, conclusion string, output queue.CheckRunOutput) error {
	if c.logDryRun("complete check run", map[string]interface{}{"repo": repo.FullName(), "check_run_id": checkRunID, "conclusion": conclusion}) {
		return nil
	}
	opts := gogithub.UpdateCheckRunOptions{
		Name:       queue.CheckRunName,
		Status:     gogithub.Ptr("completed"),
		Conclusion: gogithub.Ptr(conclusion),
		Output: &gogithub.CheckRunOutput{
			Title:   gogithub.Ptr(output.Title),
			Summary: gogithub.Ptr(output.Summary),
		},
	}
	_, _, err := c.gh.Checks.UpdateCheckRun(ctx, repo.Owner, repo.Name, checkRunID, opts)
	if err != nil {
		return fmt.Errorf("forge: complete check run %d: %w", checkRunID, err)
	}
	return nil
}

// CancelWorkflowRuns best-effort cancels the given workflow runs.
// Individual failures are collected and returned together rather than
// aborting on the first one, since rollback should cancel as many
// orphaned runs as possible.
func (c *Client) CancelWorkflowRuns(ctx context.Context, repo queue.Repository, runIDs []int64) error {
	var errs []string
	for _, id := range runIDs {
		if c.logDryRun(fmt.Sprintf("cancel workflow run %d", id), map[string]interface{}{"repo": repo.FullName()}) {
			continue
		}
		if _, err := c.gh.Actions.CancelWorkflowRunByID(ctx, repo.Owner, repo.Name, id); err != nil {
			errs = append(errs, fmt.Sprintf("run %d: %v", id, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("forge: cancel workflow runs: %s", strings.Join(errs, "; "))
	}
	return nil
}

// WorkflowRunsForCommit lists workflow runs observed for sha.
func (c *Client) WorkflowRunsForCommit(ctx context.Context, repo queue.Repository, sha string) ([]queue.WorkflowRun, error) {
	opts := &gogithub.ListWorkflowRunsOptions{
		HeadSHA:     sha,
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}
	var out []queue.WorkflowRun
	for {
		runs, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("forge: list workflow runs for %s: %w", sha, err)
		}
		for _, r := range runs.WorkflowRuns {
			out = append(out, queue.WorkflowRun{ID: r.GetID(), Status: r.GetStatus()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// PostComment posts a comment on a pull request's issue thread (the
// forge models PR conversations as issue comments).
func (c *Client) PostComment(ctx context.Context, repo queue.Repository, number int, body string) error {
	if c.logDryRun("post comment", map[string]interface{}{"repo": repo.FullName(), "pr": number}) {
		c.log.Info(body)
		return nil
	}
	comment := &gogithub.IssueComment{Body: gogithub.Ptr(body)}
	_, _, err := c.gh.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, comment)
	if err != nil {
		return fmt.Errorf("forge: post comment on #%d: %w", number, err)
	}
	return nil
}
