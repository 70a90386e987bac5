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
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Metrics receives observations from the tick engine. A nil Metrics is
// replaced with a no-op, so callers that don't care about Prometheus
// never need to check for nil themselves.
type Metrics interface {
	ObserveTick(repo, outcome string, d time.Duration)
	ObserveBuildStarted(repo string)
	ObserveBuildCompleted(repo, status string)
	ObserveCooldown(repo string)
	SetQueueDepth(repo string, depth int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTick(string, string, time.Duration) {}
func (noopMetrics) ObserveBuildStarted(string)                {}
func (noopMetrics) ObserveBuildCompleted(string, string)      {}
func (noopMetrics) ObserveCooldown(string)                    {}
func (noopMetrics) SetQueueDepth(string, int)                 {}

// Engine runs one tick at a time across every configured repository,
// picking a candidate PR per repository and driving it through the
// auto-build lifecycle: trial merge, push, build tracking, and
// fast-forward on success.
type Engine struct {
	logger  *logrus.Entry
	store   Store
	forge   forgeClient
	cool    *cooldowns
	bcast   *Broadcaster
	metrics Metrics

	repos []Repository
}

// NewEngine builds an Engine over a fixed set of repositories. onCooldown
// is invoked whenever a repository enters cooldown so the caller (the
// Driver) can schedule a delayed re-trigger; it may be nil. metrics may
// also be nil.
func NewEngine(logger *logrus.Entry, store Store, forge forgeClient, repos []Repository, onCooldown func(repo string, d time.Duration), metrics Metrics) *Engine {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Engine{
		logger:  logger.WithField("component", "engine"),
		store:   store,
		forge:   forge,
		cool:    newCooldowns(onCooldown),
		bcast:   NewBroadcaster(),
		metrics: metrics,
		repos:   repos,
	}
}

// Snapshots returns the broadcaster dashboards and borsctl subscribe
// to for live Pool updates.
func (e *Engine) Snapshots() *Broadcaster { return e.bcast }

// Tick runs exactly one selection+action pass over every repository.
// It never returns an error for a single repository's failure; those
// are logged and the engine moves on, so one broken repository cannot
// wedge the others.
func (e *Engine) Tick(ctx context.Context) error {
	for _, repo := range e.repos {
		e.tickRepo(ctx, repo)
	}
	return nil
}

func (e *Engine) tickRepo(ctx context.Context, repo Repository) {
	log := e.logger.WithField("repo", repo.FullName())
	started := time.Now()
	outcome := "none"
	defer func() { e.metrics.ObserveTick(repo.FullName(), outcome, time.Since(started)) }()

	if e.cool.active(repo.FullName()) {
		log.Debug("repository is in cooldown, skipping")
		outcome = "cooldown"
		return
	}
	if !repo.MergeQueueEnabled {
		outcome = "disabled"
		return
	}

	rec, err := e.store.RepoByName(ctx, repo.Owner, repo.Name)
	if err != nil {
		log.WithError(err).Warn("no repository record, skipping")
		outcome = "error"
		return
	}

	candidates, err := e.store.EligiblePRs(ctx, rec, rec.MinPriority)
	if err != nil {
		log.WithError(err).Error("failed to list eligible pull requests")
		outcome = "error"
		return
	}
	e.metrics.SetQueueDepth(repo.FullName(), len(candidates))

	pr, ok := pickCandidate(candidates)
	if !ok {
		e.bcast.Publish(Pool{Repo: repo.FullName(), Action: ActionNone, Ticked: time.Now()})
		return
	}
	log = log.WithField("pr", pr.Number)
	outcome = "active"

	if pr.Build != nil {
		e.resolveBuild(ctx, log, rec, pr)
		return
	}
	e.startBuild(ctx, log, rec, pr)
}

// resolveBuild handles a PR that already has an in-flight or
// completed build.
func (e *Engine) resolveBuild(ctx context.Context, log *logrus.Entry, repo Repository, pr PullRequest) {
	switch pr.Build.Status {
	case BuildPending:
		log.Debug("build still pending, leaving queue blocked on this pull request")
		e.bcast.Publish(Pool{Repo: repo.FullName(), Action: ActionWaitPending, Candidate: pr.Number, Ticked: time.Now()})

	case BuildSuccess:
		e.completeSuccessfulBuild(ctx, log, repo, pr)

	case BuildFailure, BuildCancelled, BuildTimeouted:
		// The store's EligiblePRs query is documented to exclude PRs
		// whose build is in a terminal failure/cancelled/timeouted
		// state; reaching here means that contract was violated.
		panic(fmt.Sprintf("queue: EligiblePRs returned pr #%d with terminal build status %s", pr.Number, pr.Build.Status))

	default:
		panic(fmt.Sprintf("queue: unknown build status %v for pr #%d", pr.Build.Status, pr.Number))
	}
}

func (e *Engine) completeSuccessfulBuild(ctx context.Context, log *logrus.Entry, repo Repository, pr PullRequest) {
	build := pr.Build
	workflows, err := e.store.WorkflowsForBuild(ctx, build.ID)
	if err != nil {
		log.WithError(err).Warn("failed to load workflows for successful build")
	}
	successComment := commentBuildSuccess(workflows, pr.Approver, build.MergeSHA, pr.Base)
	if err := e.forge.PostComment(ctx, repo, pr.Number, successComment); err != nil {
		log.WithError(err).Warn("failed to post success comment")
	}

	err = e.forge.SetBranchToSHA(ctx, repo, pr.Base, build.MergeSHA, false)
	switch {
	case err == nil:
		if serr := e.store.SetPRStatus(ctx, repo, pr.Number, PRStatusMerged); serr != nil {
			log.WithError(serr).Error("fast-forward succeeded but failed to record pull request as merged")
			e.cool.set(repo.FullName(), CooldownStoreFailure)
			e.metrics.ObserveCooldown(repo.FullName())
			return
		}
		e.metrics.ObserveBuildCompleted(repo.FullName(), BuildSuccess.String())
		e.bcast.Publish(Pool{Repo: repo.FullName(), Action: ActionFastForward, Candidate: pr.Number, Ticked: time.Now()})

	case IsFastForwardConflict(err):
		log.Debug("base branch advanced concurrently, will retry")
		e.cool.set(repo.FullName(), CooldownFastForwardConflict)
		e.metrics.ObserveCooldown(repo.FullName())

	case IsValidationFailed(err):
		log.WithError(err).Warn("fast-forward rejected by forge validation")
		e.cool.set(repo.FullName(), CooldownValidationFailed)
		e.metrics.ObserveCooldown(repo.FullName())
		e.failBuild(ctx, log, repo, pr, build, err)

	default:
		log.WithError(err).Error("fast-forward failed")
		e.failBuild(ctx, log, repo, pr, build, err)
	}
}

func (e *Engine) failBuild(ctx context.Context, log *logrus.Entry, repo Repository, pr PullRequest, build *Build, cause error) {
	e.metrics.ObserveBuildCompleted(repo.FullName(), BuildFailure.String())
	if err := e.store.SetBuildStatus(ctx, build.ID, BuildFailure); err != nil {
		log.WithError(err).Error("failed to mark build as failed")
	}
	if build.CheckRunID != 0 {
		out := CheckRunOutput{Title: "Fast-forward failed", Summary: cause.Error()}
		if err := e.forge.CompleteCheckRun(ctx, repo, build.CheckRunID, "failure", out); err != nil {
			log.WithError(err).Warn("failed to complete check run")
		}
	}
	if err := e.forge.PostComment(ctx, repo, pr.Number, commentPushFailed(cause)); err != nil {
		log.WithError(err).Warn("failed to post push-failed comment")
	}
}

// startBuild drives a PR with no existing build through a trial
// merge and, on success, a push to AutoBranch. It re-fetches the pull
// request from the forge first and merges/comments/check-runs against
// that live head SHA, not the possibly-stale one cached in the store,
// since the author may have pushed since the last store sync.
func (e *Engine) startBuild(ctx context.Context, log *logrus.Entry, repo Repository, pr PullRequest) {
	forgePR, err := e.forge.GetPullRequest(ctx, repo, pr.Number)
	if err != nil {
		log.WithError(err).Error("failed to fetch pull request from forge")
		return
	}
	headSHA := forgePR.HeadSHA

	mergeSHA, err := e.attemptMerge(ctx, repo, pr, headSHA)
	if err != nil {
		if err == ErrMergeConflict {
			buildErr := &autoBuildStartError{kind: errMergeConflicts, cause: err}
			if serr := e.store.SetPRMergeable(ctx, repo, pr.Number, HasConflicts); serr != nil {
				log.WithError(&autoBuildStartError{kind: errFailedToMarkAsConflicted, cause: serr}).Error(buildErr.Error())
			}
			if cerr := e.forge.PostComment(ctx, repo, pr.Number, commentMergeConflict(headSHA)); cerr != nil {
				log.WithError(cerr).Warn("failed to post merge-conflict comment")
			}
			e.bcast.Publish(Pool{Repo: repo.FullName(), Action: ActionMergeConflict, Candidate: pr.Number, Ticked: time.Now()})
			return
		}
		log.WithError(&autoBuildStartError{kind: errFailedToMerge, cause: err}).Error("failed to merge pull request")
		return
	}

	base, err := e.forge.GetBranchSHA(ctx, repo, pr.Base)
	if err != nil {
		log.WithError(err).Error("failed to read base branch head")
		return
	}

	if err := e.forge.SetBranchToSHA(ctx, repo, AutoBranch, mergeSHA, true); err != nil {
		buildErr := &autoBuildStartError{kind: errFailedToPush, mergeSHA: mergeSHA, cause: err}
		log.Error(buildErr.Error())
		if cerr := e.forge.PostComment(ctx, repo, pr.Number, commentPushToAutoFailed(mergeSHA, AutoBranch, err)); cerr != nil {
			log.WithError(cerr).Warn("failed to post push-to-auto-failed comment")
		}
		return
	}

	build, err := e.store.AttachBuild(ctx, pr, AutoBranch, mergeSHA, base)
	if err != nil {
		buildErr := &autoBuildStartError{kind: errFailedToRecordBuild, mergeSHA: mergeSHA, cause: err}
		log.Error(buildErr.Error() + ", rolling back auto branch")
		e.rollbackAutoBranch(ctx, log, repo, mergeSHA, base)
		return
	}
	e.metrics.ObserveBuildStarted(repo.FullName())

	if checkRunID, err := e.forge.CreateCheckRun(ctx, repo, headSHA, build.ID); err != nil {
		log.WithError(err).Warn("failed to create check run, build will proceed without one")
	} else if err := e.store.SetBuildCheckRunID(ctx, build.ID, checkRunID); err != nil {
		log.WithError(err).Warn("failed to persist check run id")
	}

	if err := e.forge.PostComment(ctx, repo, pr.Number, commentAutoBuildStarted(headSHA, mergeSHA)); err != nil {
		log.WithError(err).Warn("failed to post auto-build-started comment")
	}
	e.bcast.Publish(Pool{Repo: repo.FullName(), Action: ActionStartBuild, Candidate: pr.Number, Ticked: time.Now()})
}

// attemptMerge stages the base branch, then asks the forge to merge
// headSHA (the pull request's live head, fetched by the caller) into
// it.
func (e *Engine) attemptMerge(ctx context.Context, repo Repository, pr PullRequest, headSHA string) (string, error) {
	baseSHA, err := e.forge.GetBranchSHA(ctx, repo, pr.Base)
	if err != nil {
		return "", fmt.Errorf("reading base branch: %w", err)
	}
	if err := e.forge.SetBranchToSHA(ctx, repo, StagingBranch, baseSHA, true); err != nil {
		return "", fmt.Errorf("staging base branch: %w", err)
	}
	message := fmt.Sprintf("Auto merge of #%d - %s, r=%s", pr.Number, repo.FullName(), pr.Approver)
	return e.forge.MergeBranches(ctx, repo, StagingBranch, headSHA, message)
}

// rollbackAutoBranch cancels any workflow runs the forge may have
// already started for the orphaned trial merge, then resets
// AutoBranch back to base so no orphan commit lingers.
func (e *Engine) rollbackAutoBranch(ctx context.Context, log *logrus.Entry, repo Repository, mergeSHA, base string) {
	runs, err := e.forge.WorkflowRunsForCommit(ctx, repo, mergeSHA)
	if err != nil {
		log.WithError(err).Warn("failed to list workflow runs for rollback")
	} else if len(runs) > 0 {
		ids := make([]int64, len(runs))
		for i, r := range runs {
			ids[i] = r.ID
		}
		if err := e.forge.CancelWorkflowRuns(ctx, repo, ids); err != nil {
			log.WithError(err).Warn("failed to cancel workflow runs during rollback")
		}
	}
	if err := e.forge.SetBranchToSHA(ctx, repo, AutoBranch, base, true); err != nil {
		log.WithError(err).Error("failed to reset auto branch during rollback")
	}
}
