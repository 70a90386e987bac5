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

// Package storepg is the production Queue Store, backed by Postgres
// via jackc/pgx. It is a straight SQL implementation of queue.Store,
// in the same hand-rolled, no-ORM style as this codebase's own forge
// client.
package storepg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clarketm/bors/queue"
)

// Store implements queue.Store against a Postgres pool holding the
// repositories/pull_requests/builds/workflows schema described in
// schema.sql.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres using dsn (a libpq connection string or
// URL) and returns a ready Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storepg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storepg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

func (s *Store) RepoByName(ctx context.Context, owner, name string) (queue.Repository, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT owner, name, merge_queue_enabled, min_priority
		FROM repositories WHERE owner = $1 AND name = $2`, owner, name)

	var r queue.Repository
	if err := row.Scan(&r.Owner, &r.Name, &r.MergeQueueEnabled, &r.MinPriority); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.Repository{}, queue.ErrNotFound
		}
		return queue.Repository{}, fmt.Errorf("storepg: repo by name: %w", err)
	}
	return r, nil
}

func (s *Store) EligiblePRs(ctx context.Context, repo queue.Repository, minPriority int) ([]queue.PullRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pr.number, pr.base, pr.head, pr.head_sha, pr.approver, pr.priority,
		       pr.rollup, pr.status, pr.mergeable,
		       b.id, b.branch, b.merge_sha, b.parent_sha, b.status, b.check_run_id
		FROM pull_requests pr
		LEFT JOIN builds b ON b.id = pr.current_build_id
		WHERE pr.repo_owner = $1 AND pr.repo_name = $2
		  AND pr.status = $3
		  AND pr.mergeable != $4
		  AND pr.priority >= $5
		  AND (b.id IS NULL OR b.status = ANY($6))`,
		repo.Owner, repo.Name, queue.PRStatusApproved, queue.HasConflicts, minPriority,
		[]queue.BuildStatus{queue.BuildPending, queue.BuildSuccess})
	if err != nil {
		return nil, fmt.Errorf("storepg: eligible prs: %w", err)
	}
	defer rows.Close()

	var out []queue.PullRequest
	for rows.Next() {
		pr := queue.PullRequest{Repo: repo}
		var (
			buildID                      *string
			branch, mergeSHA, parentSHA  *string
			buildStatus                  *queue.BuildStatus
			checkRunID                   *int64
		)
		if err := rows.Scan(&pr.Number, &pr.Base, &pr.Head, &pr.HeadSHA, &pr.Approver, &pr.Priority,
			&pr.Rollup, &pr.Status, &pr.Mergeable,
			&buildID, &branch, &mergeSHA, &parentSHA, &buildStatus, &checkRunID); err != nil {
			return nil, fmt.Errorf("storepg: scan eligible pr: %w", err)
		}
		if buildID != nil {
			pr.Build = &queue.Build{
				ID: *buildID, PRNumber: pr.Number,
			}
			if branch != nil {
				pr.Build.Branch = *branch
			}
			if mergeSHA != nil {
				pr.Build.MergeSHA = *mergeSHA
			}
			if parentSHA != nil {
				pr.Build.ParentSHA = *parentSHA
			}
			if buildStatus != nil {
				pr.Build.Status = *buildStatus
			}
			if checkRunID != nil {
				pr.Build.CheckRunID = *checkRunID
			}
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (s *Store) WorkflowsForBuild(ctx context.Context, buildID string) ([]queue.Workflow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, url, status FROM workflows WHERE build_id = $1 ORDER BY id`, buildID)
	if err != nil {
		return nil, fmt.Errorf("storepg: workflows for build: %w", err)
	}
	defer rows.Close()

	var out []queue.Workflow
	for rows.Next() {
		var w queue.Workflow
		if err := rows.Scan(&w.ID, &w.Name, &w.URL, &w.Status); err != nil {
			return nil, fmt.Errorf("storepg: scan workflow: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) AttachBuild(ctx context.Context, pr queue.PullRequest, branch, mergeSHA, parentSHA string) (queue.Build, error) {
	b := queue.Build{
		ID:        uuid.NewString(),
		PRNumber:  pr.Number,
		Branch:    branch,
		MergeSHA:  mergeSHA,
		ParentSHA: parentSHA,
		Status:    queue.BuildPending,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return queue.Build{}, fmt.Errorf("storepg: attach build: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO builds (id, repo_owner, repo_name, pr_number, branch, merge_sha, parent_sha, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, pr.Repo.Owner, pr.Repo.Name, pr.Number, branch, mergeSHA, parentSHA, queue.BuildPending); err != nil {
		return queue.Build{}, fmt.Errorf("storepg: insert build: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE pull_requests SET current_build_id = $1
		WHERE repo_owner = $2 AND repo_name = $3 AND number = $4`,
		b.ID, pr.Repo.Owner, pr.Repo.Name, pr.Number); err != nil {
		return queue.Build{}, fmt.Errorf("storepg: attach build to pr: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return queue.Build{}, fmt.Errorf("storepg: attach build: commit: %w", err)
	}
	return b, nil
}

func (s *Store) SetBuildCheckRunID(ctx context.Context, buildID string, checkRunID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE builds SET check_run_id = $1 WHERE id = $2`, checkRunID, buildID)
	if err != nil {
		return fmt.Errorf("storepg: set check run id: %w", err)
	}
	return nil
}

func (s *Store) SetBuildStatus(ctx context.Context, buildID string, status queue.BuildStatus) error {
	_, err := s.pool.Exec(ctx, `UPDATE builds SET status = $1 WHERE id = $2`, status, buildID)
	if err != nil {
		return fmt.Errorf("storepg: set build status: %w", err)
	}
	return nil
}

func (s *Store) SetPRMergeable(ctx context.Context, repo queue.Repository, number int, state queue.MergeableState) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE pull_requests SET mergeable = $1
		WHERE repo_owner = $2 AND repo_name = $3 AND number = $4`,
		state, repo.Owner, repo.Name, number)
	if err != nil {
		return fmt.Errorf("storepg: set pr mergeable: %w", err)
	}
	return nil
}

func (s *Store) SetPRStatus(ctx context.Context, repo queue.Repository, number int, status queue.PRStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE pull_requests SET status = $1
		WHERE repo_owner = $2 AND repo_name = $3 AND number = $4`,
		status, repo.Owner, repo.Name, number)
	if err != nil {
		return fmt.Errorf("storepg: set pr status: %w", err)
	}
	return nil
}
