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

// Package storelite is the single-node Queue Store, backed by
// modernc.org/sqlite (a pure-Go driver, no cgo toolchain required).
// It implements the identical queue.Store contract as storepg, for
// development and for small deployments that don't run Postgres.
package storelite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/clarketm/bors/queue"
)

const schema = `
CREATE TABLE IF NOT EXISTS repositories (
	owner               TEXT NOT NULL,
	name                TEXT NOT NULL,
	merge_queue_enabled INTEGER NOT NULL DEFAULT 0,
	min_priority        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (owner, name)
);

CREATE TABLE IF NOT EXISTS builds (
	id           TEXT PRIMARY KEY,
	repo_owner   TEXT NOT NULL,
	repo_name    TEXT NOT NULL,
	pr_number    INTEGER NOT NULL,
	branch       TEXT NOT NULL,
	merge_sha    TEXT NOT NULL,
	parent_sha   TEXT NOT NULL,
	status       TEXT NOT NULL,
	check_run_id INTEGER
);

CREATE TABLE IF NOT EXISTS pull_requests (
	repo_owner        TEXT NOT NULL,
	repo_name         TEXT NOT NULL,
	number            INTEGER NOT NULL,
	base              TEXT NOT NULL,
	head              TEXT NOT NULL,
	head_sha          TEXT NOT NULL,
	approver          TEXT NOT NULL DEFAULT '',
	priority          INTEGER NOT NULL DEFAULT 0,
	rollup            TEXT NOT NULL DEFAULT 'never',
	status            TEXT NOT NULL DEFAULT 'open',
	mergeable         TEXT NOT NULL DEFAULT 'unknown',
	current_build_id TEXT,
	PRIMARY KEY (repo_owner, repo_name, number)
);

CREATE TABLE IF NOT EXISTS workflows (
	id       INTEGER PRIMARY KEY,
	build_id TEXT NOT NULL,
	name     TEXT NOT NULL,
	url      TEXT NOT NULL,
	status   TEXT NOT NULL
);
`

// Store implements queue.Store against a sqlite database file (or
// ":memory:" for tests).
type Store struct {
	db *sql.DB
}

// Open creates or opens the sqlite database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storelite: open: %w", err)
	}
	// The merge queue's single-writer tick loop never needs concurrent
	// writers; sqlite handles one at a time regardless, so cap the
	// pool to avoid SQLITE_BUSY under modernc's driver.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storelite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// AddRepository inserts or updates the repository record that
// RepoByName returns. Tests use it to seed the store.
func (s *Store) AddRepository(ctx context.Context, repo queue.Repository) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repositories (owner, name, merge_queue_enabled, min_priority)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner, name) DO UPDATE SET merge_queue_enabled = excluded.merge_queue_enabled,
			min_priority = excluded.min_priority`,
		repo.Owner, repo.Name, repo.MergeQueueEnabled, repo.MinPriority)
	if err != nil {
		return fmt.Errorf("storelite: add repository: %w", err)
	}
	return nil
}

// UpsertPullRequest inserts or refreshes the tracked state of a pull
// request, called by the (out-of-scope) webhook ingester and by tests.
func (s *Store) UpsertPullRequest(ctx context.Context, pr queue.PullRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pull_requests (repo_owner, repo_name, number, base, head, head_sha, approver, priority, rollup, status, mergeable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo_owner, repo_name, number) DO UPDATE SET
			base = excluded.base, head = excluded.head, head_sha = excluded.head_sha,
			approver = excluded.approver, priority = excluded.priority, rollup = excluded.rollup,
			status = excluded.status, mergeable = excluded.mergeable`,
		pr.Repo.Owner, pr.Repo.Name, pr.Number, pr.Base, pr.Head, pr.HeadSHA,
		pr.Approver, pr.Priority, pr.Rollup, pr.Status, pr.Mergeable)
	if err != nil {
		return fmt.Errorf("storelite: upsert pull request: %w", err)
	}
	return nil
}

func (s *Store) RepoByName(ctx context.Context, owner, name string) (queue.Repository, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT owner, name, merge_queue_enabled, min_priority
		FROM repositories WHERE owner = ? AND name = ?`, owner, name)

	var r queue.Repository
	if err := row.Scan(&r.Owner, &r.Name, &r.MergeQueueEnabled, &r.MinPriority); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return queue.Repository{}, queue.ErrNotFound
		}
		return queue.Repository{}, fmt.Errorf("storelite: repo by name: %w", err)
	}
	return r, nil
}

func (s *Store) EligiblePRs(ctx context.Context, repo queue.Repository, minPriority int) ([]queue.PullRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pr.number, pr.base, pr.head, pr.head_sha, pr.approver, pr.priority,
		       pr.rollup, pr.status, pr.mergeable,
		       b.id, b.branch, b.merge_sha, b.parent_sha, b.status, b.check_run_id
		FROM pull_requests pr
		LEFT JOIN builds b ON b.id = pr.current_build_id
		WHERE pr.repo_owner = ? AND pr.repo_name = ?
		  AND pr.status = ?
		  AND pr.mergeable != ?
		  AND pr.priority >= ?
		  AND (b.id IS NULL OR b.status IN ('pending', 'success'))`,
		repo.Owner, repo.Name, queue.PRStatusApproved, queue.HasConflicts, minPriority)
	if err != nil {
		return nil, fmt.Errorf("storelite: eligible prs: %w", err)
	}
	defer rows.Close()

	var out []queue.PullRequest
	for rows.Next() {
		pr := queue.PullRequest{Repo: repo}
		var (
			buildID                     sql.NullString
			branch, mergeSHA, parentSHA sql.NullString
			buildStatus                 sql.NullString
			checkRunID                  sql.NullInt64
		)
		if err := rows.Scan(&pr.Number, &pr.Base, &pr.Head, &pr.HeadSHA, &pr.Approver, &pr.Priority,
			&pr.Rollup, &pr.Status, &pr.Mergeable,
			&buildID, &branch, &mergeSHA, &parentSHA, &buildStatus, &checkRunID); err != nil {
			return nil, fmt.Errorf("storelite: scan eligible pr: %w", err)
		}
		if buildID.Valid {
			b := &queue.Build{ID: buildID.String, PRNumber: pr.Number}
			b.Branch = branch.String
			b.MergeSHA = mergeSHA.String
			b.ParentSHA = parentSHA.String
			if buildStatus.Valid {
				if err := (&b.Status).Scan(buildStatus.String); err != nil {
					return nil, fmt.Errorf("storelite: parse build status: %w", err)
				}
			}
			if checkRunID.Valid {
				b.CheckRunID = checkRunID.Int64
			}
			pr.Build = b
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (s *Store) WorkflowsForBuild(ctx context.Context, buildID string) ([]queue.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, status FROM workflows WHERE build_id = ? ORDER BY id`, buildID)
	if err != nil {
		return nil, fmt.Errorf("storelite: workflows for build: %w", err)
	}
	defer rows.Close()

	var out []queue.Workflow
	for rows.Next() {
		var w queue.Workflow
		if err := rows.Scan(&w.ID, &w.Name, &w.URL, &w.Status); err != nil {
			return nil, fmt.Errorf("storelite: scan workflow: %w", err)
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return queue.Build{}, fmt.Errorf("storelite: attach build: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO builds (id, repo_owner, repo_name, pr_number, branch, merge_sha, parent_sha, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, pr.Repo.Owner, pr.Repo.Name, pr.Number, branch, mergeSHA, parentSHA, queue.BuildPending); err != nil {
		return queue.Build{}, fmt.Errorf("storelite: insert build: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE pull_requests SET current_build_id = ?
		WHERE repo_owner = ? AND repo_name = ? AND number = ?`,
		b.ID, pr.Repo.Owner, pr.Repo.Name, pr.Number); err != nil {
		return queue.Build{}, fmt.Errorf("storelite: attach build to pr: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return queue.Build{}, fmt.Errorf("storelite: attach build: commit: %w", err)
	}
	return b, nil
}

func (s *Store) SetBuildCheckRunID(ctx context.Context, buildID string, checkRunID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE builds SET check_run_id = ? WHERE id = ?`, checkRunID, buildID)
	if err != nil {
		return fmt.Errorf("storelite: set check run id: %w", err)
	}
	return nil
}

func (s *Store) SetBuildStatus(ctx context.Context, buildID string, status queue.BuildStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE builds SET status = ? WHERE id = ?`, status, buildID)
	if err != nil {
		return fmt.Errorf("storelite: set build status: %w", err)
	}
	return nil
}

func (s *Store) SetPRMergeable(ctx context.Context, repo queue.Repository, number int, state queue.MergeableState) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pull_requests SET mergeable = ?
		WHERE repo_owner = ? AND repo_name = ? AND number = ?`,
		state, repo.Owner, repo.Name, number)
	if err != nil {
		return fmt.Errorf("storelite: set pr mergeable: %w", err)
	}
	return nil
}

func (s *Store) SetPRStatus(ctx context.Context, repo queue.Repository, number int, status queue.PRStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pull_requests SET status = ?
		WHERE repo_owner = ? AND repo_name = ? AND number = ?`,
		status, repo.Owner, repo.Name, number)
	if err != nil {
		return fmt.Errorf("storelite: set pr status: %w", err)
	}
	return nil
}
