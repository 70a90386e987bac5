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

// Package queue implements the merge queue core: candidate selection,
// trial merges, build tracking and fast-forwarding of the integration
// branch.
package queue

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Branch names the tick engine pushes to. StagingBranch is never
// observed by CI; AutoBranch is the one CI watches.
const (
	StagingBranch = "automation/bors/auto-merge"
	AutoBranch    = "automation/bors/auto"

	// CheckRunName is the name of the check run created for every
	// trial build, read back by the (out-of-scope) webhook ingester
	// to find the build a check-run update belongs to.
	CheckRunName = "Bors auto build"
)

// RollupMode controls whether a PR prefers to be merged individually
// or rolled up with others. Smaller values merge sooner.
type RollupMode int

const (
	RollupNever RollupMode = iota
	RollupIffy
	RollupMaybe
	RollupAlways
)

func (m RollupMode) String() string {
	switch m {
	case RollupNever:
		return "never"
	case RollupIffy:
		return "iffy"
	case RollupMaybe:
		return "maybe"
	case RollupAlways:
		return "always"
	default:
		return "unknown"
	}
}

// Value implements driver.Valuer so a RollupMode can be written to a
// text column.
func (m RollupMode) Value() (driver.Value, error) { return m.String(), nil }

// Scan implements sql.Scanner, the inverse of Value.
func (m *RollupMode) Scan(src any) error {
	s, err := scanText(src)
	if err != nil {
		return err
	}
	switch s {
	case "never":
		*m = RollupNever
	case "iffy":
		*m = RollupIffy
	case "maybe":
		*m = RollupMaybe
	case "always":
		*m = RollupAlways
	default:
		return fmt.Errorf("queue: unknown rollup mode %q", s)
	}
	return nil
}

// MergeableState mirrors the forge's view of whether a PR's head can
// be merged into its base without conflicts.
type MergeableState int

const (
	MergeableUnknown MergeableState = iota
	Mergeable
	HasConflicts
)

func (s MergeableState) String() string {
	switch s {
	case Mergeable:
		return "mergeable"
	case HasConflicts:
		return "conflicting"
	default:
		return "unknown"
	}
}

func (s MergeableState) Value() (driver.Value, error) { return s.String(), nil }

func (s *MergeableState) Scan(src any) error {
	str, err := scanText(src)
	if err != nil {
		return err
	}
	switch str {
	case "mergeable":
		*s = Mergeable
	case "conflicting":
		*s = HasConflicts
	case "unknown":
		*s = MergeableUnknown
	default:
		return fmt.Errorf("queue: unknown mergeable state %q", str)
	}
	return nil
}

// PRStatus is the lifecycle state of a pull request as tracked by the
// queue store, independent of its build state.
type PRStatus int

const (
	PRStatusOpen PRStatus = iota
	PRStatusApproved
	PRStatusMerged
	PRStatusClosed
)

func (s PRStatus) String() string {
	switch s {
	case PRStatusOpen:
		return "open"
	case PRStatusApproved:
		return "approved"
	case PRStatusMerged:
		return "merged"
	case PRStatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s PRStatus) Value() (driver.Value, error) { return s.String(), nil }

func (s *PRStatus) Scan(src any) error {
	str, err := scanText(src)
	if err != nil {
		return err
	}
	switch str {
	case "open":
		*s = PRStatusOpen
	case "approved":
		*s = PRStatusApproved
	case "merged":
		*s = PRStatusMerged
	case "closed":
		*s = PRStatusClosed
	default:
		return fmt.Errorf("queue: unknown pr status %q", str)
	}
	return nil
}

// BuildStatus is the state of an auto-build. Only the ingester
// (out of scope) transitions pending to a terminal state; the tick
// engine sets failure itself only on a build CI reported as
// successful, when fast-forwarding the base branch to it fails.
type BuildStatus int

const (
	BuildPending BuildStatus = iota
	BuildSuccess
	BuildFailure
	BuildCancelled
	BuildTimeouted
)

func (s BuildStatus) String() string {
	switch s {
	case BuildPending:
		return "pending"
	case BuildSuccess:
		return "success"
	case BuildFailure:
		return "failure"
	case BuildCancelled:
		return "cancelled"
	case BuildTimeouted:
		return "timeouted"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a terminal build status.
func (s BuildStatus) Terminal() bool {
	return s != BuildPending
}

func (s BuildStatus) Value() (driver.Value, error) { return s.String(), nil }

func (s *BuildStatus) Scan(src any) error {
	str, err := scanText(src)
	if err != nil {
		return err
	}
	switch str {
	case "pending":
		*s = BuildPending
	case "success":
		*s = BuildSuccess
	case "failure":
		*s = BuildFailure
	case "cancelled":
		*s = BuildCancelled
	case "timeouted":
		*s = BuildTimeouted
	default:
		return fmt.Errorf("queue: unknown build status %q", str)
	}
	return nil
}

// scanText normalizes the handful of representations a driver may hand
// a Scan method: a string, a []byte, or nil.
func scanText(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("queue: cannot scan %T into enum", src)
	}
}

// Repository is one org/name pair under merge-queue management.
type Repository struct {
	Owner string
	Name  string

	MergeQueueEnabled bool
	// MinPriority excludes PRs whose Priority is lower from the
	// candidate set. Zero admits every approved PR.
	MinPriority int
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// PullRequest is a queue-eligible unit of work.
type PullRequest struct {
	Repo   Repository
	Number int

	Base    string
	Head    string
	HeadSHA string

	Approver  string
	Priority  int
	Rollup    RollupMode
	Status    PRStatus
	Mergeable MergeableState

	// Build is the PR's current (possibly nil) auto-build.
	Build *Build
}

// Build is one trial merge attempt, uniquely identified by ID.
type Build struct {
	ID         string
	PRNumber   int
	Branch     string
	MergeSHA   string
	ParentSHA  string
	Status     BuildStatus
	CheckRunID int64

	CreatedAt time.Time
}

// Workflow is a CI run associated with a Build, reported by the
// out-of-scope webhook ingester and read here only to render the
// success comment.
type Workflow struct {
	ID     int64
	Name   string
	URL    string
	Status string
}
