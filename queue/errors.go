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

import "fmt"

// ErrMergeConflict is returned by the forge client's MergeBranches
// when the merge cannot be performed cleanly. Callers should treat
// this distinctly from transport errors: it means the PR itself has
// conflicts, not that the request failed.
var ErrMergeConflict = fmt.Errorf("queue: merge conflict")

// BranchUpdateError is returned by the forge client's SetBranchToSHA.
// It distinguishes a non-fast-forward push (the target branch moved)
// from a validation failure (bad ref, insufficient permission) from
// any other transport error, because the tick engine reacts to each
// differently.
type BranchUpdateError struct {
	// Kind is one of "fast-forward-conflict", "validation-failed", or
	// "" for a generic/transport error.
	Kind    string
	Message string
	Cause   error
}

func (e *BranchUpdateError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("queue: branch update failed: %s", e.Message)
	}
	return fmt.Sprintf("queue: branch update failed: %v", e.Cause)
}

func (e *BranchUpdateError) Unwrap() error { return e.Cause }

// IsFastForwardConflict reports whether err is a non-fast-forward
// branch update rejection.
func IsFastForwardConflict(err error) bool {
	bue, ok := err.(*BranchUpdateError)
	return ok && bue.Kind == "fast-forward-conflict"
}

// IsValidationFailed reports whether err is a branch update rejected
// for validation reasons (protected branch, bad SHA, permissions).
func IsValidationFailed(err error) bool {
	bue, ok := err.(*BranchUpdateError)
	return ok && bue.Kind == "validation-failed"
}

// autoBuildStartError is the closed set of ways starting a new
// auto-build can fail, mirroring the source implementation's
// AutoBuildStartError enum. Each variant drives a distinct recovery
// path in the tick engine (see engine.go).
type autoBuildStartErrorKind int

const (
	errFailedToMerge autoBuildStartErrorKind = iota
	errMergeConflicts
	errFailedToMarkAsConflicted
	errFailedToPush
	errFailedToRecordBuild
)

type autoBuildStartError struct {
	kind     autoBuildStartErrorKind
	mergeSHA string
	cause    error
}

func (e *autoBuildStartError) Error() string {
	switch e.kind {
	case errFailedToMerge:
		return fmt.Sprintf("queue: failed to merge: %v", e.cause)
	case errMergeConflicts:
		return "queue: pull request has merge conflicts"
	case errFailedToMarkAsConflicted:
		return fmt.Sprintf("queue: failed to mark pull request as conflicted: %v", e.cause)
	case errFailedToPush:
		return fmt.Sprintf("queue: failed to push %s: %v", e.mergeSHA, e.cause)
	case errFailedToRecordBuild:
		return fmt.Sprintf("queue: failed to record build for %s: %v", e.mergeSHA, e.cause)
	default:
		return "queue: failed to start auto build"
	}
}

func (e *autoBuildStartError) Unwrap() error { return e.cause }
