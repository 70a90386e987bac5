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
	"fmt"
	"strings"
)

const unknownApprover = "<unknown>"

// commentAutoBuildStarted is posted the moment a trial merge lands on
// AutoBranch.
func commentAutoBuildStarted(headSHA, mergeSHA string) string {
	return fmt.Sprintf(":hourglass: Testing commit %s with merge %s...", headSHA, mergeSHA)
}

// commentBuildSuccess is posted once CI reports success, before the
// fast-forward of the base branch is attempted.
func commentBuildSuccess(workflows []Workflow, approver, mergeSHA, base string) string {
	var b strings.Builder
	b.WriteString(":sunny: Test successful - ")
	for i, w := range workflows {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "[%s](%s)", w.Name, w.URL)
	}
	if approver == "" {
		approver = unknownApprover
	}
	fmt.Fprintf(&b, "\nApproved by: `%s`\n", approver)
	fmt.Fprintf(&b, "Pushing %s to `%s`...", mergeSHA, base)
	return b.String()
}

// commentPushFailed is posted when CI succeeded but fast-forwarding
// the base branch subsequently failed.
func commentPushFailed(err error) string {
	return fmt.Sprintf(":eyes: Test was successful, but fast-forwarding failed: %s", err)
}

// commentMergeConflict is posted when the trial merge reports a
// conflict.
func commentMergeConflict(headSHA string) string {
	return fmt.Sprintf(":lock: Merge conflict: the commit %s cannot be merged into the base branch. Please rebase and update the pull request.", headSHA)
}

// commentPushToAutoFailed is posted when the trial merge succeeded
// but could not be pushed to AutoBranch for CI to observe.
func commentPushToAutoFailed(mergeSHA, branch string, err error) string {
	return fmt.Sprintf(":boom: Pushing merge commit %s to `%s` failed: %s", mergeSHA, branch, err)
}
