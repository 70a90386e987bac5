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

import "sort"

// sortCandidates orders PRs into the order the tick engine should
// consider them in. It is pure and deterministic:
//
//  1. PRs with a build (pending or success) before PRs without one,
//     so an in-flight build is resolved before a new one starts.
//  2. Among PRs with a build, success before pending.
//  3. Higher Priority first (absent priority is 0).
//  4. Lower RollupMode first (never < iffy < maybe < always).
//  5. Lower PR number first.
//
// The input slice is not mutated; a new sorted slice is returned.
func sortCandidates(prs []PullRequest) []PullRequest {
	out := make([]PullRequest, len(prs))
	copy(out, prs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		aHasBuild, bHasBuild := a.Build != nil, b.Build != nil
		if aHasBuild != bHasBuild {
			return aHasBuild
		}
		if aHasBuild && bHasBuild {
			aSuccess := a.Build.Status == BuildSuccess
			bSuccess := b.Build.Status == BuildSuccess
			if aSuccess != bSuccess {
				return aSuccess
			}
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Rollup != b.Rollup {
			return a.Rollup < b.Rollup
		}
		return a.Number < b.Number
	})
	return out
}

// pickCandidate returns the first PR a tick should act on, or false
// if prs is empty.
func pickCandidate(prs []PullRequest) (PullRequest, bool) {
	sorted := sortCandidates(prs)
	if len(sorted) == 0 {
		return PullRequest{}, false
	}
	return sorted[0], true
}
