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
	"testing"

	"github.com/go-test/deep"
)

func TestSortCandidates(t *testing.T) {
	tests := []struct {
		name string
		in   []PullRequest
		want []int // expected Number order
	}{
		{
			name: "fifo when all else equal",
			in: []PullRequest{
				{Number: 3}, {Number: 1}, {Number: 2},
			},
			want: []int{1, 2, 3},
		},
		{
			name: "priority beats number",
			in: []PullRequest{
				{Number: 1, Priority: 0},
				{Number: 2, Priority: 5},
			},
			want: []int{2, 1},
		},
		{
			name: "rollup never sorts ahead of always",
			in: []PullRequest{
				{Number: 1, Rollup: RollupAlways},
				{Number: 2, Rollup: RollupNever},
			},
			want: []int{2, 1},
		},
		{
			name: "pr with a build sorts ahead of one without",
			in: []PullRequest{
				{Number: 1},
				{Number: 2, Build: &Build{Status: BuildPending}},
			},
			want: []int{2, 1},
		},
		{
			name: "successful build sorts ahead of pending build",
			in: []PullRequest{
				{Number: 1, Build: &Build{Status: BuildPending}},
				{Number: 2, Build: &Build{Status: BuildSuccess}},
			},
			want: []int{2, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sortCandidates(tt.in)
			var gotNums []int
			for _, pr := range got {
				gotNums = append(gotNums, pr.Number)
			}
			if diff := deep.Equal(gotNums, tt.want); diff != nil {
				t.Errorf("sortCandidates() diff: %v", diff)
			}
		})
	}
}

func TestPickCandidateEmpty(t *testing.T) {
	if _, ok := pickCandidate(nil); ok {
		t.Fatal("expected ok=false for empty input")
	}
}
