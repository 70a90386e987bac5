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

// Command borsctl is an operator's window into a running bors
// instance: a live table of queue state when attached to a terminal,
// or a single JSON snapshot when piped.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/clarketm/bors/queue"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var dashboardAddr string

	root := &cobra.Command{
		Use:   "borsctl",
		Short: "watch the merge queue's live state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) {
				return printSnapshot(dashboardAddr)
			}
			return runTUI(dashboardAddr)
		},
	}
	root.Flags().StringVar(&dashboardAddr, "dashboard", "http://localhost:8080", "base URL of the bors dashboard")
	return root
}

// printSnapshot is the non-interactive path: a single JSON document
// on stdout, for scripting and for piping into jq.
func printSnapshot(dashboardAddr string) error {
	resp, err := http.Get(strings.TrimRight(dashboardAddr, "/") + "/snapshot")
	if err != nil {
		return fmt.Errorf("fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	var snapshot map[string]queue.Pool
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

func runTUI(dashboardAddr string) error {
	m := newModel(dashboardAddr)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// connectedMsg carries a freshly-dialed websocket connection into the
// bubbletea event loop.
type connectedMsg struct {
	updates chan queue.Pool
	errs    chan error
}

// poolMsg is one Pool update received from the dashboard.
type poolMsg queue.Pool

// errMsg surfaces a connection error in the model.
type errMsg struct{ err error }
