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

package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/clarketm/bors/queue"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7eb8da"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))

	actionStyles = map[queue.PoolAction]lipgloss.Style{
		queue.ActionNone:          dimStyle,
		queue.ActionWaitPending:   lipgloss.NewStyle().Foreground(lipgloss.Color("#d4a054")),
		queue.ActionFastForward:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7ec699")),
		queue.ActionStartBuild:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7eb8da")),
		queue.ActionMergeConflict: lipgloss.NewStyle().Foreground(lipgloss.Color("#d48a8a")),
		queue.ActionCooldown:      lipgloss.NewStyle().Foreground(lipgloss.Color("#d48a8a")),
	}
)

// model is the bubbletea Model for borsctl's live view: one row per
// repository, refreshed as Pool updates arrive over the dashboard's
// WebSocket.
type model struct {
	dashboardAddr string

	pools   map[string]queue.Pool
	err     error
	updates chan queue.Pool
	errs    chan error
	spinner spinner.Model

	width, height int
}

func newModel(dashboardAddr string) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle
	return model{
		dashboardAddr: dashboardAddr,
		pools:         make(map[string]queue.Pool),
		spinner:       sp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(connectCmd(m.dashboardAddr), m.spinner.Tick)
}

func connectCmd(dashboardAddr string) tea.Cmd {
	return func() tea.Msg {
		wsURL := strings.Replace(strings.TrimRight(dashboardAddr, "/"), "http", "ws", 1) + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			return errMsg{err}
		}
		updates := make(chan queue.Pool, 16)
		errs := make(chan error, 1)
		go func() {
			for {
				var p queue.Pool
				if err := conn.ReadJSON(&p); err != nil {
					errs <- err
					return
				}
				updates <- p
			}
		}()
		return connectedMsg{updates: updates, errs: errs}
	}
}

func waitForUpdate(updates chan queue.Pool, errs chan error) tea.Cmd {
	return func() tea.Msg {
		select {
		case p := <-updates:
			return poolMsg(p)
		case err := <-errs:
			return errMsg{err}
		}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case connectedMsg:
		m.updates, m.errs = msg.updates, msg.errs
		return m, waitForUpdate(m.updates, m.errs)

	case poolMsg:
		p := queue.Pool(msg)
		m.pools[p.Repo] = p
		return m, waitForUpdate(m.updates, m.errs)

	case errMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("borsctl: %s\n\npress q to quit", m.err)
	}
	if len(m.pools) == 0 {
		return fmt.Sprintf("%s waiting for the first queue snapshot...\n\npress q to quit", m.spinner.View())
	}

	repos := make([]string, 0, len(m.pools))
	for repo := range m.pools {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	var b strings.Builder
	fmt.Fprintf(&b, "%-30s %-16s %-10s %s\n", "REPO", "ACTION", "PR", "TICKED")
	for _, repo := range repos {
		p := m.pools[repo]
		style := actionStyles[p.Action]
		candidate := ""
		if p.Candidate != 0 {
			candidate = fmt.Sprintf("#%d", p.Candidate)
		}
		fmt.Fprintf(&b, "%-30s %s %-10s %s\n",
			repo, style.Render(fmt.Sprintf("%-16s", p.Action)), candidate, p.Ticked.Format(time.Kitchen))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q to quit"))
	return headerStyle.Render("bors queue") + "\n\n" + b.String()
}
