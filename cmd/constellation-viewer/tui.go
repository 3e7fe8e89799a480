// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/constellation-live/constellation/lib/protocol"
)

const contextBarWidth = 20

// Model is the viewer's bubbletea model. It holds a Mirror of the
// server's entity graph and redraws on every feed frame.
type Model struct {
	addr      string
	theme     Theme
	mirror    *Mirror
	client    *feedClient
	connected bool
	lastErr   error
	spinner   spinner.Model
	width     int
	height    int
}

// NewModel returns a viewer model that will dial the given feed
// address on Init.
func NewModel(addr string, theme Theme) Model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(theme.Thinking),
	)
	return Model{
		addr:    addr,
		theme:   theme,
		mirror:  NewMirror(),
		spinner: s,
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(model.spinner.Tick, connect(model.addr))
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		switch message.String() {
		case "q", "ctrl+c":
			if model.client != nil {
				model.client.close()
			}
			return model, tea.Quit
		}
		return model, nil

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		return model, nil

	case connectedMsg:
		model.client = message.client
		model.connected = true
		model.lastErr = nil
		return model, model.client.next

	case frameMsg:
		model.mirror.Apply(message.message)
		return model, model.client.next

	case disconnectMsg:
		if model.client != nil {
			model.client.close()
			model.client = nil
		}
		model.connected = false
		model.lastErr = message.err
		return model, tea.Batch(model.spinner.Tick, scheduleReconnect())

	case reconnectMsg:
		return model, connect(model.addr)

	case spinner.TickMsg:
		if model.connected {
			return model, nil
		}
		var cmd tea.Cmd
		model.spinner, cmd = model.spinner.Update(message)
		return model, cmd
	}
	return model, nil
}

// View implements tea.Model.
func (model Model) View() string {
	var b strings.Builder

	b.WriteString(model.theme.Header.Render("constellation"))
	b.WriteString("  ")
	if model.connected {
		b.WriteString(model.theme.Faint.Render(model.addr))
	} else {
		status := fmt.Sprintf("%s connecting to %s", model.spinner.View(), model.addr)
		if model.lastErr != nil {
			status += model.theme.Faint.Render(fmt.Sprintf(" (%v)", model.lastErr))
		}
		b.WriteString(status)
	}
	b.WriteString("\n\n")

	snapshot := model.mirror.Snapshot()
	if model.connected && len(snapshot.Sessions) == 0 {
		b.WriteString(model.theme.Faint.Render("no sessions yet"))
		b.WriteString("\n")
	}

	for _, machine := range snapshot.Machines {
		b.WriteString(model.theme.Machine.Render(machine.Name))
		b.WriteString(model.theme.Faint.Render(fmt.Sprintf("  %d session(s)", machine.SessionCount)))
		b.WriteString("\n")
		for _, session := range snapshot.Sessions {
			if session.Machine != machine.Name {
				continue
			}
			b.WriteString(model.renderSession(session, snapshot.Terminals))
		}
		b.WriteString("\n")
	}

	b.WriteString(model.theme.Footer.Render(fmt.Sprintf(
		"tokens  in %s  out %s  cache-read %s  cache-create %s",
		formatCount(snapshot.Global.TotalInput),
		formatCount(snapshot.Global.TotalOutput),
		formatCount(snapshot.Global.TotalCacheRead),
		formatCount(snapshot.Global.TotalCacheCreation),
	)))
	b.WriteString("\n")
	b.WriteString(model.theme.Help.Render("q: quit"))
	b.WriteString("\n")
	return b.String()
}

func (model Model) renderSession(session protocol.SessionState, terminals []protocol.TerminalState) string {
	var b strings.Builder

	glyph, label := model.sessionStatus(session)
	b.WriteString("  ")
	b.WriteString(glyph)
	b.WriteString(" ")
	if session.Color != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(session.Color)).Render(session.ID))
	} else {
		b.WriteString(model.theme.SessionName.Render(session.ID))
	}
	b.WriteString("  ")
	b.WriteString(label)
	b.WriteString("  ")
	b.WriteString(model.renderContextBar(session.ContextUsage))
	if len(session.Files) > 0 {
		b.WriteString(model.theme.Faint.Render(fmt.Sprintf("  %d file(s)", len(session.Files))))
	}
	b.WriteString("\n")

	for _, terminal := range terminals {
		if terminal.SessionID != session.ID {
			continue
		}
		b.WriteString("      ")
		b.WriteString(model.theme.Faint.Render("$ " + terminal.Command))
		b.WriteString("\n")
	}
	return b.String()
}

func (model Model) sessionStatus(session protocol.SessionState) (glyph, label string) {
	switch {
	case session.Waiting:
		label = "waiting"
		if session.WaitingTool != "" {
			label = "waiting on " + session.WaitingTool
		}
		return model.theme.Waiting.Render("◆"), model.theme.Waiting.Render(label)
	case session.Thinking:
		return model.theme.Thinking.Render("●"), model.theme.Thinking.Render("thinking")
	case session.Active:
		return model.theme.Active.Render("●"), model.theme.Active.Render("active")
	default:
		return model.theme.Inactive.Render("○"), model.theme.Inactive.Render("idle")
	}
}

func (model Model) renderContextBar(usage protocol.ContextUsage) string {
	if usage.Max <= 0 {
		return ""
	}
	filled := int(usage.Current * contextBarWidth / usage.Max)
	if filled > contextBarWidth {
		filled = contextBarWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := model.theme.ContextFill.Render(strings.Repeat("█", filled)) +
		model.theme.ContextBar.Render(strings.Repeat("░", contextBarWidth-filled))
	percent := usage.Current * 100 / usage.Max
	return fmt.Sprintf("%s %3d%%", bar, percent)
}

func formatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
