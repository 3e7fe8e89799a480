// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package state

import "github.com/constellation-live/constellation/lib/protocol"

// Event is one normalized tool-invocation record attributed to a
// session and machine. Zero values fall back to documented defaults:
// an empty SessionID becomes [DefaultSessionID], an empty Machine
// becomes [UnknownMachine]. An Event with no Tool is a bare tick — it
// still refreshes session activity and the thinking pulse.
type Event struct {
	// Tool is the tool kind ("Read", "Bash", "WebFetch", ...).
	Tool string

	// SessionID identifies the session the event belongs to.
	SessionID string

	// Machine names the source host.
	Machine string

	// FilePath is the target of a file-affecting tool, when explicit.
	FilePath string

	// Pattern is the search pattern of a Glob/Grep tool lacking an
	// explicit path. It becomes a synthetic file key.
	Pattern string

	// Command is the shell command of a Bash tool.
	Command string

	// URL is the query or URL of a web fetch/search tool.
	URL string

	// Description is the task description of a sub-agent delegation.
	Description string

	// CWD is the session's working-directory hint.
	CWD string

	// Tokens carries the session's cumulative token counters when the
	// event reports usage; nil otherwise.
	Tokens *protocol.TokenCounts
}

const (
	// DefaultSessionID is used when an event carries no session id.
	DefaultSessionID = "default"

	// UnknownMachine is the sentinel for events with no machine name.
	// A session first seen under it migrates to its real machine on
	// the first event that names one.
	UnknownMachine = "unknown"
)

// Tool kind names the processor recognizes.
const (
	ToolRead         = "Read"
	ToolWrite        = "Write"
	ToolEdit         = "Edit"
	ToolGlob         = "Glob"
	ToolGrep         = "Grep"
	ToolLSP          = "LSP"
	ToolNotebookEdit = "NotebookEdit"
	ToolTask         = "Task"
	ToolWebFetch     = "WebFetch"
	ToolWebSearch    = "WebSearch"
	ToolBash         = "Bash"
)

// fileTools are the file-affecting kinds: they resolve a target path
// and touch the file/folder graph.
var fileTools = map[string]bool{
	ToolRead:         true,
	ToolWrite:        true,
	ToolEdit:         true,
	ToolGlob:         true,
	ToolGrep:         true,
	ToolLSP:          true,
	ToolNotebookEdit: true,
}

// toolColors assigns each tool kind a display color carried on
// interaction notifications.
var toolColors = map[string]string{
	ToolRead:         "#4a9eff",
	ToolWrite:        "#ff6b6b",
	ToolEdit:         "#ffd93d",
	ToolGlob:         "#a78bfa",
	ToolGrep:         "#2dd4bf",
	ToolTask:         "#fb923c",
	ToolWebFetch:     "#f472b6",
	ToolWebSearch:    "#e879f9",
	ToolLSP:          "#34d399",
	ToolNotebookEdit: "#fbbf24",
}

// defaultToolColor is used for tool kinds without an assigned color.
const defaultToolColor = "#888888"

// toolColor returns the display color for a tool kind.
func toolColor(tool string) string {
	if color, ok := toolColors[tool]; ok {
		return color
	}
	return defaultToolColor
}

// DefaultPalette is the machine color rotation, assigned round-robin
// in first-seen order unless an override maps the name directly.
var DefaultPalette = []string{
	"#ff69b4", // pink
	"#4ade80", // green
	"#60a5fa", // blue
	"#f472b6", // light pink
	"#a78bfa", // purple
	"#fbbf24", // yellow
	"#34d399", // teal
	"#f87171", // red
}
