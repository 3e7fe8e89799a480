// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "github.com/constellation-live/constellation/lib/pathchain"

// Message type discriminators. Every wire message carries one of these
// in its "type" field.
const (
	TypeInit                = "init"
	TypeMachineAdd          = "machine_add"
	TypeSessionAdd          = "session_add"
	TypeSessionUpdate       = "session_update"
	TypeSessionActive       = "session_active"
	TypeSessionThinking     = "session_thinking"
	TypeSessionWaiting      = "session_waiting"
	TypeTokenUpdate         = "token_update"
	TypeFileInteraction     = "file_interaction"
	TypeFileRemove          = "file_remove"
	TypeWebInteraction      = "web_interaction"
	TypeTaskInteraction     = "task_interaction"
	TypeTerminalInteraction = "terminal_interaction"
	TypeTerminalRemove      = "terminal_remove"
	TypeFolderRemove        = "folder_remove"
	TypeSessionRemove       = "session_remove"
	TypeActivityPulse       = "activity_pulse"
	TypeHeartbeat           = "heartbeat"
)

// Message is implemented by every wire message.
type Message interface {
	MessageType() string
}

// TokenCounts holds the four token categories reported per session.
// Session counters are cumulative; the Delta field of [TokenUpdate]
// carries the clamped per-event increase.
type TokenCounts struct {
	Input         int64 `json:"input"`
	Output        int64 `json:"output"`
	CacheRead     int64 `json:"cacheRead"`
	CacheCreation int64 `json:"cacheCreation"`
}

// GlobalTokens is the server-wide token aggregate: the sum of every
// live session's cumulative counters, maintained by forward deltas and
// clamped at zero.
type GlobalTokens struct {
	TotalInput         int64 `json:"totalInput"`
	TotalOutput        int64 `json:"totalOutput"`
	TotalCacheRead     int64 `json:"totalCacheRead"`
	TotalCacheCreation int64 `json:"totalCacheCreation"`
}

// ContextUsage reports how much of the model's context window a
// session has consumed (input + cache-read tokens).
type ContextUsage struct {
	Current int64 `json:"current"`
	Max     int64 `json:"max"`
	Percent int   `json:"percent"`
}

// Interaction records the most recent tool touch on a file.
type Interaction struct {
	Tool  string `json:"type"`
	Color string `json:"color"`
	Time  int64  `json:"time"`
}

// SessionState is the full mutable state of one session, sent in the
// snapshot and in [SessionAdd]. Timestamps are Unix milliseconds;
// set-valued fields are flattened to sorted lists.
type SessionState struct {
	ID           string       `json:"id"`
	Active       bool         `json:"active"`
	Thinking     bool         `json:"thinking"`
	Waiting      bool         `json:"waiting"`
	WaitingTool  string       `json:"waitingTool,omitempty"`
	LastActivity int64        `json:"lastActivity"`
	Machine      string       `json:"machine"`
	Color        string       `json:"color"`
	CWD          string       `json:"cwd"`
	Tokens       TokenCounts  `json:"tokens"`
	ContextUsage ContextUsage `json:"contextUsage"`
	X            float64      `json:"x"`
	Y            float64      `json:"y"`
	Files        []string     `json:"files"`
	Terminals    []string     `json:"terminals"`
}

// FileState is the full state of one file entity.
type FileState struct {
	Path            string       `json:"path"`
	Name            string       `json:"name"`
	ParentFolder    string       `json:"parentFolder,omitempty"`
	Sessions        []string     `json:"sessions"`
	X               float64      `json:"x"`
	Y               float64      `json:"y"`
	LastInteraction *Interaction `json:"lastInteraction,omitempty"`
}

// TerminalState is the full state of one terminal entity. At most one
// terminal exists per session.
type TerminalState struct {
	ID        string  `json:"id"`
	SessionID string  `json:"sessionId"`
	Command   string  `json:"command"`
	Machine   string  `json:"machine"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Time      int64   `json:"time"`
}

// MachineState is the snapshot form of one machine.
type MachineState struct {
	Name         string `json:"name"`
	Color        string `json:"color"`
	SessionCount int    `json:"sessionCount"`
}

// Init is the full snapshot sent to a newly connected viewer.
type Init struct {
	Type      string            `json:"type"`
	Machines  []MachineState    `json:"machines"`
	Sessions  []SessionState    `json:"sessions"`
	Files     []FileState       `json:"files"`
	Folders   []pathchain.Folder `json:"folders"`
	Terminals []TerminalState   `json:"terminals"`
	Global    GlobalTokens      `json:"globalTokens"`
}

func (Init) MessageType() string { return TypeInit }

// MachineAdd announces a machine seen for the first time.
type MachineAdd struct {
	Type        string `json:"type"`
	MachineName string `json:"machineName"`
	Color       string `json:"color"`
}

func (MachineAdd) MessageType() string { return TypeMachineAdd }

// SessionAdd announces a session created on first reference.
type SessionAdd struct {
	Type      string       `json:"type"`
	SessionID string       `json:"sessionId"`
	Machine   string       `json:"machine"`
	Color     string       `json:"color"`
	Session   SessionState `json:"session"`
}

func (SessionAdd) MessageType() string { return TypeSessionAdd }

// SessionUpdate carries a machine migration: a session first seen with
// an unknown machine name adopting its resolved machine and color.
type SessionUpdate struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Machine   string `json:"machine"`
	Color     string `json:"color"`
}

func (SessionUpdate) MessageType() string { return TypeSessionUpdate }

// SessionActive reports an activity flag flip. Active=false implies the
// session is no longer thinking (mirror rule, see package doc).
type SessionActive struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Active    bool   `json:"active"`
}

func (SessionActive) MessageType() string { return TypeSessionActive }

// SessionThinking reports the thinking sub-state.
type SessionThinking struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Thinking  bool   `json:"thinking"`
}

func (SessionThinking) MessageType() string { return TypeSessionThinking }

// SessionWaiting reports the permission-wait sub-state. Tool names the
// tool awaiting permission when Waiting is true.
type SessionWaiting struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Waiting   bool   `json:"waiting"`
	Tool      string `json:"toolName,omitempty"`
}

func (SessionWaiting) MessageType() string { return TypeSessionWaiting }

// TokenUpdate carries a session's new cumulative counters, the clamped
// delta actually added to the aggregate, the updated aggregate, and the
// recomputed context usage.
type TokenUpdate struct {
	Type         string       `json:"type"`
	SessionID    string       `json:"sessionId"`
	Tokens       TokenCounts  `json:"tokens"`
	Delta        TokenCounts  `json:"delta"`
	Global       GlobalTokens `json:"globalTokens"`
	ContextUsage ContextUsage `json:"contextUsage"`
}

func (TokenUpdate) MessageType() string { return TypeTokenUpdate }

// FileInteraction reports a file-affecting tool touching a path. The
// folder chain lists every lazily created ancestor; File is the updated
// file snapshot including its flattened reference list.
type FileInteraction struct {
	Type         string             `json:"type"`
	SessionID    string             `json:"sessionId"`
	FilePath     string             `json:"filePath"`
	FileName     string             `json:"fileName"`
	ParentFolder string             `json:"parentFolder,omitempty"`
	Folders      []pathchain.Folder `json:"folders"`
	Interaction  string             `json:"interaction"`
	Color        string             `json:"color"`
	File         FileState          `json:"file"`
}

func (FileInteraction) MessageType() string { return TypeFileInteraction }

// FileRemove reports a file whose reference set became empty during a
// removal cascade.
type FileRemove struct {
	Type     string `json:"type"`
	FilePath string `json:"filePath"`
}

func (FileRemove) MessageType() string { return TypeFileRemove }

// WebInteraction reports a web fetch or search. URL is truncated.
type WebInteraction struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	WebID     string `json:"webId"`
	Tool      string `json:"tool"`
	URL       string `json:"url"`
	Color     string `json:"color"`
}

func (WebInteraction) MessageType() string { return TypeWebInteraction }

// TaskInteraction reports a sub-agent delegation.
type TaskInteraction struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (TaskInteraction) MessageType() string { return TypeTaskInteraction }

// TerminalInteraction reports a shell command on the session's single
// terminal. IsNew is set on first creation.
type TerminalInteraction struct {
	Type       string        `json:"type"`
	SessionID  string        `json:"sessionId"`
	TerminalID string        `json:"terminalId"`
	Command    string        `json:"command"`
	IsNew      bool          `json:"isNew"`
	Terminal   TerminalState `json:"terminal"`
}

func (TerminalInteraction) MessageType() string { return TypeTerminalInteraction }

// TerminalRemove reports a terminal deleted with its owning session.
type TerminalRemove struct {
	Type       string `json:"type"`
	TerminalID string `json:"terminalId"`
}

func (TerminalRemove) MessageType() string { return TypeTerminalRemove }

// FolderRemove reports a folder whose reference set became empty.
type FolderRemove struct {
	Type       string `json:"type"`
	FolderPath string `json:"folderPath"`
}

func (FolderRemove) MessageType() string { return TypeFolderRemove }

// SessionRemove concludes a removal cascade. Global carries the
// aggregate after subtracting the removed session's counters.
type SessionRemove struct {
	Type      string       `json:"type"`
	SessionID string       `json:"sessionId"`
	Global    GlobalTokens `json:"globalTokens"`
}

func (SessionRemove) MessageType() string { return TypeSessionRemove }

// ActivityPulse signals raw activity in the watched projects directory
// without attributing it to a session.
type ActivityPulse struct {
	Type string `json:"type"`
}

func (ActivityPulse) MessageType() string { return TypeActivityPulse }

// Heartbeat is a feed keepalive. Never sent over the WebSocket
// transport, which has its own ping/pong.
type Heartbeat struct {
	Type string `json:"type"`
}

func (Heartbeat) MessageType() string { return TypeHeartbeat }
