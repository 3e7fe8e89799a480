// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"encoding/json"
	"fmt"

	"github.com/constellation-live/constellation/lib/protocol"
	"github.com/constellation-live/constellation/lib/state"
)

// EventPermissionRequest is the hook event name that signals the agent
// is blocked waiting for operator approval. It routes to the waiting
// sub-state instead of normal event processing.
const EventPermissionRequest = "PermissionRequest"

// DefaultHookSession is the session id assumed for hook payloads that
// omit one. Hook deliveries come from a live agent, so they get a
// distinct default from anonymous history lines.
const DefaultHookSession = "claude-session"

// Input is the tool input block nested in hook payloads and some
// normalized events. Only the fields the mapping consumes are decoded.
type Input struct {
	FilePath    string `json:"file_path"`
	Pattern     string `json:"pattern"`
	Command     string `json:"command"`
	URL         string `json:"url"`
	Query       string `json:"query"`
	Description string `json:"description"`
}

// Tokens is the cumulative per-session token block attached by the
// enhanced hook script. Counters are session-lifetime totals, not
// increments.
type Tokens struct {
	Input         int64 `json:"input_tokens"`
	Output        int64 `json:"output_tokens"`
	CacheRead     int64 `json:"cache_read"`
	CacheCreation int64 `json:"cache_creation"`
}

// Record is one inbound JSON record in any of the accepted shapes.
// Unknown fields are ignored.
type Record struct {
	Tool          string `json:"tool"`
	ToolName      string `json:"tool_name"`
	HookEventName string `json:"hook_event_name"`

	SessionID    string `json:"sessionId"`
	SessionIDAlt string `json:"session_id"`
	MachineName  string `json:"machine_name"`

	FilePath    string `json:"filePath"`
	FilePathAlt string `json:"file_path"`
	Command     string `json:"command"`

	CWD              string `json:"cwd"`
	WorkingDirectory string `json:"working_directory"`

	Input     *Input  `json:"input"`
	ToolInput *Input  `json:"tool_input"`
	Tokens    *Tokens `json:"tokens"`
}

// Parse decodes a JSON record. Malformed input is an error; the caller
// decides whether to reject (HTTP) or skip (history tail).
func Parse(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decoding event record: %w", err)
	}
	return r, nil
}

// Session returns the record's session id with field-name variants
// coalesced, or "" when the record names none.
func (r Record) Session() string {
	if r.SessionID != "" {
		return r.SessionID
	}
	return r.SessionIDAlt
}

// IsPermissionRequest reports whether the record is a permission
// request rather than a tool event.
func (r Record) IsPermissionRequest() bool {
	return r.HookEventName == EventPermissionRequest
}

// WaitingTool returns the tool name the agent is blocked on.
func (r Record) WaitingTool() string {
	if r.ToolName != "" {
		return r.ToolName
	}
	return r.Tool
}

// Event maps the record onto the normalized state event. Field-name
// variants are coalesced with the top-level name winning over the
// nested tool input block.
func (r Record) Event() state.Event {
	input := r.ToolInput
	if input == nil {
		input = r.Input
	}

	event := state.Event{
		Tool:      r.WaitingTool(),
		SessionID: r.Session(),
		Machine:   r.MachineName,
		FilePath:  r.FilePath,
		Command:   r.Command,
		CWD:       r.CWD,
	}
	if event.FilePath == "" {
		event.FilePath = r.FilePathAlt
	}
	if event.CWD == "" {
		event.CWD = r.WorkingDirectory
	}

	if input != nil {
		if event.FilePath == "" {
			event.FilePath = input.FilePath
		}
		if event.Command == "" {
			event.Command = input.Command
		}
		event.Pattern = input.Pattern
		event.URL = input.URL
		if event.URL == "" {
			event.URL = input.Query
		}
		event.Description = input.Description
	}

	if r.Tokens != nil {
		event.Tokens = &protocol.TokenCounts{
			Input:         r.Tokens.Input,
			Output:        r.Tokens.Output,
			CacheRead:     r.Tokens.CacheRead,
			CacheCreation: r.Tokens.CacheCreation,
		}
	}
	return event
}

// HookEvent is Event with the hook-delivery session default applied.
// Used by the hook endpoint, where an anonymous record still belongs
// to a live agent session.
func (r Record) HookEvent() state.Event {
	event := r.Event()
	if event.SessionID == "" {
		event.SessionID = DefaultHookSession
	}
	return event
}
