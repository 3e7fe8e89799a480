// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// Package hook maps inbound JSON records onto state events.
//
// Three producers share one record shape: the normalized /api/event
// body, the Claude Code hook payload posted to /api/hook, and lines
// appended to the history log. They disagree on field names
// (sessionId vs session_id, tool vs tool_name, top-level file paths vs
// tool_input nesting), so Record carries every variant and Event
// coalesces them into the single normalized form the state store
// consumes.
package hook
