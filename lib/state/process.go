// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"fmt"
	"math"

	"github.com/constellation-live/constellation/lib/pathchain"
	"github.com/constellation-live/constellation/lib/protocol"
)

// Process ingests one normalized event: it resolves or creates the
// machine and session, folds cumulative token counters into the global
// aggregate, refreshes activity and the thinking pulse, and updates
// whichever entities the tool kind touches. Each mutation emits exactly
// one notification.
func (s *Store) Process(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID := event.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	machineName := event.Machine
	if machineName == "" {
		machineName = UnknownMachine
	}

	m := s.machineLocked(machineName)
	sess := s.ensureSessionLocked(sessionID, machineName, m, event.CWD)

	if event.Tokens != nil {
		s.updateTokensLocked(sessionID, sess, *event.Tokens)
	}

	if event.CWD != "" && sess.cwd == "" {
		sess.cwd = event.CWD
	}

	now := s.clock.Now()
	sess.active = true
	sess.lastActivity = now

	// A session first seen without a machine name adopts the real
	// machine on the first event that names one.
	if sess.machine == UnknownMachine && machineName != UnknownMachine {
		if unknown, ok := s.machines[UnknownMachine]; ok {
			delete(unknown.sessions, sessionID)
		}
		sess.machine = machineName
		sess.color = m.color
		m.sessions[sessionID] = struct{}{}
		s.emitLocked(protocol.SessionUpdate{
			Type:      protocol.TypeSessionUpdate,
			SessionID: sessionID,
			Machine:   machineName,
			Color:     m.color,
		})
	}

	if sess.waiting {
		sess.waiting = false
		sess.waitingTool = ""
		s.emitLocked(protocol.SessionWaiting{
			Type:      protocol.TypeSessionWaiting,
			SessionID: sessionID,
			Waiting:   false,
		})
	}

	s.startThinkingLocked(sessionID, sess)

	switch {
	case fileTools[event.Tool]:
		filePath := event.FilePath
		if filePath == "" {
			switch event.Tool {
			case ToolGlob:
				filePath = patternKey(event.Pattern, "glob:*")
			case ToolGrep:
				filePath = patternKey(event.Pattern, "grep:*")
			}
		}
		if filePath != "" {
			s.touchFileLocked(sessionID, sess, event.Tool, filePath)
		}

	case event.Tool == ToolWebFetch || event.Tool == ToolWebSearch:
		url := event.URL
		if url == "" {
			url = "web"
		}
		s.emitLocked(protocol.WebInteraction{
			Type:      protocol.TypeWebInteraction,
			SessionID: sessionID,
			WebID:     fmt.Sprintf("web_%s_%d", sessionID, now.UnixMilli()),
			Tool:      event.Tool,
			URL:       truncate(url, maxDisplayLength),
			Color:     toolColor(event.Tool),
		})

	case event.Tool == ToolTask:
		description := event.Description
		if description == "" {
			description = "subagent"
		}
		s.emitLocked(protocol.TaskInteraction{
			Type:        protocol.TypeTaskInteraction,
			SessionID:   sessionID,
			Description: truncate(description, maxDisplayLength),
			Color:       toolColor(ToolTask),
		})

	case event.Tool == ToolBash:
		s.touchTerminalLocked(sessionID, sess, machineName, event.Command)
	}
}

// SetWaiting is the permission-request bypass: it creates the session
// if absent and puts it into the waiting sub-state directly, skipping
// normal event mapping. The next ordinary event clears the flag.
func (s *Store) SetWaiting(sessionID, toolName, machineName, cwd string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	if machineName == "" {
		machineName = UnknownMachine
	}

	m := s.machineLocked(machineName)
	sess := s.ensureSessionLocked(sessionID, machineName, m, cwd)

	sess.waiting = true
	sess.waitingTool = toolName
	sess.active = true
	sess.lastActivity = s.clock.Now()
	// Waiting excludes thinking: the agent is blocked on the operator,
	// not working.
	s.stopThinkingTimerLocked(sess)
	sess.thinking = false

	s.emitLocked(protocol.SessionWaiting{
		Type:      protocol.TypeSessionWaiting,
		SessionID: sessionID,
		Waiting:   true,
		Tool:      toolName,
	})
}

// Pulse emits an activity_pulse notification. The projects watcher
// calls this on raw filesystem activity that cannot be attributed to a
// session.
func (s *Store) Pulse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(protocol.ActivityPulse{Type: protocol.TypeActivityPulse})
}

// ensureSessionLocked resolves or creates the session, registering a
// new session in its machine's set and emitting session_add.
func (s *Store) ensureSessionLocked(sessionID, machineName string, m *machine, cwd string) *session {
	sess, ok := s.sessions[sessionID]
	if ok {
		return sess
	}

	if cwd == "" {
		cwd = s.basePath
	}
	x, y := sessionCoords()
	sess = &session{
		machine:      machineName,
		color:        m.color,
		active:       true,
		lastActivity: s.clock.Now(),
		cwd:          cwd,
		files:        make(map[string]struct{}),
		terminals:    make(map[string]struct{}),
		x:            x,
		y:            y,
	}
	s.sessions[sessionID] = sess
	m.sessions[sessionID] = struct{}{}

	s.emitLocked(protocol.SessionAdd{
		Type:      protocol.TypeSessionAdd,
		SessionID: sessionID,
		Machine:   machineName,
		Color:     m.color,
		Session:   s.sessionState(sessionID, sess),
	})
	return sess
}

// updateTokensLocked overwrites the session's cumulative counters,
// adds the clamped per-category delta to the global aggregate, and
// recomputes context usage. Duplicate reports yield a zero delta; a
// counter that moved backward is silently absorbed.
func (s *Store) updateTokensLocked(sessionID string, sess *session, counts protocol.TokenCounts) {
	delta := protocol.TokenCounts{
		Input:         clampDelta(counts.Input - sess.lastSeen.Input),
		Output:        clampDelta(counts.Output - sess.lastSeen.Output),
		CacheRead:     clampDelta(counts.CacheRead - sess.lastSeen.CacheRead),
		CacheCreation: clampDelta(counts.CacheCreation - sess.lastSeen.CacheCreation),
	}

	sess.tokens = counts
	sess.lastSeen = counts

	s.global.TotalInput += delta.Input
	s.global.TotalOutput += delta.Output
	s.global.TotalCacheRead += delta.CacheRead
	s.global.TotalCacheCreation += delta.CacheCreation

	current := counts.Input + counts.CacheRead
	sess.contextUsage = protocol.ContextUsage{
		Current: current,
		Max:     s.maxContext,
		Percent: int(math.Round(float64(current) / float64(s.maxContext) * 100)),
	}

	s.emitLocked(protocol.TokenUpdate{
		Type:         protocol.TypeTokenUpdate,
		SessionID:    sessionID,
		Tokens:       sess.tokens,
		Delta:        delta,
		Global:       s.global,
		ContextUsage: sess.contextUsage,
	})
}

// startThinkingLocked lights the thinking flag and (re-)arms the
// auto-clear. Arming stops any prior pending timer so at most one
// clear is ever scheduled per session.
func (s *Store) startThinkingLocked(sessionID string, sess *session) {
	sess.thinking = true
	s.emitLocked(protocol.SessionThinking{
		Type:      protocol.TypeSessionThinking,
		SessionID: sessionID,
		Thinking:  true,
	})

	s.stopThinkingTimerLocked(sess)
	sess.thinkTimer = s.clock.AfterFunc(s.thinkingPulse, func() {
		s.clearThinking(sessionID)
	})
}

// stopThinkingTimerLocked cancels a pending thinking auto-clear.
func (s *Store) stopThinkingTimerLocked(sess *session) {
	if sess.thinkTimer != nil {
		sess.thinkTimer.Stop()
		sess.thinkTimer = nil
	}
}

// clearThinking is the thinking-timer callback. The session may have
// been removed, re-armed, or marked waiting since the timer was set;
// it only clears a flag that is still lit.
func (s *Store) clearThinking(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || !sess.thinking {
		return
	}
	sess.thinking = false
	s.emitLocked(protocol.SessionThinking{
		Type:      protocol.TypeSessionThinking,
		SessionID: sessionID,
		Thinking:  false,
	})
}

// touchFileLocked resolves the folder chain for filePath, lazily
// creating and linking ancestor folders, then creates or updates the
// file and emits file_interaction.
func (s *Store) touchFileLocked(sessionID string, sess *session, tool, filePath string) {
	chain := pathchain.Chain(filePath, sess.cwd, s.basePath)

	parentPath := ""
	for _, ancestor := range chain {
		node, ok := s.folders[ancestor.Path]
		if !ok {
			node = &folder{
				name:     ancestor.Name,
				depth:    ancestor.Depth,
				sessions: make(map[string]struct{}),
				children: make(map[string]struct{}),
			}
			s.folders[ancestor.Path] = node
		}
		node.sessions[sessionID] = struct{}{}
		if parent, ok := s.folders[parentPath]; ok {
			parent.children[ancestor.Path] = struct{}{}
		}
		parentPath = ancestor.Path
	}

	parentFolder := ""
	if len(chain) > 0 {
		parentFolder = chain[len(chain)-1].Path
	}

	f, ok := s.files[filePath]
	if !ok {
		x, y := entityCoords()
		f = &file{
			name:     baseName(filePath),
			sessions: make(map[string]struct{}),
			x:        x,
			y:        y,
		}
		s.files[filePath] = f
	}
	f.sessions[sessionID] = struct{}{}
	f.parentFolder = parentFolder
	sess.files[filePath] = struct{}{}

	color := toolColor(tool)
	f.lastInteraction = &protocol.Interaction{
		Tool:  tool,
		Color: color,
		Time:  s.clock.Now().UnixMilli(),
	}

	s.emitLocked(protocol.FileInteraction{
		Type:         protocol.TypeFileInteraction,
		SessionID:    sessionID,
		FilePath:     filePath,
		FileName:     f.name,
		ParentFolder: parentFolder,
		Folders:      chain,
		Interaction:  tool,
		Color:        color,
		File:         fileState(filePath, f),
	})
}

// touchTerminalLocked upserts the session's single terminal. Display
// coordinates are rolled only on first creation.
func (s *Store) touchTerminalLocked(sessionID string, sess *session, machineName, command string) {
	terminalID := "term_" + sessionID
	if command == "" {
		command = "unknown"
	}

	t, exists := s.terminals[terminalID]
	if !exists {
		x, y := entityCoords()
		t = &terminal{sessionID: sessionID, x: x, y: y}
		s.terminals[terminalID] = t
	}
	t.command = truncate(command, maxDisplayLength)
	t.machine = machineName
	t.time = s.clock.Now()
	sess.terminals[terminalID] = struct{}{}

	s.emitLocked(protocol.TerminalInteraction{
		Type:       protocol.TypeTerminalInteraction,
		SessionID:  sessionID,
		TerminalID: terminalID,
		Command:    t.command,
		IsNew:      !exists,
		Terminal:   terminalState(terminalID, t),
	})
}

// patternKey returns the synthetic file key for a pattern-based tool
// lacking an explicit path.
func patternKey(pattern, fallback string) string {
	if pattern != "" {
		return pattern
	}
	return fallback
}
