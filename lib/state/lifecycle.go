// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"sort"
	"strings"

	"github.com/constellation-live/constellation/lib/protocol"
)

// Run drives the lifecycle sweep on the configured interval until the
// context is cancelled. The sweep itself is just another serialized
// mutation competing with event processing for the store lock.
func (s *Store) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Sweep inspects every session's time since last activity: past the
// inactivity threshold the session is marked inactive, past the removal
// threshold it is removed with its full dependent cascade. Sessions are
// processed in id order for deterministic notification sequences.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var expired []string

	for _, sessionID := range sortedSessionIDs(s.sessions) {
		sess := s.sessions[sessionID]
		idle := now.Sub(sess.lastActivity)

		if sess.active && idle > s.inactiveAfter {
			sess.active = false
			sess.thinking = false
			s.stopThinkingTimerLocked(sess)
			s.emitLocked(protocol.SessionActive{
				Type:      protocol.TypeSessionActive,
				SessionID: sessionID,
				Active:    false,
			})
		}

		if idle > s.removeAfter {
			expired = append(expired, sessionID)
		}
	}

	for _, sessionID := range expired {
		s.removeSessionLocked(sessionID)
	}
}

// removeSessionLocked runs the removal cascade for one session. This is
// the only place files, folders, terminals, or sessions are deleted,
// which keeps reference counts and the global aggregate consistent.
//
// Cascade order: file reference release (file_remove when the set
// empties), folder reference release scanned over the entire folder
// population (folder_remove when empty), terminal deletion, machine set
// removal, global aggregate subtraction clamped at zero, session
// deletion with the final session_remove carrying the updated
// aggregate.
func (s *Store) removeSessionLocked(sessionID string) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}

	for _, filePath := range sortedKeys(sess.files) {
		f, ok := s.files[filePath]
		if !ok {
			continue
		}
		delete(f.sessions, sessionID)
		if len(f.sessions) == 0 {
			delete(s.files, filePath)
			s.emitLocked(protocol.FileRemove{
				Type:     protocol.TypeFileRemove,
				FilePath: filePath,
			})
		}
	}

	// Folder references are scanned over the whole population, not
	// just folders on this session's direct chains: a folder created
	// for one file may be referenced through any number of paths.
	// O(total folders) per removed session, bounded by the sweep
	// period.
	var emptied []string
	for folderPath, node := range s.folders {
		delete(node.sessions, sessionID)
		if len(node.sessions) == 0 {
			emptied = append(emptied, folderPath)
		}
	}
	sort.Strings(emptied)
	for _, folderPath := range emptied {
		delete(s.folders, folderPath)
		if parent, ok := s.folders[parentFolderPath(folderPath)]; ok {
			delete(parent.children, folderPath)
		}
		s.emitLocked(protocol.FolderRemove{
			Type:       protocol.TypeFolderRemove,
			FolderPath: folderPath,
		})
	}

	for _, terminalID := range sortedKeys(sess.terminals) {
		delete(s.terminals, terminalID)
		s.emitLocked(protocol.TerminalRemove{
			Type:       protocol.TypeTerminalRemove,
			TerminalID: terminalID,
		})
	}

	if m, ok := s.machines[sess.machine]; ok {
		delete(m.sessions, sessionID)
	}

	s.global.TotalInput = clampTotal(s.global.TotalInput - sess.tokens.Input)
	s.global.TotalOutput = clampTotal(s.global.TotalOutput - sess.tokens.Output)
	s.global.TotalCacheRead = clampTotal(s.global.TotalCacheRead - sess.tokens.CacheRead)
	s.global.TotalCacheCreation = clampTotal(s.global.TotalCacheCreation - sess.tokens.CacheCreation)

	s.stopThinkingTimerLocked(sess)
	delete(s.sessions, sessionID)

	s.emitLocked(protocol.SessionRemove{
		Type:      protocol.TypeSessionRemove,
		SessionID: sessionID,
		Global:    s.global,
	})

	s.logger.Debug("session removed",
		"session_id", sessionID,
		"machine", sess.machine,
	)
}

// parentFolderPath returns the folder path one level up, or "" for a
// top-level folder.
func parentFolderPath(folderPath string) string {
	i := strings.LastIndex(folderPath, "/")
	if i <= 0 {
		return ""
	}
	return folderPath[:i]
}

func sortedSessionIDs(sessions map[string]*session) []string {
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
