// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"sort"

	"github.com/constellation-live/constellation/lib/pathchain"
	"github.com/constellation-live/constellation/lib/protocol"
)

// Snapshot returns the full init message for a newly connected viewer:
// every machine, session, file, folder, and terminal plus the current
// global token aggregate, with all set-valued fields flattened to
// sorted lists. A viewer that applies the snapshot and then every
// subsequent notification in order holds the same logical state as the
// store.
func (s *Store) Snapshot() protocol.Init {
	s.mu.Lock()
	defer s.mu.Unlock()

	machines := make([]protocol.MachineState, 0, len(s.machines))
	for _, name := range sortedMachineNames(s.machines) {
		m := s.machines[name]
		machines = append(machines, protocol.MachineState{
			Name:         name,
			Color:        m.color,
			SessionCount: len(m.sessions),
		})
	}

	sessions := make([]protocol.SessionState, 0, len(s.sessions))
	for _, id := range sortedSessionIDs(s.sessions) {
		sessions = append(sessions, s.sessionState(id, s.sessions[id]))
	}

	filePaths := make([]string, 0, len(s.files))
	for filePath := range s.files {
		filePaths = append(filePaths, filePath)
	}
	sort.Strings(filePaths)
	files := make([]protocol.FileState, 0, len(filePaths))
	for _, filePath := range filePaths {
		files = append(files, fileState(filePath, s.files[filePath]))
	}

	folderPaths := make([]string, 0, len(s.folders))
	for folderPath := range s.folders {
		folderPaths = append(folderPaths, folderPath)
	}
	sort.Strings(folderPaths)
	folders := make([]pathchain.Folder, 0, len(folderPaths))
	for _, folderPath := range folderPaths {
		node := s.folders[folderPath]
		folders = append(folders, pathchain.Folder{
			Path:  folderPath,
			Name:  node.name,
			Depth: node.depth,
		})
	}

	terminalIDs := make([]string, 0, len(s.terminals))
	for id := range s.terminals {
		terminalIDs = append(terminalIDs, id)
	}
	sort.Strings(terminalIDs)
	terminals := make([]protocol.TerminalState, 0, len(terminalIDs))
	for _, id := range terminalIDs {
		terminals = append(terminals, terminalState(id, s.terminals[id]))
	}

	return protocol.Init{
		Type:      protocol.TypeInit,
		Machines:  machines,
		Sessions:  sessions,
		Files:     files,
		Folders:   folders,
		Terminals: terminals,
		Global:    s.global,
	}
}

// GlobalTokens returns the current global aggregate.
func (s *Store) GlobalTokens() protocol.GlobalTokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.global
}

func sortedMachineNames(machines map[string]*machine) []string {
	names := make([]string, 0, len(machines))
	for name := range machines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
