// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"sort"

	"github.com/constellation-live/constellation/lib/pathchain"
	"github.com/constellation-live/constellation/lib/protocol"
)

// Mirror is the viewer-side replica of the server's entity graph. An
// init snapshot resets it; every later frame mutates it in place.
// Frames carry absolute state, so applying a frame twice (as happens
// when a notification lands both in the snapshot and on the stream) is
// harmless.
//
// Two frame types imply state beyond their own fields:
//
//   - session_active with active=false also clears the thinking flag;
//     the server drops the flag without a separate frame.
//   - session_remove also removes the session from every file's
//     reference list; surviving shared files get no frame of their
//     own.
type Mirror struct {
	machines  map[string]protocol.MachineState
	sessions  map[string]protocol.SessionState
	files     map[string]protocol.FileState
	folders   map[string]pathchain.Folder
	terminals map[string]protocol.TerminalState
	global    protocol.GlobalTokens

	// pulses counts activity_pulse frames since connect.
	pulses int
}

func NewMirror() *Mirror {
	m := &Mirror{}
	m.reset()
	return m
}

func (m *Mirror) reset() {
	m.machines = make(map[string]protocol.MachineState)
	m.sessions = make(map[string]protocol.SessionState)
	m.files = make(map[string]protocol.FileState)
	m.folders = make(map[string]pathchain.Folder)
	m.terminals = make(map[string]protocol.TerminalState)
	m.global = protocol.GlobalTokens{}
}

// Apply folds one frame into the mirror.
func (m *Mirror) Apply(message protocol.Message) {
	switch msg := message.(type) {
	case *protocol.Init:
		m.reset()
		for _, machine := range msg.Machines {
			m.machines[machine.Name] = machine
		}
		for _, sess := range msg.Sessions {
			m.sessions[sess.ID] = sess
		}
		for _, f := range msg.Files {
			m.files[f.Path] = f
		}
		for _, folder := range msg.Folders {
			m.folders[folder.Path] = folder
		}
		for _, t := range msg.Terminals {
			m.terminals[t.ID] = t
		}
		m.global = msg.Global

	case *protocol.MachineAdd:
		m.machines[msg.MachineName] = protocol.MachineState{
			Name:  msg.MachineName,
			Color: msg.Color,
		}

	case *protocol.SessionAdd:
		sess := msg.Session
		sess.ID = msg.SessionID
		m.sessions[msg.SessionID] = sess

	case *protocol.SessionUpdate:
		if sess, ok := m.sessions[msg.SessionID]; ok {
			sess.Machine = msg.Machine
			sess.Color = msg.Color
			m.sessions[msg.SessionID] = sess
		}

	case *protocol.SessionActive:
		if sess, ok := m.sessions[msg.SessionID]; ok {
			sess.Active = msg.Active
			if !msg.Active {
				sess.Thinking = false
			}
			m.sessions[msg.SessionID] = sess
		}

	case *protocol.SessionThinking:
		if sess, ok := m.sessions[msg.SessionID]; ok {
			sess.Thinking = msg.Thinking
			if msg.Thinking {
				sess.Active = true
				sess.Waiting = false
				sess.WaitingTool = ""
			}
			m.sessions[msg.SessionID] = sess
		}

	case *protocol.SessionWaiting:
		if sess, ok := m.sessions[msg.SessionID]; ok {
			sess.Waiting = msg.Waiting
			sess.WaitingTool = msg.Tool
			if msg.Waiting {
				sess.Active = true
				sess.Thinking = false
			}
			m.sessions[msg.SessionID] = sess
		}

	case *protocol.TokenUpdate:
		if sess, ok := m.sessions[msg.SessionID]; ok {
			sess.Tokens = msg.Tokens
			sess.ContextUsage = msg.ContextUsage
			m.sessions[msg.SessionID] = sess
		}
		m.global = msg.Global

	case *protocol.FileInteraction:
		m.files[msg.FilePath] = msg.File
		for _, folder := range msg.Folders {
			m.folders[folder.Path] = folder
		}
		if sess, ok := m.sessions[msg.SessionID]; ok {
			sess.Files = addToSet(sess.Files, msg.FilePath)
			m.sessions[msg.SessionID] = sess
		}

	case *protocol.FileRemove:
		delete(m.files, msg.FilePath)

	case *protocol.FolderRemove:
		delete(m.folders, msg.FolderPath)

	case *protocol.TerminalInteraction:
		terminal := msg.Terminal
		terminal.ID = msg.TerminalID
		m.terminals[msg.TerminalID] = terminal
		if sess, ok := m.sessions[msg.SessionID]; ok {
			sess.Terminals = addToSet(sess.Terminals, msg.TerminalID)
			m.sessions[msg.SessionID] = sess
		}

	case *protocol.TerminalRemove:
		delete(m.terminals, msg.TerminalID)

	case *protocol.SessionRemove:
		delete(m.sessions, msg.SessionID)
		for path, f := range m.files {
			f.Sessions = removeFromSet(f.Sessions, msg.SessionID)
			m.files[path] = f
		}
		m.global = msg.Global

	case *protocol.ActivityPulse:
		m.pulses++

	case *protocol.WebInteraction, *protocol.TaskInteraction, *protocol.Heartbeat:
		// Transient frames carry no entity state.
	}
}

// Snapshot flattens the mirror back into init form with every
// collection sorted, for rendering and for comparison against a server
// snapshot. Machine session counts are derived from the session set.
func (m *Mirror) Snapshot() protocol.Init {
	machines := make([]protocol.MachineState, 0, len(m.machines))
	for _, name := range sortedMapKeys(m.machines) {
		machine := m.machines[name]
		machine.SessionCount = 0
		for _, sess := range m.sessions {
			if sess.Machine == name {
				machine.SessionCount++
			}
		}
		machines = append(machines, machine)
	}

	sessions := make([]protocol.SessionState, 0, len(m.sessions))
	for _, id := range sortedMapKeys(m.sessions) {
		sessions = append(sessions, m.sessions[id])
	}

	files := make([]protocol.FileState, 0, len(m.files))
	for _, path := range sortedMapKeys(m.files) {
		files = append(files, m.files[path])
	}

	folders := make([]pathchain.Folder, 0, len(m.folders))
	for _, path := range sortedMapKeys(m.folders) {
		folders = append(folders, m.folders[path])
	}

	terminals := make([]protocol.TerminalState, 0, len(m.terminals))
	for _, id := range sortedMapKeys(m.terminals) {
		terminals = append(terminals, m.terminals[id])
	}

	return protocol.Init{
		Type:      protocol.TypeInit,
		Machines:  machines,
		Sessions:  sessions,
		Files:     files,
		Folders:   folders,
		Terminals: terminals,
		Global:    m.global,
	}
}

// Pulses returns the number of activity pulses seen since connect.
func (m *Mirror) Pulses() int {
	return m.pulses
}

func addToSet(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	list = append(list, value)
	sort.Strings(list)
	return list
}

func removeFromSet(list []string, value string) []string {
	for i, existing := range list {
		if existing == value {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
