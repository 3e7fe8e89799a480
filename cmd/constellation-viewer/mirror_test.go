// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/constellation-live/constellation/lib/clock"
	"github.com/constellation-live/constellation/lib/protocol"
	"github.com/constellation-live/constellation/lib/state"
)

func TestMirrorThinkingImpliesActive(t *testing.T) {
	mirror := NewMirror()
	mirror.Apply(&protocol.SessionAdd{
		Type:      protocol.TypeSessionAdd,
		SessionID: "s1",
		Session:   protocol.SessionState{ID: "s1", Waiting: true, WaitingTool: "Bash"},
	})
	mirror.Apply(&protocol.SessionThinking{
		Type:      protocol.TypeSessionThinking,
		SessionID: "s1",
		Thinking:  true,
	})

	snapshot := mirror.Snapshot()
	sess := snapshot.Sessions[0]
	if !sess.Thinking || !sess.Active {
		t.Fatalf("thinking session should be active: %+v", sess)
	}
	if sess.Waiting || sess.WaitingTool != "" {
		t.Fatalf("thinking should clear waiting: %+v", sess)
	}
}

func TestMirrorInactiveClearsThinking(t *testing.T) {
	mirror := NewMirror()
	mirror.Apply(&protocol.SessionAdd{
		Type:      protocol.TypeSessionAdd,
		SessionID: "s1",
		Session:   protocol.SessionState{ID: "s1", Active: true, Thinking: true},
	})
	mirror.Apply(&protocol.SessionActive{
		Type:      protocol.TypeSessionActive,
		SessionID: "s1",
		Active:    false,
	})

	sess := mirror.Snapshot().Sessions[0]
	if sess.Active || sess.Thinking {
		t.Fatalf("inactive session should not be thinking: %+v", sess)
	}
}

func TestMirrorWaitingExcludesThinking(t *testing.T) {
	mirror := NewMirror()
	mirror.Apply(&protocol.SessionAdd{
		Type:      protocol.TypeSessionAdd,
		SessionID: "s1",
		Session:   protocol.SessionState{ID: "s1", Active: true, Thinking: true},
	})
	mirror.Apply(&protocol.SessionWaiting{
		Type:      protocol.TypeSessionWaiting,
		SessionID: "s1",
		Waiting:   true,
		Tool:      "Write",
	})

	sess := mirror.Snapshot().Sessions[0]
	if !sess.Waiting || sess.WaitingTool != "Write" {
		t.Fatalf("waiting not recorded: %+v", sess)
	}
	if sess.Thinking {
		t.Fatalf("waiting session should not be thinking: %+v", sess)
	}
}

func TestMirrorSessionRemoveDropsFileReferences(t *testing.T) {
	mirror := NewMirror()
	for _, id := range []string{"s1", "s2"} {
		mirror.Apply(&protocol.SessionAdd{
			Type:      protocol.TypeSessionAdd,
			SessionID: id,
			Session:   protocol.SessionState{ID: id},
		})
	}
	mirror.Apply(&protocol.FileInteraction{
		Type:      protocol.TypeFileInteraction,
		SessionID: "s1",
		FilePath:  "/proj/core.py",
		File: protocol.FileState{
			Path:     "/proj/core.py",
			Name:     "core.py",
			Sessions: []string{"s1", "s2"},
		},
	})
	mirror.Apply(&protocol.SessionRemove{
		Type:      protocol.TypeSessionRemove,
		SessionID: "s1",
	})

	snapshot := mirror.Snapshot()
	if len(snapshot.Files) != 1 {
		t.Fatalf("shared file should survive: %+v", snapshot.Files)
	}
	if got := snapshot.Files[0].Sessions; !reflect.DeepEqual(got, []string{"s2"}) {
		t.Fatalf("file references = %v, want [s2]", got)
	}
}

func TestMirrorSnapshotDerivesSessionCounts(t *testing.T) {
	mirror := NewMirror()
	mirror.Apply(&protocol.MachineAdd{Type: protocol.TypeMachineAdd, MachineName: "m1", Color: "#60a5fa"})
	mirror.Apply(&protocol.MachineAdd{Type: protocol.TypeMachineAdd, MachineName: "unknown", Color: "#a78bfa"})
	for _, id := range []string{"s1", "s2"} {
		mirror.Apply(&protocol.SessionAdd{
			Type:      protocol.TypeSessionAdd,
			SessionID: id,
			Machine:   "unknown",
			Session:   protocol.SessionState{ID: id, Machine: "unknown"},
		})
	}
	mirror.Apply(&protocol.SessionUpdate{
		Type:      protocol.TypeSessionUpdate,
		SessionID: "s1",
		Machine:   "m1",
		Color:     "#60a5fa",
	})

	counts := map[string]int{}
	for _, machine := range mirror.Snapshot().Machines {
		counts[machine.Name] = machine.SessionCount
	}
	if counts["m1"] != 1 || counts["unknown"] != 1 {
		t.Fatalf("session counts = %v", counts)
	}
}

func TestMirrorPulseCounter(t *testing.T) {
	mirror := NewMirror()
	mirror.Apply(&protocol.ActivityPulse{Type: protocol.TypeActivityPulse})
	mirror.Apply(&protocol.ActivityPulse{Type: protocol.TypeActivityPulse})
	if got := mirror.Pulses(); got != 2 {
		t.Fatalf("pulses = %d, want 2", got)
	}
}

func TestMirrorInitResets(t *testing.T) {
	mirror := NewMirror()
	mirror.Apply(&protocol.SessionAdd{
		Type:      protocol.TypeSessionAdd,
		SessionID: "stale",
		Session:   protocol.SessionState{ID: "stale"},
	})
	mirror.Apply(&protocol.Init{
		Type:     protocol.TypeInit,
		Sessions: []protocol.SessionState{{ID: "fresh"}},
		Global:   protocol.GlobalTokens{TotalInput: 10},
	})

	snapshot := mirror.Snapshot()
	if len(snapshot.Sessions) != 1 || snapshot.Sessions[0].ID != "fresh" {
		t.Fatalf("init should replace state: %+v", snapshot.Sessions)
	}
	if snapshot.Global.TotalInput != 10 {
		t.Fatalf("global = %+v", snapshot.Global)
	}
}

// TestMirrorConvergesWithServer drives a real store through session
// creation, machine migration, token updates, waiting, thinking decay,
// and the full removal cascade, relaying every notification through a
// JSON encode/decode round trip into a mirror. After each phase the
// mirror's snapshot must equal the store's.
func TestMirrorConvergesWithServer(t *testing.T) {
	fake := clock.Fake(time.Unix(1000, 0))
	mirror := NewMirror()
	relay := func(message protocol.Message) {
		data, err := json.Marshal(message)
		if err != nil {
			t.Errorf("marshal %T: %v", message, err)
			return
		}
		decoded, err := protocol.Decode(data, json.Unmarshal)
		if err != nil {
			t.Errorf("decode %s: %v", data, err)
			return
		}
		mirror.Apply(decoded)
	}
	store := state.New(state.Options{
		Clock:         fake,
		Notify:        relay,
		BasePath:      "/home/u",
		InactiveAfter: 30 * time.Second,
		RemoveAfter:   5 * time.Minute,
		ThinkingPulse: 3 * time.Second,
	})

	compare := func(phase string) {
		t.Helper()
		want := normalized(store.Snapshot())
		got := normalized(mirror.Snapshot())
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: mirror diverged\n got: %+v\nwant: %+v", phase, got, want)
		}
	}

	tokens := &protocol.TokenCounts{Input: 1000, Output: 200, CacheRead: 400}
	store.Process(state.Event{Tool: "Read", SessionID: "s1", Machine: "m1", FilePath: "/home/u/proj/core.py", Tokens: tokens})
	store.Process(state.Event{Tool: "Bash", SessionID: "s2", Command: "make test"})
	store.Process(state.Event{Tool: "Read", SessionID: "s2", Machine: "m1", FilePath: "/home/u/proj/core.py"})
	store.Process(state.Event{Tool: "WebFetch", SessionID: "s1", URL: "https://example.com"})
	store.Process(state.Event{Tool: "Task", SessionID: "s2", Description: "refactor parser"})
	store.SetWaiting("s1", "Bash", "m1", "")
	store.Pulse()
	compare("after activity")

	// Next tool use clears the permission wait.
	store.Process(state.Event{Tool: "Edit", SessionID: "s1", Machine: "m1", FilePath: "/home/u/proj/core.py"})
	compare("after waiting cleared")

	// Thinking decays once the pulse window passes without new events.
	fake.Advance(4 * time.Second)
	compare("after thinking decay")

	// Both sessions go inactive, then s2 is refreshed so only s1 is
	// removed by the next sweep. The shared file must survive with s2
	// as its sole reference.
	fake.Advance(31 * time.Second)
	store.Sweep()
	compare("after inactivity sweep")

	fake.Advance(4 * time.Minute)
	store.Process(state.Event{Tool: "Read", SessionID: "s2", Machine: "m1", FilePath: "/home/u/proj/core.py"})
	fake.Advance(90 * time.Second)
	store.Sweep()
	compare("after first removal")

	fake.Advance(10 * time.Minute)
	store.Sweep()
	compare("after final removal")

	if got := mirror.Pulses(); got != 1 {
		t.Fatalf("pulses = %d, want 1", got)
	}
}

// normalized zeroes the per-session activity timestamps, which only
// travel in session_add frames and go stale on the mirror afterwards.
func normalized(init protocol.Init) protocol.Init {
	for i := range init.Sessions {
		init.Sessions[i].LastActivity = 0
	}
	return init
}
