// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"sort"
	"testing"

	"github.com/constellation-live/constellation/lib/protocol"
)

func TestSnapshotEmptyStore(t *testing.T) {
	store, _, _ := newTestStore(t)

	snapshot := store.Snapshot()
	if snapshot.Type != protocol.TypeInit {
		t.Fatalf("snapshot type %q, want %q", snapshot.Type, protocol.TypeInit)
	}
	if len(snapshot.Machines) != 0 || len(snapshot.Sessions) != 0 ||
		len(snapshot.Files) != 0 || len(snapshot.Folders) != 0 ||
		len(snapshot.Terminals) != 0 {
		t.Fatalf("fresh store snapshot not empty: %+v", snapshot)
	}
	if snapshot.Global != (protocol.GlobalTokens{}) {
		t.Fatalf("fresh store global %+v, want zero", snapshot.Global)
	}
}

func TestSnapshotCollectionsSorted(t *testing.T) {
	store, _, _ := newTestStore(t)

	// Insert in reverse lexical order to exercise the sort.
	store.Process(Event{Tool: ToolRead, SessionID: "s9", Machine: "zeta", FilePath: "/home/u/zz/z.py"})
	store.Process(Event{Tool: ToolRead, SessionID: "s1", Machine: "alpha", FilePath: "/home/u/aa/a.py"})
	store.Process(Event{Tool: ToolBash, SessionID: "s5", Machine: "mid", Command: "true"})

	snapshot := store.Snapshot()

	machineNames := make([]string, len(snapshot.Machines))
	for i, m := range snapshot.Machines {
		machineNames[i] = m.Name
	}
	if !sort.StringsAreSorted(machineNames) {
		t.Fatalf("machines not sorted: %v", machineNames)
	}

	sessionIDs := make([]string, len(snapshot.Sessions))
	for i, sess := range snapshot.Sessions {
		sessionIDs[i] = sess.ID
	}
	if !sort.StringsAreSorted(sessionIDs) {
		t.Fatalf("sessions not sorted: %v", sessionIDs)
	}

	filePaths := make([]string, len(snapshot.Files))
	for i, f := range snapshot.Files {
		filePaths[i] = f.Path
	}
	if !sort.StringsAreSorted(filePaths) {
		t.Fatalf("files not sorted: %v", filePaths)
	}

	folderPaths := make([]string, len(snapshot.Folders))
	for i, f := range snapshot.Folders {
		folderPaths[i] = f.Path
	}
	if !sort.StringsAreSorted(folderPaths) {
		t.Fatalf("folders not sorted: %v", folderPaths)
	}
}

func TestSnapshotMatchesIncrementalState(t *testing.T) {
	store, _, _ := newTestStore(t)

	store.Process(Event{
		Tool: ToolEdit, SessionID: "s1", Machine: "m1",
		FilePath: "/home/u/proj/lib/core.py", CWD: "/home/u/proj",
		Tokens: &protocol.TokenCounts{Input: 1000, Output: 200, CacheRead: 400},
	})
	store.Process(Event{Tool: ToolRead, SessionID: "s2", Machine: "m1", FilePath: "/home/u/proj/lib/core.py"})

	snapshot := store.Snapshot()

	sess := findSession(t, snapshot, "s1")
	if sess.Machine != "m1" || sess.CWD != "/home/u/proj" || !sess.Active {
		t.Fatalf("session state %+v", sess)
	}
	if sess.Tokens.Input != 1000 || sess.Tokens.Output != 200 {
		t.Fatalf("session tokens %+v", sess.Tokens)
	}
	if sess.ContextUsage.Current != 1400 || sess.ContextUsage.Max != DefaultMaxContext {
		t.Fatalf("context usage %+v", sess.ContextUsage)
	}

	f := findFile(t, snapshot, "/home/u/proj/lib/core.py")
	if f.Name != "core.py" {
		t.Fatalf("file name %q, want core.py", f.Name)
	}
	if len(f.Sessions) != 2 || f.Sessions[0] != "s1" || f.Sessions[1] != "s2" {
		t.Fatalf("file reference list %v, want [s1 s2]", f.Sessions)
	}
	if f.LastInteraction == nil || f.LastInteraction.Tool != ToolRead {
		t.Fatalf("last interaction %+v, want a Read", f.LastInteraction)
	}

	if snapshot.Global.TotalInput != 1000 || snapshot.Global.TotalOutput != 200 {
		t.Fatalf("global aggregate %+v", snapshot.Global)
	}
	if global := store.GlobalTokens(); global != snapshot.Global {
		t.Fatalf("GlobalTokens %+v disagrees with snapshot %+v", global, snapshot.Global)
	}
}

func TestSnapshotFolderDepths(t *testing.T) {
	store, _, _ := newTestStore(t)

	store.Process(Event{Tool: ToolRead, SessionID: "s1", Machine: "m1", FilePath: "/home/u/a/b/c/d.py"})

	snapshot := store.Snapshot()
	wantDepth := map[string]int{"/a": 0, "/a/b": 1, "/a/b/c": 2}
	if len(snapshot.Folders) != len(wantDepth) {
		t.Fatalf("folders %+v, want %v", snapshot.Folders, wantDepth)
	}
	for _, folder := range snapshot.Folders {
		depth, ok := wantDepth[folder.Path]
		if !ok || folder.Depth != depth {
			t.Fatalf("folder %+v, want depth map %v", folder, wantDepth)
		}
	}
}
