// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/constellation-live/constellation/lib/state"
)

func newTailerFixture(t *testing.T, initial string) (*historyTailer, *state.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatalf("writing history file: %v", err)
	}
	store := state.New(state.Options{Logger: slog.New(slog.DiscardHandler)})
	tailer := newHistoryTailer(path, store, slog.New(slog.DiscardHandler))
	tailer.offset = int64(len(initial))
	return tailer, store, path
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening history file: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("appending to history file: %v", err)
	}
}

func TestReadNewSkipsExistingHistory(t *testing.T) {
	tailer, store, _ := newTailerFixture(t,
		`{"tool":"Read","sessionId":"old","filePath":"/x.py"}`+"\n")

	tailer.readNew()
	if got := len(store.Snapshot().Sessions); got != 0 {
		t.Fatalf("%d sessions from pre-existing history, want 0", got)
	}
}

func TestReadNewProcessesAppendedLines(t *testing.T) {
	tailer, store, path := newTailerFixture(t, "")

	appendFile(t, path,
		`{"tool":"Read","sessionId":"s1","machine_name":"m1","filePath":"/home/u/a.py"}`+"\n"+
			`{"tool":"Bash","sessionId":"s2","machine_name":"m1","command":"make"}`+"\n")
	tailer.readNew()

	snapshot := store.Snapshot()
	if len(snapshot.Sessions) != 2 {
		t.Fatalf("sessions %+v, want s1 and s2", snapshot.Sessions)
	}
	if len(snapshot.Terminals) != 1 {
		t.Fatalf("terminals %+v", snapshot.Terminals)
	}
}

func TestReadNewHoldsPartialLine(t *testing.T) {
	tailer, store, path := newTailerFixture(t, "")

	appendFile(t, path, `{"tool":"Read","sessionId":"s1",`)
	tailer.readNew()
	if got := len(store.Snapshot().Sessions); got != 0 {
		t.Fatalf("%d sessions from a partial line, want 0", got)
	}

	appendFile(t, path, `"machine_name":"m1"}`+"\n")
	tailer.readNew()
	snapshot := store.Snapshot()
	if len(snapshot.Sessions) != 1 || snapshot.Sessions[0].ID != "s1" {
		t.Fatalf("sessions %+v after completing the line", snapshot.Sessions)
	}
}

func TestReadNewSkipsMalformedLines(t *testing.T) {
	tailer, store, path := newTailerFixture(t, "")

	appendFile(t, path,
		"not json\n"+
			`{"tool":"Read","sessionId":"s1","machine_name":"m1"}`+"\n")
	tailer.readNew()

	snapshot := store.Snapshot()
	if len(snapshot.Sessions) != 1 {
		t.Fatalf("sessions %+v, want the valid line only", snapshot.Sessions)
	}
}

func TestReadNewResetsOnTruncation(t *testing.T) {
	tailer, store, path := newTailerFixture(t, "padding padding padding padding\n")

	// The file is replaced with shorter content, as a log rotation
	// would. Tailing restarts from the beginning.
	if err := os.WriteFile(path, []byte(`{"tool":"Read","sessionId":"s1","machine_name":"m1"}`+"\n"), 0o644); err != nil {
		t.Fatalf("rewriting history file: %v", err)
	}
	tailer.readNew()

	snapshot := store.Snapshot()
	if len(snapshot.Sessions) != 1 || snapshot.Sessions[0].ID != "s1" {
		t.Fatalf("sessions %+v after truncation", snapshot.Sessions)
	}
}
