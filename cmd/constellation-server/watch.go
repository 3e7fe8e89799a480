// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/constellation-live/constellation/lib/hook"
	"github.com/constellation-live/constellation/lib/state"
)

// historyPollInterval is how long the tailer waits before re-checking
// for a history file that does not exist yet.
const historyPollInterval = 5 * time.Second

// historyTailer follows the agent history log and feeds appended lines
// through the event mapping. Tailing starts at the current end of the
// file: old history is never replayed into live state.
type historyTailer struct {
	path   string
	store  *state.Store
	logger *slog.Logger

	offset  int64
	partial []byte
}

func newHistoryTailer(path string, store *state.Store, logger *slog.Logger) *historyTailer {
	return &historyTailer{path: path, store: store, logger: logger}
}

func (t *historyTailer) run(ctx context.Context) {
	// Wait for the file to appear.
	for {
		info, err := os.Stat(t.path)
		if err == nil {
			t.offset = info.Size()
			break
		}
		t.logger.Info("waiting for history file", "path", t.path)
		select {
		case <-time.After(historyPollInterval):
		case <-ctx.Done():
			return
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.logger.Error("creating history watcher", "error", err)
		return
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors and loggers
	// that rotate the file would otherwise detach the watch.
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		t.logger.Error("watching history directory", "path", t.path, "error", err)
		return
	}

	t.logger.Info("tailing history", "path", t.path, "offset", t.offset)

	for {
		select {
		case event := <-watcher.Events:
			if event.Name != t.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				t.readNew()
			}
		case err := <-watcher.Errors:
			t.logger.Error("history watcher", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

// readNew consumes everything appended since the last read. A file
// smaller than the stored offset means truncation or replacement, and
// tailing restarts from the beginning. A trailing fragment without a
// newline is held until the rest of the line arrives.
func (t *historyTailer) readNew() {
	info, err := os.Stat(t.path)
	if err != nil {
		return
	}
	if info.Size() < t.offset {
		t.offset = 0
		t.partial = nil
	}
	if info.Size() == t.offset {
		return
	}

	file, err := os.Open(t.path)
	if err != nil {
		t.logger.Error("opening history file", "error", err)
		return
	}
	defer file.Close()

	if _, err := file.Seek(t.offset, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		t.logger.Error("reading history file", "error", err)
		return
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	lines := bytes.Split(buf, []byte("\n"))
	t.partial = lines[len(lines)-1]

	for _, line := range lines[:len(lines)-1] {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		record, err := hook.Parse(line)
		if err != nil {
			t.logger.Debug("skipping malformed history line", "error", err)
			continue
		}
		t.store.Process(record.Event())
	}
}

// watchProjects watches the agent projects tree and emits an activity
// pulse whenever a history or transcript file changes. The pulse
// carries no entity data; it only tells viewers something moved.
func watchProjects(ctx context.Context, root string, store *state.Store, logger *slog.Logger) {
	if _, err := os.Stat(root); err != nil {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("creating projects watcher", "error", err)
		return
	}
	defer watcher.Close()

	// fsnotify watches are per-directory, so register the tree up
	// front and add new directories as they appear.
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		watcher.Add(path)
		return nil
	})

	logger.Info("watching projects", "path", root)

	for {
		select {
		case event := <-watcher.Events:
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					watcher.Add(event.Name)
					continue
				}
			}
			if strings.Contains(event.Name, "history") || strings.HasSuffix(event.Name, ".jsonl") {
				store.Pulse()
			}
		case err := <-watcher.Errors:
			logger.Error("projects watcher", "error", err)
		case <-ctx.Done():
			return
		}
	}
}
