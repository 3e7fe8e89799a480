// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	_ "embed"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/constellation-live/constellation/lib/broadcast"
	"github.com/constellation-live/constellation/lib/hook"
	"github.com/constellation-live/constellation/lib/state"
)

// maxEventBody bounds inbound event payloads. Hook payloads are a few
// kilobytes; anything approaching this limit is garbage.
const maxEventBody = 1 << 20

//go:embed install.sh
var installScript []byte

// Server carries the HTTP surface's dependencies.
type Server struct {
	logger *slog.Logger
	store  *state.Store
	hub    *broadcast.Hub
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/event", s.handleEvent)
	mux.HandleFunc("POST /api/hook", s.handleHook)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /install.sh", s.handleInstall)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// handleEvent ingests a normalized event record.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	record, ok := s.readRecord(w, r)
	if !ok {
		return
	}
	s.store.Process(record.Event())
	writeOK(w)
}

// handleHook ingests a Claude Code hook payload. Permission requests
// bypass normal event mapping and set the waiting sub-state directly;
// everything else is mapped and processed like any other event, with
// the hook-delivery session default applied.
func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	record, ok := s.readRecord(w, r)
	if !ok {
		return
	}

	s.logger.Debug("hook received",
		"machine", record.MachineName,
		"tool", record.WaitingTool(),
		"event", record.HookEventName,
	)

	if record.IsPermissionRequest() {
		sessionID := record.Session()
		if sessionID == "" {
			sessionID = hook.DefaultHookSession
		}
		s.store.SetWaiting(sessionID, record.WaitingTool(), record.MachineName, record.CWD)
		writeOK(w)
		return
	}

	s.store.Process(record.HookEvent())
	writeOK(w)
}

// handleState returns the full snapshot as JSON.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.store.Snapshot()); err != nil {
		s.logger.Debug("writing state response", "error", err)
	}
}

// handleInstall serves the hook installer script.
func (s *Server) handleInstall(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/x-shellscript")
	w.Write(installScript)
}

func (s *Server) readRecord(w http.ResponseWriter, r *http.Request) (hook.Record, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return hook.Record{}, false
	}
	record, err := hook.Parse(body)
	if err != nil {
		s.logger.Debug("rejecting event record", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return hook.Record{}, false
	}
	return record, true
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}`))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Viewers are served from arbitrary origins; the server carries
	// no credentials and every endpoint is already unauthenticated.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket streams the snapshot and all subsequent
// notifications to a browser viewer as JSON text frames.
//
// The subscriber is registered before the snapshot is taken, so no
// notification can fall between the snapshot and the stream. A
// notification emitted in that window is delivered twice: once folded
// into the snapshot and once as a frame. Frames carry absolute state,
// so the duplicate application is harmless.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(broadcast.FormatJSON)
	defer s.hub.Unsubscribe(sub)

	s.logger.Info("viewer connected", "remote", conn.RemoteAddr().String())
	defer s.logger.Info("viewer disconnected", "remote", conn.RemoteAddr().String())

	// The read pump exists only to detect disconnection; viewers
	// send nothing meaningful.
	go func() {
		defer sub.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.writeSnapshot(conn); err != nil {
		return
	}

	for {
		select {
		case frame := <-sub.Frames():
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			if sub.NeedsResync() {
				if err := s.writeSnapshot(conn); err != nil {
					return
				}
			}
		case <-sub.Done():
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeSnapshot(conn *websocket.Conn) error {
	frame, err := broadcast.Encode(s.store.Snapshot(), broadcast.FormatJSON)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}
