// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/constellation-live/constellation/lib/broadcast"
	"github.com/constellation-live/constellation/lib/clock"
	"github.com/constellation-live/constellation/lib/protocol"
	"github.com/constellation-live/constellation/lib/state"
)

// feedServer serves the native TCP feed: a one-way stream of CBOR
// frames, snapshot first, then every notification in order, with
// periodic heartbeats so a viewer can detect a dead server.
type feedServer struct {
	logger    *slog.Logger
	store     *state.Store
	hub       *broadcast.Hub
	clock     clock.Clock
	heartbeat time.Duration
}

func (f *feedServer) serve(ctx context.Context, listener net.Listener) {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Error("feed accept", "error", err)
			return
		}
		go f.handle(ctx, conn)
	}
}

// handle streams one feed connection. Viewers send nothing; a read
// pump detects disconnection, and a write error ends the stream.
func (f *feedServer) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sub := f.hub.Subscribe(broadcast.FormatCBOR)
	defer f.hub.Unsubscribe(sub)

	remote := conn.RemoteAddr().String()
	f.logger.Info("feed viewer connected", "remote", remote)
	defer f.logger.Info("feed viewer disconnected", "remote", remote)

	go func() {
		defer sub.Close()
		buf := make([]byte, 256)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	// Close the connection on shutdown to unblock the read pump.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := f.writeSnapshot(conn); err != nil {
		return
	}

	ticker := f.clock.NewTicker(f.heartbeat)
	defer ticker.Stop()

	heartbeatFrame, err := broadcast.Encode(protocol.Heartbeat{Type: protocol.TypeHeartbeat}, broadcast.FormatCBOR)
	if err != nil {
		f.logger.Error("encode heartbeat", "error", err)
		return
	}

	for {
		select {
		case frame := <-sub.Frames():
			if _, err := conn.Write(frame); err != nil {
				return
			}
			if sub.NeedsResync() {
				if err := f.writeSnapshot(conn); err != nil {
					return
				}
			}
		case <-ticker.C:
			if _, err := conn.Write(heartbeatFrame); err != nil {
				return
			}
		case <-sub.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (f *feedServer) writeSnapshot(conn net.Conn) error {
	frame, err := broadcast.Encode(f.store.Snapshot(), broadcast.FormatCBOR)
	if err != nil {
		return err
	}
	_, err = conn.Write(frame)
	return err
}
