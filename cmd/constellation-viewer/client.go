// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/constellation-live/constellation/lib/codec"
	"github.com/constellation-live/constellation/lib/protocol"
)

// reconnectDelay is how long the viewer waits before redialing a lost
// feed connection.
const reconnectDelay = 2 * time.Second

// connectedMsg reports a successful dial. Frames follow via frameMsg.
type connectedMsg struct {
	client *feedClient
}

// frameMsg delivers one decoded feed frame to the update loop.
type frameMsg struct {
	message protocol.Message
}

// disconnectMsg reports a failed dial or a broken stream.
type disconnectMsg struct {
	err error
}

// reconnectMsg fires after the reconnect delay.
type reconnectMsg struct{}

// feedClient wraps one feed connection. The decoder owns the read
// side; bubbletea's command loop calls next() for each frame.
type feedClient struct {
	conn    net.Conn
	decoder *codec.Decoder
}

func connect(addr string) tea.Cmd {
	return func() tea.Msg {
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			return disconnectMsg{err: err}
		}
		return connectedMsg{client: &feedClient{
			conn:    conn,
			decoder: codec.NewDecoder(conn),
		}}
	}
}

// next reads and maps one frame. Frames with an unknown discriminator
// are skipped rather than surfaced: a newer server may emit types this
// viewer does not know.
func (c *feedClient) next() tea.Msg {
	for {
		var raw codec.RawMessage
		if err := c.decoder.Decode(&raw); err != nil {
			return disconnectMsg{err: err}
		}
		message, err := protocol.Decode(raw, codec.Unmarshal)
		if err != nil {
			continue
		}
		return frameMsg{message: message}
	}
}

func (c *feedClient) close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func scheduleReconnect() tea.Cmd {
	return tea.Tick(reconnectDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}
