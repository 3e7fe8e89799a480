// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// Package broadcast fans state notifications out to connected viewers.
//
// The hub holds a registry of subscribers, each with a buffered frame
// channel and a preferred wire format. Broadcast encodes a message at
// most once per format in use and delivers it with non-blocking sends:
// a subscriber whose buffer is full has the frame dropped and is marked
// for resync, so the connection handler can recover it with a fresh
// snapshot instead of stalling every other viewer behind one slow
// socket.
package broadcast
