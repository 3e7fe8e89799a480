// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the wire messages exchanged between the
// constellation server and its viewers.
//
// A newly connected viewer receives a single [Init] snapshot describing
// every machine, session, file, folder, and terminal plus the global
// token aggregate. Every subsequent mutation of server state arrives as
// exactly one self-contained notification message; a viewer applies it
// to its local mirror without requesting anything further. There is no
// replay: a viewer that misses messages recovers only by reconnecting
// and receiving a fresh snapshot.
//
// Two mirror rules are not carried on the wire and must be applied by
// viewers:
//
//   - [SessionActive] with Active=false also clears the session's
//     thinking flag.
//   - [SessionRemove] drops the removed session id from every file's
//     reference list.
//
// Structs carry json tags only. The WebSocket transport encodes them
// with encoding/json; the native feed encodes them with lib/codec
// (fxamacker/cbor falls back to the json tag), so both transports share
// one set of message types.
package protocol
