// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// constellation-viewer is a terminal UI for watching live agent
// activity. It connects to the server's native TCP feed, applies the
// init snapshot and every subsequent CBOR frame to a local mirror of
// the entity graph, and renders machines, sessions, files, and
// terminals with token usage as they change.
//
// The mirror applies frames exactly the way a browser viewer applies
// the WebSocket stream, so the TUI shows the same state a browser
// would.
package main
