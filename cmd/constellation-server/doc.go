// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// constellation-server is the aggregation server for live agent
// activity. It ingests tool events from three sources (the /api/event
// and /api/hook HTTP endpoints and a tailed history log), folds them
// into the entity graph, and streams the resulting notifications to
// viewers over two transports:
//
//   - /ws, a JSON WebSocket for browser viewers
//   - a native TCP feed carrying CBOR frames for terminal viewers
//
// Every connection starts with a full init snapshot followed by
// incremental updates. GET /install.sh serves the hook installer
// script for agent machines.
package main
