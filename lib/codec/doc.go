// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec centralizes constellation's CBOR configuration. The
// native viewer feed uses CBOR frames; every encoder and decoder in the
// repo goes through this package so the encoding options stay in one
// place. Protocol structs carry json tags only — fxamacker/cbor falls
// back to the json tag when no cbor tag is present, so the same structs
// serve both the WebSocket (JSON) and feed (CBOR) transports.
package codec
