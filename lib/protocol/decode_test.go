// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"testing"

	"github.com/constellation-live/constellation/lib/codec"
)

func TestDecodeJSONRoundTrip(t *testing.T) {
	original := TokenUpdate{
		Type:      TypeTokenUpdate,
		SessionID: "s1",
		Tokens:    TokenCounts{Input: 100, Output: 20},
		Delta:     TokenCounts{Input: 100, Output: 20},
		Global:    GlobalTokens{TotalInput: 100, TotalOutput: 20},
		ContextUsage: ContextUsage{
			Current: 100,
			Max:     200000,
			Percent: 0,
		},
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := Decode(data, json.Unmarshal)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	update, ok := decoded.(*TokenUpdate)
	if !ok {
		t.Fatalf("expected *TokenUpdate, got %T", decoded)
	}
	if update.SessionID != "s1" || update.Tokens.Input != 100 {
		t.Fatalf("decoded message lost fields: %+v", update)
	}
}

func TestDecodeCBORRoundTrip(t *testing.T) {
	original := SessionWaiting{
		Type:      TypeSessionWaiting,
		SessionID: "s2",
		Waiting:   true,
		Tool:      "Bash",
	}
	data, err := codec.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := Decode(data, codec.Unmarshal)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	waiting, ok := decoded.(*SessionWaiting)
	if !ok {
		t.Fatalf("expected *SessionWaiting, got %T", decoded)
	}
	if !waiting.Waiting || waiting.Tool != "Bash" {
		t.Fatalf("decoded message lost fields: %+v", waiting)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"nonsense"}`), json.Unmarshal); err == nil {
		t.Fatal("expected error for unknown message type")
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{not json`), json.Unmarshal); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
