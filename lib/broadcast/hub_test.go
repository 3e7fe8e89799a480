// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/constellation-live/constellation/lib/codec"
	"github.com/constellation-live/constellation/lib/protocol"
	"github.com/constellation-live/constellation/lib/testutil"
)

func TestBroadcastDeliversPerFormat(t *testing.T) {
	hub := New(nil)
	jsonSub := hub.Subscribe(FormatJSON)
	cborSub := hub.Subscribe(FormatCBOR)

	hub.Broadcast(protocol.SessionRemove{
		Type:      protocol.TypeSessionRemove,
		SessionID: "s1",
	})

	var fromJSON protocol.SessionRemove
	frame := testutil.RequireReceive(t, jsonSub.Frames(), 5*time.Second, "waiting for JSON frame")
	if err := json.Unmarshal(frame, &fromJSON); err != nil {
		t.Fatalf("decode JSON frame: %v", err)
	}
	if fromJSON.SessionID != "s1" {
		t.Fatalf("JSON frame %+v", fromJSON)
	}

	var fromCBOR protocol.SessionRemove
	frame = testutil.RequireReceive(t, cborSub.Frames(), 5*time.Second, "waiting for CBOR frame")
	if err := codec.Unmarshal(frame, &fromCBOR); err != nil {
		t.Fatalf("decode CBOR frame: %v", err)
	}
	if fromCBOR.SessionID != "s1" {
		t.Fatalf("CBOR frame %+v", fromCBOR)
	}
}

func TestBroadcastPreservesOrder(t *testing.T) {
	hub := New(nil)
	sub := hub.Subscribe(FormatJSON)

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		hub.Broadcast(protocol.FileRemove{Type: protocol.TypeFileRemove, FilePath: id})
	}
	for _, want := range ids {
		var m protocol.FileRemove
		frame := testutil.RequireReceive(t, sub.Frames(), 5*time.Second, "waiting for frame %q", want)
		if err := json.Unmarshal(frame, &m); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if m.FilePath != want {
			t.Fatalf("frame for %q arrived out of order", m.FilePath)
		}
	}
}

func TestOverflowMarksResync(t *testing.T) {
	hub := New(nil)
	sub := hub.Subscribe(FormatJSON)

	for i := 0; i <= subscriberChannelSize; i++ {
		hub.Broadcast(protocol.ActivityPulse{Type: protocol.TypeActivityPulse})
	}

	if len(sub.Frames()) != subscriberChannelSize {
		t.Fatalf("buffered %d frames, want %d", len(sub.Frames()), subscriberChannelSize)
	}
	if !sub.NeedsResync() {
		t.Fatal("overflowed subscriber not marked for resync")
	}
	if sub.NeedsResync() {
		t.Fatal("resync marker not cleared by the read")
	}
}

func TestClosedSubscriberRemovedOnBroadcast(t *testing.T) {
	hub := New(nil)
	sub := hub.Subscribe(FormatJSON)
	if hub.SubscriberCount() != 1 {
		t.Fatalf("subscriber count %d, want 1", hub.SubscriberCount())
	}

	sub.Close()
	hub.Broadcast(protocol.ActivityPulse{Type: protocol.TypeActivityPulse})
	if hub.SubscriberCount() != 0 {
		t.Fatalf("closed subscriber still registered, count %d", hub.SubscriberCount())
	}
	if len(sub.Frames()) != 0 {
		t.Fatal("closed subscriber received a frame")
	}
}

func TestUnsubscribe(t *testing.T) {
	hub := New(nil)
	first := hub.Subscribe(FormatJSON)
	second := hub.Subscribe(FormatJSON)

	hub.Unsubscribe(first)
	if hub.SubscriberCount() != 1 {
		t.Fatalf("subscriber count %d after unsubscribe, want 1", hub.SubscriberCount())
	}
	testutil.RequireClosed(t, first.Done(), time.Second, "unsubscribed subscriber's done channel")

	hub.Broadcast(protocol.ActivityPulse{Type: protocol.TypeActivityPulse})
	if len(second.Frames()) != 1 {
		t.Fatal("remaining subscriber missed the broadcast")
	}
	if len(first.Frames()) != 0 {
		t.Fatal("unsubscribed subscriber received a frame")
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	if _, err := Encode(protocol.ActivityPulse{Type: protocol.TypeActivityPulse}, Format(9)); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}
