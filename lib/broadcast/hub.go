// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/constellation-live/constellation/lib/codec"
	"github.com/constellation-live/constellation/lib/protocol"
)

// Format selects the wire encoding for a subscriber.
type Format int

const (
	// FormatJSON is used by WebSocket viewers.
	FormatJSON Format = iota
	// FormatCBOR is used by the native TCP feed.
	FormatCBOR
)

// subscriberChannelSize is the buffer size for the per-subscriber
// frame channel. Must be large enough to absorb the burst a removal
// cascade produces without drops.
const subscriberChannelSize = 256

// Subscriber is one connected viewer. The connection handler drains
// Frames and writes each frame to its socket; when the connection
// ends it calls Close so the hub can drop the registration.
type Subscriber struct {
	format    Format
	frames    chan []byte
	resync    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// Frames returns the channel of encoded frames for this subscriber.
func (s *Subscriber) Frames() <-chan []byte {
	return s.frames
}

// Done is closed when the subscriber is closed.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Close marks the subscriber disconnected. The hub removes it on the
// next broadcast that observes the closed done channel, or on explicit
// Unsubscribe.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// NeedsResync reports whether a frame was dropped since the last call
// and clears the marker. A handler that sees true should send the
// viewer a fresh snapshot: the dropped frame is gone, and every later
// frame may build on it.
func (s *Subscriber) NeedsResync() bool {
	return s.resync.Swap(false)
}

// Hub is the subscriber registry.
type Hub struct {
	logger *slog.Logger

	mu          sync.Mutex
	subscribers []*Subscriber
}

// New returns an empty hub. A nil logger discards.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{logger: logger}
}

// Subscribe registers a new subscriber with the given wire format.
func (h *Hub) Subscribe(format Format) *Subscriber {
	sub := &Subscriber{
		format: format,
		frames: make(chan []byte, subscriberChannelSize),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	h.subscribers = append(h.subscribers, sub)
	h.mu.Unlock()
	return sub
}

// Unsubscribe closes the subscriber and removes it from the registry.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	sub.Close()
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.subscribers {
		if existing == sub {
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Broadcast encodes the message at most once per format in use and
// delivers it to every live subscriber. Sends are non-blocking: a full
// buffer drops the frame and marks the subscriber for resync, so
// Broadcast never blocks on a slow connection and is safe to call from
// under the state store's lock. Subscribers whose done channel is
// closed are removed in passing.
func (h *Hub) Broadcast(m protocol.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subscribers) == 0 {
		return
	}

	var encoded [2][]byte

	// Iterate in reverse so that removals don't shift unvisited
	// elements.
	for i := len(h.subscribers) - 1; i >= 0; i-- {
		sub := h.subscribers[i]

		select {
		case <-sub.done:
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			continue
		default:
		}

		frame := encoded[sub.format]
		if frame == nil {
			var err error
			frame, err = Encode(m, sub.format)
			if err != nil {
				h.logger.Error("encode broadcast frame",
					"message_type", m.MessageType(),
					"error", err,
				)
				return
			}
			encoded[sub.format] = frame
		}

		select {
		case sub.frames <- frame:
		default:
			sub.resync.Store(true)
			h.logger.Debug("subscriber buffer full, frame dropped",
				"message_type", m.MessageType(),
			)
		}
	}
}

// Encode serializes a message in the given wire format. Connection
// handlers use it for snapshot frames sent outside the broadcast path.
func Encode(m protocol.Message, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.Marshal(m)
	case FormatCBOR:
		return codec.Marshal(m)
	default:
		return nil, fmt.Errorf("unknown wire format %d", format)
	}
}
