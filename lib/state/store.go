// Copyright 2026 The Constellation Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"log/slog"
	"math/rand/v2"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/constellation-live/constellation/lib/clock"
	"github.com/constellation-live/constellation/lib/protocol"
)

// Timing and sizing defaults, matching the documented behavior of the
// hook protocol constellation ingests.
const (
	// DefaultInactiveAfter is how long without activity before a
	// session is marked inactive.
	DefaultInactiveAfter = 30 * time.Second

	// DefaultRemoveAfter is how long without activity before a session
	// is removed and its dependent entities cascaded away.
	DefaultRemoveAfter = 5 * time.Minute

	// DefaultThinkingPulse is how long the thinking flag stays lit
	// after an event unless a new event re-arms it.
	DefaultThinkingPulse = 3 * time.Second

	// DefaultSweepInterval is the lifecycle sweep period.
	DefaultSweepInterval = 5 * time.Second

	// DefaultMaxContext is the model context window size used for the
	// context-usage percentage.
	DefaultMaxContext = 200000

	// maxDisplayLength bounds commands, queries, and task descriptions
	// carried on interaction notifications.
	maxDisplayLength = 50
)

// Options configures a Store. Zero values take the documented defaults.
type Options struct {
	// Clock supplies time and timers. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives structured diagnostics. Defaults to discard.
	Logger *slog.Logger

	// Notify receives every outbound notification, in mutation order.
	// It is called with the store lock held and must not block; the
	// broadcast hub's non-blocking fan-out satisfies this.
	Notify func(protocol.Message)

	// BasePath is the fallback base for path relativization and the
	// default session working directory.
	BasePath string

	InactiveAfter time.Duration
	RemoveAfter   time.Duration
	ThinkingPulse time.Duration
	SweepInterval time.Duration

	// MaxContext is the context window size for usage percentages.
	MaxContext int64

	// Palette is the machine color rotation. Defaults to
	// DefaultPalette.
	Palette []string

	// ColorOverrides maps machine names to fixed colors, taking
	// priority over the palette.
	ColorOverrides map[string]string
}

// Store owns the live entity graph and the global token aggregate.
// All mutation is serialized by a single mutex; see the package doc.
type Store struct {
	clock  clock.Clock
	logger *slog.Logger
	notify func(protocol.Message)

	basePath       string
	inactiveAfter  time.Duration
	removeAfter    time.Duration
	thinkingPulse  time.Duration
	sweepInterval  time.Duration
	maxContext     int64
	palette        []string
	colorOverrides map[string]string

	mu        sync.Mutex
	sessions  map[string]*session
	files     map[string]*file
	folders   map[string]*folder
	terminals map[string]*terminal
	machines  map[string]*machine
	global    protocol.GlobalTokens
}

type session struct {
	machine      string
	color        string
	active       bool
	thinking     bool
	waiting      bool
	waitingTool  string
	lastActivity time.Time
	cwd          string
	tokens       protocol.TokenCounts
	lastSeen     protocol.TokenCounts
	contextUsage protocol.ContextUsage
	files        map[string]struct{}
	terminals    map[string]struct{}
	x, y         float64

	// thinkTimer is the pending auto-clear for the thinking flag.
	// Re-arming stops the previous timer first, so at most one clear
	// is ever pending per session.
	thinkTimer *clock.Timer
}

type file struct {
	name            string
	parentFolder    string
	sessions        map[string]struct{}
	x, y            float64
	lastInteraction *protocol.Interaction
}

type folder struct {
	name     string
	depth    int
	sessions map[string]struct{}
	children map[string]struct{}
}

type terminal struct {
	sessionID string
	command   string
	machine   string
	x, y      float64
	time      time.Time
}

type machine struct {
	color    string
	sessions map[string]struct{}
	lastSeen time.Time
}

// New creates a Store with the given options.
func New(options Options) *Store {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.InactiveAfter <= 0 {
		options.InactiveAfter = DefaultInactiveAfter
	}
	if options.RemoveAfter <= 0 {
		options.RemoveAfter = DefaultRemoveAfter
	}
	if options.ThinkingPulse <= 0 {
		options.ThinkingPulse = DefaultThinkingPulse
	}
	if options.SweepInterval <= 0 {
		options.SweepInterval = DefaultSweepInterval
	}
	if options.MaxContext <= 0 {
		options.MaxContext = DefaultMaxContext
	}
	if len(options.Palette) == 0 {
		options.Palette = DefaultPalette
	}

	return &Store{
		clock:          options.Clock,
		logger:         options.Logger,
		notify:         options.Notify,
		basePath:       options.BasePath,
		inactiveAfter:  options.InactiveAfter,
		removeAfter:    options.RemoveAfter,
		thinkingPulse:  options.ThinkingPulse,
		sweepInterval:  options.SweepInterval,
		maxContext:     options.MaxContext,
		palette:        options.Palette,
		colorOverrides: options.ColorOverrides,
		sessions:       make(map[string]*session),
		files:          make(map[string]*file),
		folders:        make(map[string]*folder),
		terminals:      make(map[string]*terminal),
		machines:       make(map[string]*machine),
	}
}

// emitLocked delivers a notification to the configured sink. Called
// with the store lock held so notifications observe mutation order.
func (s *Store) emitLocked(message protocol.Message) {
	if s.notify != nil {
		s.notify(message)
	}
}

// machineLocked resolves or creates the machine for name, refreshing
// its lastSeen. Creation assigns the next palette color in first-seen
// order unless an override maps the name, and emits machine_add.
func (s *Store) machineLocked(name string) *machine {
	m, ok := s.machines[name]
	if !ok {
		color, overridden := s.colorOverrides[name]
		if !overridden {
			color = s.palette[len(s.machines)%len(s.palette)]
		}
		m = &machine{
			color:    color,
			sessions: make(map[string]struct{}),
		}
		s.machines[name] = m
		s.emitLocked(protocol.MachineAdd{
			Type:        protocol.TypeMachineAdd,
			MachineName: name,
			Color:       color,
		})
	}
	m.lastSeen = s.clock.Now()
	return m
}

// sessionState flattens a session into its wire form.
func (s *Store) sessionState(id string, sess *session) protocol.SessionState {
	return protocol.SessionState{
		ID:           id,
		Active:       sess.active,
		Thinking:     sess.thinking,
		Waiting:      sess.waiting,
		WaitingTool:  sess.waitingTool,
		LastActivity: sess.lastActivity.UnixMilli(),
		Machine:      sess.machine,
		Color:        sess.color,
		CWD:          sess.cwd,
		Tokens:       sess.tokens,
		ContextUsage: sess.contextUsage,
		X:            sess.x,
		Y:            sess.y,
		Files:        sortedKeys(sess.files),
		Terminals:    sortedKeys(sess.terminals),
	}
}

// fileState flattens a file into its wire form.
func fileState(filePath string, f *file) protocol.FileState {
	return protocol.FileState{
		Path:            filePath,
		Name:            f.name,
		ParentFolder:    f.parentFolder,
		Sessions:        sortedKeys(f.sessions),
		X:               f.x,
		Y:               f.y,
		LastInteraction: f.lastInteraction,
	}
}

// terminalState flattens a terminal into its wire form.
func terminalState(id string, t *terminal) protocol.TerminalState {
	return protocol.TerminalState{
		ID:        id,
		SessionID: t.sessionID,
		Command:   t.command,
		Machine:   t.machine,
		X:         t.x,
		Y:         t.y,
		Time:      t.time.UnixMilli(),
	}
}

// sortedKeys flattens a set to a sorted list for deterministic wire
// output.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// truncate bounds s to at most limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// clampDelta keeps per-category token deltas non-negative: a cumulative
// counter that moved backward contributes nothing.
func clampDelta(d int64) int64 {
	if d < 0 {
		return 0
	}
	return d
}

// clampTotal floors an aggregate counter at zero after subtraction.
func clampTotal(total int64) int64 {
	if total < 0 {
		return 0
	}
	return total
}

// baseName returns the final path segment, used as a file display name.
func baseName(filePath string) string {
	return path.Base(filePath)
}

// Display coordinates are ephemeral hints for viewers; they are rolled
// once at entity creation and never influence the model.

func sessionCoords() (float64, float64) {
	return rand.Float64()*600 + 100, rand.Float64()*400 + 100
}

func entityCoords() (float64, float64) {
	return rand.Float64()*700 + 50, rand.Float64()*500 + 50
}
