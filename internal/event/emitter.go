// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package event defines the sink the pipeline pushes progress and review
// notifications into. The transport layer (sockets, CLI output) implements
// Emitter; the pipeline never talks to a transport directly.
package event

import (
	"sync"

	"go.uber.org/zap"
)

// Emitter receives named events with an arbitrary payload. Implementations
// must not block: the pipeline emits from its hot path and does not wait
// for listeners.
type Emitter interface {
	Emit(event string, payload any)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(string, any) {}

// Logger emits events as structured log lines. Used by the CLI, where no
// socket transport exists.
type Logger struct {
	Log *zap.Logger
}

func (l Logger) Emit(event string, payload any) {
	l.Log.Info("event", zap.String("event", event), zap.Any("payload", payload))
}

// Recorded is one captured emission.
type Recorded struct {
	Event   string
	Payload any
}

// Recorder captures emissions for inspection in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func (r *Recorder) Emit(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Event: event, Payload: payload})
}

// Events returns a copy of everything captured so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns captured emissions matching event.
func (r *Recorder) Named(event string) []Recorded {
	var out []Recorded
	for _, e := range r.Events() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
