// Package audit records the engine's business events. Every state change
// that moves money or alters a policy emits one typed event to the
// configured sink.
package audit

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/siglab/settlement/internal/types"
)

// Sink receives audit events. Implementations must be safe for concurrent
// use; Emit is called while engine locks are held, so it must not block.
type Sink interface {
	Emit(ev types.Event)
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink builds a sink writing through the given logger.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Emit(ev types.Event) {
	s.log.Info().
		Str("event", ev.EventType()).
		Interface("payload", ev).
		Msg("audit event")
}

// MemorySink buffers events in order of emission. Test helper.
type MemorySink struct {
	mu     sync.Mutex
	events []types.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(ev types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of everything emitted so far.
func (s *MemorySink) Events() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Event(nil), s.events...)
}

// OfType filters the buffer by event type.
func (s *MemorySink) OfType(eventType string) []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Event
	for _, ev := range s.events {
		if ev.EventType() == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Emit(types.Event) {}
