// Package progress carries the ordered (percent, message) stream a pipeline
// run reports to its observer, plus the Budget value that apportions the
// 0-100 range across phases and steps.
package progress

import (
	"context"
	"fmt"
	"sync"

	"autocrack/internal/services"
)

// Event is one progress notification.
type Event struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Reporter receives progress events. An error from Emit aborts the run.
type Reporter interface {
	Emit(ctx context.Context, event Event) error
}

// Func adapts a function to Reporter.
type Func func(ctx context.Context, event Event) error

// Emit calls f.
func (f Func) Emit(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Channel delivers events to a channel, blocking until the receiver takes
// them or ctx is cancelled. The channel must stay open for the whole run.
type Channel chan<- Event

// Emit sends event on the channel.
func (c Channel) Emit(ctx context.Context, event Event) error {
	select {
	case c <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends event.
func (r *Recorder) Emit(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Last returns the most recent event.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Discard drops every event.
var Discard Reporter = Func(func(context.Context, Event) error { return nil })

// Stream guards a Reporter for one run: percentages are clamped to 0-100 and
// never move backwards, and reporter failures are marked services.ErrEmit.
type Stream struct {
	reporter Reporter
	last     int
	started  bool
}

// NewStream wraps reporter. A nil reporter discards events.
func NewStream(reporter Reporter) *Stream {
	if reporter == nil {
		reporter = Discard
	}
	return &Stream{reporter: reporter}
}

// Emit reports percent and message.
func (s *Stream) Emit(ctx context.Context, percent int, message string) error {
	percent = min(max(percent, 0), 100)
	if s.started && percent < s.last {
		percent = s.last
	}
	s.last = percent
	s.started = true
	if err := s.reporter.Emit(ctx, Event{Percent: percent, Message: message}); err != nil {
		return fmt.Errorf("%w: report %d%% %q: %w", services.ErrEmit, percent, message, err)
	}
	return nil
}

// Last returns the last percentage emitted.
func (s *Stream) Last() int {
	return s.last
}
