// Package feedback forwards session events to audio and visual notifiers.
//
// Sinks are fire-and-forget: Notify never blocks the collector loop for long
// and never reports failure to it.
package feedback

import (
	"fmt"
	"io"
	"sync"

	"github.com/ayusman/wakeguard/internal/session"
	"github.com/sirupsen/logrus"
)

// Sink receives session events.
type Sink interface {
	Notify(ev session.Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev session.Event)

// Notify calls f(ev).
func (f SinkFunc) Notify(ev session.Event) { f(ev) }

// Multi fans events out to several sinks in order.
type Multi []Sink

// Notify forwards ev to every sink.
func (m Multi) Notify(ev session.Event) {
	for _, s := range m {
		if s != nil {
			s.Notify(ev)
		}
	}
}

// LogSink records events in the log.
type LogSink struct {
	Log logrus.FieldLogger
}

// Notify logs ev at info level.
func (s LogSink) Notify(ev session.Event) {
	s.Log.WithField("event", string(ev)).Info("feedback")
}

// BellSink writes a terminal bell and a short banner for each event.
type BellSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewBellSink creates a BellSink writing to out.
func NewBellSink(out io.Writer) *BellSink {
	return &BellSink{out: out}
}

// Notify writes the bell; write errors are ignored.
func (s *BellSink) Notify(ev session.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\a🔔 %s\n", banner(ev))
}

func banner(ev session.Event) string {
	switch ev {
	case session.EventStart:
		return "START"
	case session.EventStageComplete:
		return "STAGE COMPLETE"
	case session.EventSessionComplete:
		return "SESSION COMPLETE"
	default:
		return string(ev)
	}
}
