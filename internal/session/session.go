// Package session implements the staged acquisition state machine.
//
// Step is a pure transition function: it takes the current State and one
// frame's input and returns the next State, at most one Sample, and the
// feedback events raised by the transition. The caller owns the state and
// applies the results; nothing here performs I/O.
package session

import (
	"github.com/ayusman/wakeguard/internal/dataset"
	"github.com/ayusman/wakeguard/internal/detector"
	"github.com/ayusman/wakeguard/internal/features"
	"github.com/ayusman/wakeguard/internal/protocol"
)

// Event is a feedback notification raised by a transition.
type Event string

const (
	// EventStart is raised when recording is toggled on.
	EventStart Event = "start"
	// EventStageComplete is raised when a stage reaches its target.
	EventStageComplete Event = "stage_complete"
	// EventSessionComplete is raised when the last stage completes.
	EventSessionComplete Event = "session_complete"
)

// State is the mutable progress of a collection session.
// The zero value is the initial state: first stage, nothing collected, paused.
type State struct {
	StageIndex int  `json:"stage_index"`
	Collected  int  `json:"collected"`
	Recording  bool `json:"recording"`
}

// Done reports whether every stage of p has been completed.
func (s State) Done(p *protocol.Protocol) bool {
	return s.StageIndex >= p.Count()
}

// Input is what the collector observed during one frame.
type Input struct {
	// HasLandmarks is false when the detector found no face.
	HasLandmarks bool
	// Subset holds the selected landmarks when HasLandmarks is true.
	Subset []detector.Point3D
	// Toggle is set when the user asked to start or pause recording.
	Toggle bool
}

// Result is the outcome of one Step.
type Result struct {
	State  State
	Sample *dataset.Sample
	Events []Event
}

// Has reports whether ev was raised.
func (r Result) Has(ev Event) bool {
	for _, e := range r.Events {
		if e == ev {
			return true
		}
	}
	return false
}

// Step advances the session by one frame.
//
// Once every stage is done the state is absorbing. Otherwise the toggle is
// applied first, then, if recording and a face was seen, the frame is either
// recorded or, when the stage target is already met, the stage completes:
// recording pauses, the count resets and the next stage is selected.
// Frames without landmarks never change the counters.
func Step(p *protocol.Protocol, s State, in Input) Result {
	res := Result{State: s}

	if s.Done(p) {
		return res
	}

	if in.Toggle {
		res.State.Recording = !res.State.Recording
		if res.State.Recording {
			res.Events = append(res.Events, EventStart)
		}
	}

	if !res.State.Recording || !in.HasLandmarks {
		return res
	}

	stage, _ := p.Get(res.State.StageIndex)

	if res.State.Collected < stage.Target {
		res.Sample = &dataset.Sample{
			Features: features.Normalize(in.Subset),
			Label:    stage.Label,
		}
		res.State.Collected++
		return res
	}

	res.Events = append(res.Events, EventStageComplete)
	res.State.Recording = false
	res.State.Collected = 0
	res.State.StageIndex++
	if res.State.Done(p) {
		res.Events = append(res.Events, EventSessionComplete)
	}

	return res
}
