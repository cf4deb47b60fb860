package session

import (
	"testing"

	"github.com/ayusman/wakeguard/internal/dataset"
	"github.com/ayusman/wakeguard/internal/detector"
	"github.com/ayusman/wakeguard/internal/features"
	"github.com/ayusman/wakeguard/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustProtocol(t *testing.T, stages ...protocol.Stage) *protocol.Protocol {
	t.Helper()
	p, err := protocol.New(stages)
	require.NoError(t, err)
	return p
}

func faceInput(t *testing.T) Input {
	t.Helper()
	face := detector.NeutralFace()
	subset, err := face.Subset()
	require.NoError(t, err)
	return Input{HasLandmarks: true, Subset: subset}
}

func withToggle(in Input) Input {
	in.Toggle = true
	return in
}

var miss = Input{HasLandmarks: false}

// run feeds inputs through Step, collecting emitted samples and events.
func run(p *protocol.Protocol, s State, inputs ...Input) (State, []dataset.Sample, []Event) {
	var samples []dataset.Sample
	var events []Event
	for _, in := range inputs {
		res := Step(p, s, in)
		s = res.State
		if res.Sample != nil {
			samples = append(samples, *res.Sample)
		}
		events = append(events, res.Events...)
	}
	return s, samples, events
}

func TestStep_InitialState(t *testing.T) {
	var s State
	assert.Equal(t, State{StageIndex: 0, Collected: 0, Recording: false}, s)
	assert.False(t, s.Done(protocol.Default()))
}

func TestStep_PausedFramesAreIgnored(t *testing.T) {
	p := mustProtocol(t, protocol.Stage{Label: 0, Description: "a", Target: 2})
	in := faceInput(t)

	s, samples, events := run(p, State{}, in, in, in)

	assert.Equal(t, State{}, s)
	assert.Empty(t, samples)
	assert.Empty(t, events)
}

func TestStep_ToggleEmitsStartOnlyWhenTurningOn(t *testing.T) {
	p := protocol.Default()

	res := Step(p, State{}, Input{Toggle: true})
	assert.True(t, res.State.Recording)
	assert.Equal(t, []Event{EventStart}, res.Events)

	res = Step(p, res.State, Input{Toggle: true})
	assert.False(t, res.State.Recording)
	assert.Empty(t, res.Events)
}

func TestStep_RecordsUntilTargetThenCompletes(t *testing.T) {
	p := mustProtocol(t,
		protocol.Stage{Label: 0, Description: "alert", Target: 3},
		protocol.Stage{Label: 1, Description: "drowsy", Target: 1},
	)
	in := faceInput(t)

	s, samples, events := run(p, State{}, withToggle(in), in, in)
	require.Len(t, samples, 3)
	assert.Equal(t, State{StageIndex: 0, Collected: 3, Recording: true}, s)
	assert.Equal(t, []Event{EventStart}, events)

	res := Step(p, s, in)
	assert.Nil(t, res.Sample, "no sample on the transitioning frame")
	assert.Equal(t, []Event{EventStageComplete}, res.Events)
	assert.Equal(t, State{StageIndex: 1, Collected: 0, Recording: false}, res.State)
}

func TestStep_SampleCarriesStageLabelAndNormalizedFeatures(t *testing.T) {
	p := mustProtocol(t, protocol.Stage{Label: 1, Description: "drowsy", Target: 5})
	in := withToggle(faceInput(t))

	res := Step(p, State{}, in)
	require.NotNil(t, res.Sample)
	assert.Equal(t, 1, res.Sample.Label)
	assert.Equal(t, features.Normalize(in.Subset), res.Sample.Features)
	assert.Len(t, res.Sample.Features, features.Dim())
}

func TestStep_DetectorMissKeepsCounters(t *testing.T) {
	p := mustProtocol(t, protocol.Stage{Label: 0, Description: "a", Target: 5})
	in := faceInput(t)

	res := Step(p, State{}, withToggle(in))
	require.Equal(t, 1, res.State.Collected)

	after := Step(p, res.State, miss)
	assert.Equal(t, res.State, after.State)
	assert.Nil(t, after.Sample)
	assert.Empty(t, after.Events)

	res = Step(p, after.State, in)
	assert.Equal(t, 2, res.State.Collected)
}

func TestStep_DetectorMissStillAppliesToggle(t *testing.T) {
	p := mustProtocol(t, protocol.Stage{Label: 0, Description: "a", Target: 5})
	start := State{StageIndex: 0, Collected: 2, Recording: false}

	res := Step(p, start, Input{HasLandmarks: false, Toggle: true})
	assert.Equal(t, State{StageIndex: 0, Collected: 2, Recording: true}, res.State)
	assert.Equal(t, []Event{EventStart}, res.Events)
	assert.Nil(t, res.Sample)
}

func TestStep_ZeroTargetCompletesOnFirstQualifyingFrame(t *testing.T) {
	p := mustProtocol(t,
		protocol.Stage{Label: 0, Description: "skip", Target: 0},
		protocol.Stage{Label: 1, Description: "b", Target: 1},
	)

	res := Step(p, State{}, withToggle(faceInput(t)))
	assert.Nil(t, res.Sample)
	assert.Equal(t, []Event{EventStart, EventStageComplete}, res.Events)
	assert.Equal(t, State{StageIndex: 1}, res.State)
}

func TestStep_PauseAtTargetDefersCompletion(t *testing.T) {
	p := mustProtocol(t,
		protocol.Stage{Label: 0, Description: "a", Target: 1},
		protocol.Stage{Label: 1, Description: "b", Target: 1},
	)
	in := faceInput(t)

	s, _, _ := run(p, State{}, withToggle(in))
	require.Equal(t, State{StageIndex: 0, Collected: 1, Recording: true}, s)

	// Pausing while at target does not complete the stage.
	res := Step(p, s, withToggle(in))
	assert.Equal(t, State{StageIndex: 0, Collected: 1, Recording: false}, res.State)
	assert.False(t, res.Has(EventStageComplete))

	// Resuming completes it on the next qualifying frame.
	res = Step(p, res.State, withToggle(in))
	assert.True(t, res.Has(EventStageComplete))
	assert.Equal(t, State{StageIndex: 1}, res.State)
}

func TestStep_DoneIsAbsorbing(t *testing.T) {
	p := mustProtocol(t, protocol.Stage{Label: 0, Description: "a", Target: 1})
	done := State{StageIndex: 1}
	require.True(t, done.Done(p))

	for _, in := range []Input{faceInput(t), withToggle(faceInput(t)), miss, withToggle(miss)} {
		res := Step(p, done, in)
		assert.Equal(t, done, res.State)
		assert.Nil(t, res.Sample)
		assert.Empty(t, res.Events)
	}
}

func TestStep_SingleStageScenario(t *testing.T) {
	p := mustProtocol(t, protocol.Stage{Label: 0, Description: "only", Target: 2})
	in := faceInput(t)

	r1 := Step(p, State{}, withToggle(in))
	r2 := Step(p, r1.State, in)
	r3 := Step(p, r2.State, in)

	require.NotNil(t, r1.Sample)
	require.NotNil(t, r2.Sample)
	assert.Equal(t, 0, r1.Sample.Label)
	assert.Equal(t, 0, r2.Sample.Label)

	assert.Nil(t, r3.Sample)
	assert.Equal(t, []Event{EventStageComplete, EventSessionComplete}, r3.Events)
	assert.True(t, r3.State.Done(p))

	d := dataset.New()
	for _, r := range []Result{r1, r2, r3} {
		if r.Sample != nil {
			d.Append(*r.Sample)
		}
	}
	assert.Equal(t, 2, d.Len())
}

func TestStep_InterleavedMissScenario(t *testing.T) {
	p := mustProtocol(t, protocol.Stage{Label: 0, Description: "a", Target: 10})
	in := faceInput(t)

	s := State{Recording: true}
	counts := []int{}
	for _, frame := range []Input{in, miss, in} {
		s = Step(p, s, frame).State
		counts = append(counts, s.Collected)
	}

	assert.Equal(t, []int{1, 1, 2}, counts)
}

func TestStep_FullDefaultProtocol(t *testing.T) {
	p := protocol.Default()
	in := faceInput(t)

	s := State{}
	total := 0
	completions := 0
	sessionDone := 0
	labels := map[int]int{}

	for frames := 0; !s.Done(p) && frames < 10000; frames++ {
		frame := in
		if !s.Recording {
			frame = withToggle(in)
		}
		res := Step(p, s, frame)
		s = res.State
		if res.Sample != nil {
			total++
			labels[res.Sample.Label]++
		}
		if res.Has(EventStageComplete) {
			completions++
		}
		if res.Has(EventSessionComplete) {
			sessionDone++
		}
	}

	assert.True(t, s.Done(p))
	assert.Equal(t, p.TotalTarget(), total)
	assert.Equal(t, p.Count(), completions)
	assert.Equal(t, 1, sessionDone)
	assert.Equal(t, map[int]int{0: 2200, 1: 2200}, labels)
}
