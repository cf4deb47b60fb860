// Package display provides the operator surfaces of the collector: an
// OpenCV preview window with keyboard control and a channel-fed surface
// for headless operation.
package display

import (
	"fmt"

	"github.com/ayusman/wakeguard/internal/detector"
	"github.com/ayusman/wakeguard/internal/protocol"
	"github.com/ayusman/wakeguard/internal/session"
	"gocv.io/x/gocv"
)

// Signal is a control request from the operator.
type Signal int

const (
	// SignalNone means no request this frame.
	SignalNone Signal = iota
	// SignalToggle starts or pauses recording.
	SignalToggle
	// SignalQuit ends the session.
	SignalQuit
)

// String returns the signal name.
func (s Signal) String() string {
	switch s {
	case SignalToggle:
		return "toggle"
	case SignalQuit:
		return "quit"
	default:
		return "none"
	}
}

// Surface shows the collector state and reports operator signals.
type Surface interface {
	// Show renders frame with the overlay. frame may be nil.
	Show(frame *gocv.Mat, hud HUD) error
	// Poll returns the pending signal, or SignalNone.
	Poll() Signal
	// Close releases the surface.
	Close() error
}

// HUD is the overlay state for one frame.
type HUD struct {
	StageIndex  int
	StageCount  int
	Description string
	Collected   int
	Target      int
	Recording   bool
	Done        bool
	// Points are the selected landmarks in normalized image coordinates.
	Points []detector.Point3D
}

// NewHUD builds the overlay for state s of protocol p.
func NewHUD(p *protocol.Protocol, s session.State, points []detector.Point3D) HUD {
	hud := HUD{
		StageIndex: s.StageIndex,
		StageCount: p.Count(),
		Collected:  s.Collected,
		Recording:  s.Recording,
		Done:       s.Done(p),
		Points:     points,
	}
	if stage, ok := p.Get(s.StageIndex); ok {
		hud.Description = stage.Description
		hud.Target = stage.Target
	}
	return hud
}

// Lines returns the overlay text, top to bottom.
func (h HUD) Lines() []string {
	if h.Done {
		return []string{"DONE! Press Q to save"}
	}

	status := "PAUSED"
	if h.Recording {
		status = "REC"
	}

	return []string{
		fmt.Sprintf("Stage %d/%d: %s", h.StageIndex+1, h.StageCount, h.Description),
		fmt.Sprintf("Count: %d/%d", h.Collected, h.Target),
		status,
	}
}
