package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// Script is a surface that replays a fixed signal per frame, for tests and
// unattended runs. Signals are keyed by the zero-based Poll call index.
type Script struct {
	mu      sync.Mutex
	signals map[int]Signal
	polls   int
	huds    []HUD
}

// NewScript creates a scripted surface.
func NewScript(signals map[int]Signal) *Script {
	return &Script{signals: signals}
}

// Show records the HUD.
func (s *Script) Show(_ *gocv.Mat, hud HUD) error {
	s.mu.Lock()
	s.huds = append(s.huds, hud)
	s.mu.Unlock()
	return nil
}

// Poll returns the scripted signal for this call.
func (s *Script) Poll() Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig := s.signals[s.polls]
	s.polls++
	return sig
}

// HUDs returns every HUD shown so far.
func (s *Script) HUDs() []HUD {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HUD(nil), s.huds...)
}

// Close is a no-op.
func (s *Script) Close() error { return nil }
