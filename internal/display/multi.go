package display

import (
	"errors"

	"gocv.io/x/gocv"
)

// Multi shows every frame on all surfaces and merges their signals.
// SignalQuit from any surface wins over SignalToggle.
type Multi []Surface

// Show renders on each surface in order.
func (m Multi) Show(frame *gocv.Mat, hud HUD) error {
	var errs []error
	for _, s := range m {
		if err := s.Show(frame, hud); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Poll polls every surface and returns the strongest signal.
func (m Multi) Poll() Signal {
	sig := SignalNone
	for _, s := range m {
		if got := s.Poll(); got > sig {
			sig = got
		}
	}
	return sig
}

// Close closes every surface.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
