package display

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Key codes reported by the preview window.
const (
	KeySpace = 32
	KeyQ     = 'q'
	KeyEsc   = 27
)

// WindowTitle is the default preview window title.
const WindowTitle = "WakeGuard Collector"

var (
	white  = color.RGBA{255, 255, 255, 0}
	cyan   = color.RGBA{255, 255, 0, 0}
	green  = color.RGBA{0, 255, 0, 0}
	red    = color.RGBA{0, 0, 255, 0}
	yellow = color.RGBA{0, 255, 255, 0}
)

// Window is an OpenCV preview window. Space toggles recording, q or Esc quits.
type Window struct {
	window  *gocv.Window
	pending Signal
}

// NewWindow opens a preview window.
func NewWindow(title string) *Window {
	if title == "" {
		title = WindowTitle
	}
	return &Window{window: gocv.NewWindow(title)}
}

// Show draws the overlay on frame, displays it and reads the keyboard.
func (w *Window) Show(frame *gocv.Mat, hud HUD) error {
	if frame != nil && !frame.Empty() {
		Draw(frame, hud)
		w.window.IMShow(*frame)
	}

	if sig := KeySignal(w.window.WaitKey(1)); sig != SignalNone {
		w.pending = sig
	}
	return nil
}

// Poll returns the last key signal and clears it.
func (w *Window) Poll() Signal {
	sig := w.pending
	w.pending = SignalNone
	return sig
}

// Close closes the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// KeySignal maps a key code from WaitKey to a signal.
func KeySignal(key int) Signal {
	if key < 0 {
		return SignalNone
	}
	switch key & 0xFF {
	case KeySpace:
		return SignalToggle
	case KeyQ, 'Q', KeyEsc:
		return SignalQuit
	default:
		return SignalNone
	}
}

// Draw renders landmark dots and status text onto frame.
func Draw(frame *gocv.Mat, hud HUD) {
	w, h := frame.Cols(), frame.Rows()

	for _, p := range hud.Points {
		pt := image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
		gocv.Circle(frame, pt, 2, yellow, -1)
	}

	lines := hud.Lines()
	if hud.Done {
		gocv.PutText(frame, lines[0], image.Pt(50, h/2), gocv.FontHersheyPlain, 2.0, green, 3)
		return
	}

	status := red
	if hud.Recording {
		status = green
	}
	colors := []color.RGBA{white, cyan, status}
	for i, line := range lines {
		gocv.PutText(frame, line, image.Pt(20, 40*(i+1)), gocv.FontHersheyPlain, 1.2, colors[i], 2)
	}
}
