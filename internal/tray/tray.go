// Package tray provides a system tray control surface for headless
// collection sessions.
package tray

import (
	"fmt"
	"sync"

	"github.com/ayusman/wakeguard/internal/app"
	"github.com/ayusman/wakeguard/internal/display"
	"github.com/getlantern/systray"
)

// Tray forwards menu clicks as operator signals and shows session progress.
type Tray struct {
	signals   *display.Channel
	onOpen    func()
	recording bool
	done      bool
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuStage    *systray.MenuItem
	menuProgress *systray.MenuItem
}

// New creates a Tray that sends signals to ch.
func New(ch *display.Channel) *Tray {
	return &Tray{signals: ch}
}

// OnOpen sets the callback for the "Open status page" menu item.
// The item is only shown when a callback is set before Run.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("WakeGuard")
	systray.SetTooltip("WakeGuard data collector")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(false), "Start or pause recording")
	systray.AddSeparator()

	t.menuStage = systray.AddMenuItem("Stage: -", "Current stage")
	t.menuStage.Disable()
	t.menuProgress = systray.AddMenuItem("Count: -", "Samples in this stage")
	t.menuProgress.Disable()
	systray.AddSeparator()

	var menuOpen *systray.MenuItem
	if t.onOpen != nil {
		menuOpen = systray.AddMenuItem("Open status page...", "Open the status page in a browser")
		systray.AddSeparator()
	}

	menuQuit := systray.AddMenuItem("Finish and save", "Stop collecting and save the dataset")
	toggle := t.menuToggle
	t.mu.Unlock()

	var openCh <-chan struct{}
	if menuOpen != nil {
		openCh = menuOpen.ClickedCh
	}

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-toggle.ClickedCh:
				t.handleToggle()
			case <-openCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.RLock()
	done := t.done
	t.mu.RUnlock()

	if !done {
		t.signals.Toggle()
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.signals.Quit()
}

// Observe updates the menu from a status snapshot.
func (t *Tray) Observe(s app.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := s.Recording != t.recording || s.Done != t.done
	t.recording = s.Recording
	t.done = s.Done

	if t.menuToggle == nil {
		return
	}

	if changed {
		if s.Done {
			t.menuToggle.SetTitle("All stages done")
			t.menuToggle.Disable()
		} else {
			t.menuToggle.SetTitle(toggleTitle(s.Recording))
		}
	}
	t.menuStage.SetTitle(StageTitle(s))
	t.menuProgress.SetTitle(ProgressTitle(s))
}

// IsRecording returns the last observed recording state.
func (t *Tray) IsRecording() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recording
}

func toggleTitle(recording bool) string {
	if recording {
		return "● Recording (click to pause)"
	}
	return "○ Paused (click to record)"
}

// StageTitle formats the stage menu label.
func StageTitle(s app.Status) string {
	if s.Done {
		return "Stage: done"
	}
	return fmt.Sprintf("Stage %d/%d: %s", s.StageIndex+1, s.StageCount, s.Description)
}

// ProgressTitle formats the progress menu label.
func ProgressTitle(s app.Status) string {
	if s.Done {
		return fmt.Sprintf("Samples: %d", s.Samples)
	}
	return fmt.Sprintf("Count: %d/%d", s.Collected, s.Target)
}
