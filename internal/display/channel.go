package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// Channel is a surface driven by signals sent from other goroutines, such
// as the tray menu. It keeps the latest HUD for observers.
type Channel struct {
	signals chan Signal

	mu     sync.Mutex
	hud    HUD
	shown  int
	closed bool
}

// NewChannel creates a channel surface buffering up to size signals.
func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{signals: make(chan Signal, size)}
}

// Send queues a signal. It reports false when the buffer is full or the
// surface is closed.
func (c *Channel) Send(sig Signal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.signals <- sig:
		return true
	default:
		return false
	}
}

// Toggle queues SignalToggle.
func (c *Channel) Toggle() bool { return c.Send(SignalToggle) }

// Quit queues SignalQuit.
func (c *Channel) Quit() bool { return c.Send(SignalQuit) }

// Show records the HUD; frames are not rendered.
func (c *Channel) Show(_ *gocv.Mat, hud HUD) error {
	c.mu.Lock()
	c.hud = hud
	c.shown++
	c.mu.Unlock()
	return nil
}

// Poll returns the next queued signal without blocking.
func (c *Channel) Poll() Signal {
	select {
	case sig := <-c.signals:
		return sig
	default:
		return SignalNone
	}
}

// HUD returns the last shown overlay.
func (c *Channel) HUD() HUD {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hud
}

// Shown returns how many frames were shown.
func (c *Channel) Shown() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shown
}

// Close stops accepting signals.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}
