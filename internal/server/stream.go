package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/wakeguard/internal/display"
	"gocv.io/x/gocv"
)

// StreamInterval is the pause between MJPEG frames (~15 FPS).
const StreamInterval = 66 * time.Millisecond

// Preview is a display surface that keeps the latest annotated frame as
// JPEG for the MJPEG stream. It never produces operator signals.
type Preview struct {
	mu    sync.RWMutex
	jpeg  []byte
	count int
}

// NewPreview creates an empty preview.
func NewPreview() *Preview {
	return &Preview{}
}

// Show draws the overlay onto a copy of frame and stores it as JPEG.
func (p *Preview) Show(frame *gocv.Mat, hud display.HUD) error {
	if frame == nil || frame.Empty() {
		return nil
	}

	annotated := frame.Clone()
	defer annotated.Close()
	display.Draw(&annotated, hud)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, annotated)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	p.mu.Lock()
	p.jpeg = data
	p.count++
	p.mu.Unlock()
	return nil
}

// Poll always returns SignalNone.
func (p *Preview) Poll() display.Signal { return display.SignalNone }

// Close is a no-op.
func (p *Preview) Close() error { return nil }

// Latest returns the latest JPEG frame and its sequence number.
func (p *Preview) Latest() ([]byte, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.jpeg, p.count
}

// ServeHTTP streams MJPEG frames to connected clients.
func (p *Preview) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	last := 0
	ticker := time.NewTicker(StreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		data, seq := p.Latest()
		if data == nil || seq == last {
			continue
		}
		last = seq

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		if _, err := w.Write(data); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
