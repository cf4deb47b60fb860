// Package app runs a WakeGuard collection session: it drives the camera,
// detector and operator surface through the staged protocol and hands the
// resulting dataset to the exporter and the session archive.
package app

import (
	"errors"
	"sync"
	"time"

	"github.com/ayusman/wakeguard/internal/capture"
	"github.com/ayusman/wakeguard/internal/dataset"
	"github.com/ayusman/wakeguard/internal/detector"
	"github.com/ayusman/wakeguard/internal/display"
	"github.com/ayusman/wakeguard/internal/feedback"
	"github.com/ayusman/wakeguard/internal/logger"
	"github.com/ayusman/wakeguard/internal/protocol"
	"github.com/ayusman/wakeguard/internal/session"
	"github.com/ayusman/wakeguard/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config holds the collaborators of a Collector.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Surface  display.Surface
	Protocol *protocol.Protocol

	// Store archives the session when set.
	Store *store.Store
	// Sink receives feedback events. Optional.
	Sink feedback.Sink
	// Observers are called with a status snapshot after every frame.
	Observers []Observer
	Log       logrus.FieldLogger

	// OutputPath is where Finish writes the CSV.
	OutputPath string
	// Mirror flips frames horizontally before detection.
	Mirror bool
	// MaxDetectorErrors stops the session after that many detector errors in
	// a row. Zero means DefaultMaxDetectorErrors, negative never stops.
	MaxDetectorErrors int
}

const (
	// DefaultMaxDetectorErrors is the consecutive detector error limit.
	DefaultMaxDetectorErrors = 50
	// detectorWarnEvery rate-limits warnings for a failing detector.
	detectorWarnEvery = 10
)

// ErrDetectorFailing stops a session whose detector keeps returning errors.
var ErrDetectorFailing = errors.New("landmark detector failing")

// Status is a point-in-time view of a running session.
type Status struct {
	SessionID   string    `json:"session_id"`
	StartedAt   time.Time `json:"started_at"`
	StageIndex  int       `json:"stage_index"`
	StageCount  int       `json:"stage_count"`
	Description string    `json:"description"`
	Label       int       `json:"label"`
	Collected   int       `json:"collected"`
	Target      int       `json:"target"`
	Recording   bool      `json:"recording"`
	Done        bool      `json:"done"`
	FaceVisible bool      `json:"face_visible"`
	Samples     int       `json:"samples"`
	Frames      int       `json:"frames"`
}

// Observer is notified after every processed frame.
type Observer interface {
	Observe(Status)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Status)

// Observe calls f.
func (f ObserverFunc) Observe(s Status) { f(s) }

// Summary describes a finished session.
type Summary struct {
	SessionID  string      `json:"session_id"`
	Rows       int         `json:"rows"`
	Path       string      `json:"path,omitempty"`
	Completed  bool        `json:"completed"`
	StagesDone int         `json:"stages_done"`
	Counts     map[int]int `json:"counts"`
}

// Collector owns the acquisition state of one session.
type Collector struct {
	config Config
	log    logrus.FieldLogger
	sink   feedback.Sink
	id     string

	state          session.State
	data           *dataset.Dataset
	detectorErrors int

	// archive progress; samples are inserted at most once
	archiving       bool
	samplesArchived bool

	mu     sync.RWMutex
	status Status
}

// New creates a Collector. Camera, Detector, Surface and Protocol are required.
func New(config Config) (*Collector, error) {
	switch {
	case config.Camera == nil:
		return nil, errors.New("app: camera is required")
	case config.Detector == nil:
		return nil, errors.New("app: detector is required")
	case config.Surface == nil:
		return nil, errors.New("app: surface is required")
	case config.Protocol == nil:
		return nil, errors.New("app: protocol is required")
	case config.OutputPath == "":
		return nil, errors.New("app: output path is required")
	}

	log := config.Log
	if log == nil {
		log = logger.Discard()
	}
	if config.MaxDetectorErrors == 0 {
		config.MaxDetectorErrors = DefaultMaxDetectorErrors
	}
	sink := config.Sink
	if sink == nil {
		sink = feedback.Multi(nil)
	}

	c := &Collector{
		config: config,
		sink:   sink,
		id:     uuid.NewString(),
		data:   dataset.New(),
	}
	c.log = log.WithField("session", c.id)
	c.status = c.snapshot(false, 0)
	c.status.StartedAt = time.Now()

	return c, nil
}

// ID returns the session id.
func (c *Collector) ID() string {
	return c.id
}

// Status returns the latest status snapshot.
func (c *Collector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Archived reports whether the session samples are in the store.
func (c *Collector) Archived() bool {
	return c.samplesArchived
}

// Dataset returns the accumulated dataset.
func (c *Collector) Dataset() *dataset.Dataset {
	return c.data
}

// Close releases the detector and the surface.
func (c *Collector) Close() error {
	var errs []error
	if err := c.config.Detector.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.config.Surface.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Collector) snapshot(faceVisible bool, frames int) Status {
	p := c.config.Protocol
	s := Status{
		SessionID:   c.id,
		StageIndex:  c.state.StageIndex,
		StageCount:  p.Count(),
		Collected:   c.state.Collected,
		Recording:   c.state.Recording,
		Done:        c.state.Done(p),
		FaceVisible: faceVisible,
		Samples:     c.data.Len(),
		Frames:      frames,
	}
	if stage, ok := p.Get(c.state.StageIndex); ok {
		s.Description = stage.Description
		s.Label = stage.Label
		s.Target = stage.Target
	}
	return s
}

// publish stores a new snapshot and notifies observers.
func (c *Collector) publish(faceVisible bool) {
	c.mu.Lock()
	next := c.snapshot(faceVisible, c.status.Frames+1)
	next.StartedAt = c.status.StartedAt
	c.status = next
	c.mu.Unlock()

	for _, o := range c.config.Observers {
		o.Observe(next)
	}
}
