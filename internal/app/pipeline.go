package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/wakeguard/internal/capture"
	"github.com/ayusman/wakeguard/internal/detector"
	"github.com/ayusman/wakeguard/internal/display"
	"github.com/ayusman/wakeguard/internal/session"
	"github.com/ayusman/wakeguard/internal/store"
)

// Run processes frames until the operator quits, ctx is cancelled or the
// camera stops delivering frames, then exports and archives the session.
//
// Per frame:
// 1. Read and optionally mirror the frame
// 2. Detect faces and select the landmark subset of the primary face
// 3. Poll the operator surface
// 4. Advance the session state machine and keep any sample
// 5. Forward feedback events, notify observers and redraw the overlay
func (c *Collector) Run(ctx context.Context) (Summary, error) {
	if !c.config.Camera.IsOpen() {
		if err := c.config.Camera.Open(); err != nil {
			return Summary{SessionID: c.id}, fmt.Errorf("open camera: %w", err)
		}
	}
	defer func() {
		if err := c.config.Camera.Close(); err != nil {
			c.log.WithError(err).Warn("Error closing camera")
		}
	}()

	c.beginArchive()
	c.log.WithField("stages", c.config.Protocol.Count()).Info("Collection started")

	for {
		if ctx.Err() != nil {
			c.log.Info("Collection interrupted")
			break
		}

		quit, err := c.processFrame()
		if err != nil {
			switch {
			case errors.Is(err, capture.ErrEndOfStream):
				c.log.Info("End of stream")
			case errors.Is(err, ErrDetectorFailing):
				c.log.WithError(err).Error("Stopping, landmark detector keeps failing")
			default:
				c.log.WithError(err).Warn("Stopping on camera error")
			}
			break
		}
		if quit {
			c.log.Info("Quit requested")
			break
		}
	}

	return c.Finish()
}

// processFrame runs one iteration of the loop and reports whether the
// operator asked to quit.
func (c *Collector) processFrame() (bool, error) {
	frame, err := c.config.Camera.ReadFrame()
	if err != nil {
		return false, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	if c.config.Mirror {
		capture.Mirror(frame)
	}

	var in session.Input
	faces, err := c.config.Detector.Detect(frame)
	if err != nil {
		if err := c.detectorFailed(err); err != nil {
			return false, err
		}
	} else {
		c.detectorErrors = 0
	}
	if face, ok := detector.Primary(faces); ok {
		subset, err := face.Subset()
		if err != nil {
			c.log.WithError(err).Debug("Incomplete face mesh")
		} else {
			in.HasLandmarks = true
			in.Subset = subset
		}
	}

	switch c.config.Surface.Poll() {
	case display.SignalQuit:
		return true, nil
	case display.SignalToggle:
		in.Toggle = true
	}

	res := session.Step(c.config.Protocol, c.state, in)
	c.state = res.State
	if res.Sample != nil {
		c.data.Append(*res.Sample)
	}

	for _, ev := range res.Events {
		c.logEvent(ev)
		c.sink.Notify(ev)
	}

	c.publish(in.HasLandmarks)

	hud := display.NewHUD(c.config.Protocol, c.state, in.Subset)
	if err := c.config.Surface.Show(frame, hud); err != nil {
		c.log.WithError(err).Warn("Failed to draw frame")
	}

	return false, nil
}

// detectorFailed counts a detector error. The frame is treated as a miss
// until the limit of consecutive errors is reached.
func (c *Collector) detectorFailed(err error) error {
	c.detectorErrors++
	n := c.detectorErrors
	if limit := c.config.MaxDetectorErrors; limit > 0 && n >= limit {
		return fmt.Errorf("%w: %d errors in a row: %w", ErrDetectorFailing, n, err)
	}
	if n == 1 || n%detectorWarnEvery == 0 {
		c.log.WithError(err).WithField("consecutive", n).Warn("Detection failed, treating frame as a miss")
	}
	return nil
}

func (c *Collector) logEvent(ev session.Event) {
	entry := c.log.WithField("event", string(ev))
	switch ev {
	case session.EventStart:
		entry.WithField("stage", c.state.StageIndex+1).Info("Recording started")
	case session.EventStageComplete:
		entry.WithField("next_stage", c.state.StageIndex+1).Info("Stage complete")
	case session.EventSessionComplete:
		entry.WithField("samples", c.data.Len()).Info("All stages complete")
	}
}

// Finish archives and exports the session to the configured output path.
func (c *Collector) Finish() (Summary, error) {
	return c.FinishTo(c.config.OutputPath)
}

// FinishTo archives the samples, then exports the dataset to path. An empty
// dataset writes no file. Samples are archived before the export, so an
// export failure loses nothing: the dataset stays in memory, FinishTo may be
// called again with another path, and the archived session can be exported
// later by id.
func (c *Collector) FinishTo(path string) (Summary, error) {
	p := c.config.Protocol
	summary := Summary{
		SessionID:  c.id,
		Completed:  c.state.Done(p),
		StagesDone: min(c.state.StageIndex, p.Count()),
		Counts:     c.data.CountByLabel(),
	}

	c.archiveSamples()

	rows, err := c.data.Export(path)
	if err != nil {
		c.finishArchive(summary)
		return summary, fmt.Errorf("export dataset: %w", err)
	}
	summary.Rows = rows
	if rows > 0 {
		summary.Path = path
		c.log.WithField("rows", rows).WithField("path", path).Info("Dataset saved")
	} else {
		c.log.Info("No samples collected, nothing saved")
	}

	c.finishArchive(summary)
	return summary, nil
}

// beginArchive records the session and its protocol. Archive failures are
// logged and leave the session unarchived.
func (c *Collector) beginArchive() {
	st := c.config.Store
	if st == nil {
		return
	}

	sess := &store.Session{ID: c.id, StartedAt: c.Status().StartedAt}
	if err := st.Sessions().Create(sess); err != nil {
		c.log.WithError(err).Warn("Failed to archive session")
		return
	}
	c.archiving = true

	if err := st.Stages().Save(c.id, store.StagesFromProtocol(c.config.Protocol.Stages())); err != nil {
		c.log.WithError(err).Warn("Failed to archive protocol")
	}
}

func (c *Collector) archiveSamples() {
	st := c.config.Store
	if st == nil || !c.archiving || c.samplesArchived {
		return
	}

	if err := st.Samples().CreateBatch(c.id, store.SamplesFromDataset(c.data.Samples())); err != nil {
		c.log.WithError(err).Warn("Failed to archive samples")
		return
	}
	c.samplesArchived = true
}

// finishArchive records the outcome of the session. It may run more than
// once; a later successful export overwrites the output path.
func (c *Collector) finishArchive(summary Summary) {
	st := c.config.Store
	if st == nil || !c.samplesArchived {
		return
	}

	sess := &store.Session{
		ID:         c.id,
		Completed:  summary.Completed,
		StagesDone: summary.StagesDone,
		OutputPath: summary.Path,
		Rows:       c.data.Len(),
	}
	if err := st.Sessions().Finish(sess); err != nil {
		c.log.WithError(err).Warn("Failed to finish archived session")
	}
}
