package main

import (
	"fmt"
	"io"

	"github.com/ayusman/wakeguard/internal/app"
	"github.com/schollz/progressbar/v3"
)

// stageProgress renders one progress bar per protocol stage.
type stageProgress struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	stage int
	done  bool
}

func newStageProgress(out io.Writer) *stageProgress {
	return &stageProgress{out: out, stage: -1}
}

// Observe updates the bar for the current stage.
func (p *stageProgress) Observe(s app.Status) {
	if p.done {
		return
	}
	if s.Done {
		p.finish()
		p.done = true
		return
	}

	if s.StageIndex != p.stage {
		p.finish()
		p.stage = s.StageIndex
		p.bar = progressbar.NewOptions(s.Target,
			progressbar.OptionSetDescription(fmt.Sprintf("Stage %d/%d %s", s.StageIndex+1, s.StageCount, s.Description)),
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.out) }),
		)
	}

	p.bar.Set(s.Collected)
}

func (p *stageProgress) finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
