// Package protocol defines the ordered acquisition stages of a collection session.
package protocol

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// Class labels used by the drowsiness protocol.
const (
	LabelAlert  = 0
	LabelDrowsy = 1
)

// Stage is a labeled phase of collection with a fixed sample target.
type Stage struct {
	Label       int    `json:"label" validate:"gte=0"`
	Description string `json:"description" validate:"required"`
	Target      int    `json:"target" validate:"gte=0"`
}

// Protocol is an immutable, ordered sequence of stages.
type Protocol struct {
	stages []Stage
}

type file struct {
	Stages []Stage `json:"stages" validate:"required,min=1,dive"`
}

var validate = validator.New()

// New builds a protocol from the given stages after validating them.
// The slice is copied, so later changes by the caller have no effect.
func New(stages []Stage) (*Protocol, error) {
	if err := validate.Struct(file{Stages: stages}); err != nil {
		return nil, fmt.Errorf("invalid protocol: %w", err)
	}
	return &Protocol{stages: append([]Stage(nil), stages...)}, nil
}

// Default returns the drowsiness protocol. It moves from unambiguous alert
// states to the drowsy ones, and keeps talking and laughing as a separate
// alert stage so mouth movement alone is not learned as drowsiness.
func Default() *Protocol {
	return &Protocol{stages: []Stage{
		{Label: LabelAlert, Description: "NORMAL - Looking straight", Target: 800},
		{Label: LabelAlert, Description: "NORMAL - Turn left/right, tilt up/down", Target: 600},
		{Label: LabelAlert, Description: "NORMAL - Talking / laughing", Target: 400},
		{Label: LabelAlert, Description: "NORMAL - Glasses / low light", Target: 400},

		{Label: LabelDrowsy, Description: "HALF-CLOSED - Eyes about 50% open", Target: 600},
		{Label: LabelDrowsy, Description: "DROWSY - Eyes fully closed (straight)", Target: 600},
		{Label: LabelDrowsy, Description: "DROWSY - Eyes fully closed (tilted)", Target: 400},
		{Label: LabelDrowsy, Description: "YAWNING - Mouth wide open", Target: 600},
	}}
}

// Load reads a protocol from a JSON file of the form
// {"stages": [{"label": 0, "description": "...", "target": 800}]}.
func Load(path string) (*Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocol %s: %w", path, err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse protocol %s: %w", path, err)
	}

	return New(f.Stages)
}

// Get returns the stage at index i, or false if i is out of range.
func (p *Protocol) Get(i int) (Stage, bool) {
	if i < 0 || i >= len(p.stages) {
		return Stage{}, false
	}
	return p.stages[i], true
}

// Count returns the number of stages.
func (p *Protocol) Count() int {
	return len(p.stages)
}

// Stages returns a copy of all stages in order.
func (p *Protocol) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// TotalTarget returns the number of samples a complete session collects.
func (p *Protocol) TotalTarget() int {
	total := 0
	for _, s := range p.stages {
		total += s.Target
	}
	return total
}

// MarshalJSON encodes the protocol in the same shape Load reads.
func (p *Protocol) MarshalJSON() ([]byte, error) {
	return json.Marshal(file{Stages: p.stages})
}
