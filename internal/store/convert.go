package store

import (
	"github.com/ayusman/wakeguard/internal/dataset"
	"github.com/ayusman/wakeguard/internal/protocol"
)

// StagesFromProtocol converts protocol stages to archive rows.
func StagesFromProtocol(stages []protocol.Stage) []Stage {
	out := make([]Stage, len(stages))
	for i, s := range stages {
		out[i] = Stage{
			Index:       i,
			Label:       s.Label,
			Description: s.Description,
			Target:      s.Target,
		}
	}
	return out
}

// SamplesFromDataset converts dataset samples to archive rows.
func SamplesFromDataset(samples []dataset.Sample) []Sample {
	out := make([]Sample, len(samples))
	for i, s := range samples {
		out[i] = Sample{Label: s.Label, Features: s.Features}
	}
	return out
}

// ToDataset rebuilds a dataset from archived samples.
func ToDataset(samples []Sample) *dataset.Dataset {
	d := dataset.New()
	for _, s := range samples {
		d.Append(dataset.Sample{Features: s.Features, Label: s.Label})
	}
	return d
}
