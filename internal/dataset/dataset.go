// Package dataset accumulates labeled feature vectors and exports them as CSV.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// FileMode is the permission of exported CSV files.
const FileMode = 0o644

// Sample is one normalized feature vector paired with its class label.
type Sample struct {
	Features []float64 `json:"features"`
	Label    int       `json:"label"`
}

// Dataset is an append-only, ordered collection of samples.
// It is not safe for concurrent use.
type Dataset struct {
	samples []Sample
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{}
}

// Append adds a sample at the end of the dataset.
func (d *Dataset) Append(s Sample) {
	d.samples = append(d.samples, s)
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.samples)
}

// Samples returns a copy of the samples in insertion order.
func (d *Dataset) Samples() []Sample {
	return append([]Sample(nil), d.samples...)
}

// CountByLabel returns how many samples carry each label.
func (d *Dataset) CountByLabel() map[int]int {
	counts := make(map[int]int)
	for _, s := range d.samples {
		counts[s.Label]++
	}
	return counts
}

// Labels returns the distinct labels present, ascending.
func (d *Dataset) Labels() []int {
	counts := d.CountByLabel()
	labels := make([]int, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}

// Header returns the CSV columns for vectors of the given number of points:
// p0_x, p0_y, p0_z, ..., p{points-1}_z, label.
func Header(points int) []string {
	header := make([]string, 0, 3*points+1)
	for i := 0; i < points; i++ {
		for _, axis := range []string{"x", "y", "z"} {
			header = append(header, fmt.Sprintf("p%d_%s", i, axis))
		}
	}
	return append(header, "label")
}

// WriteCSV writes the header and one row per sample to w.
// The column count is taken from the first sample; every sample must match it.
func (d *Dataset) WriteCSV(w io.Writer) error {
	if len(d.samples) == 0 {
		return nil
	}

	width := len(d.samples[0].Features)
	if width%3 != 0 {
		return fmt.Errorf("feature vector length %d is not a multiple of 3", width)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header(width / 3)); err != nil {
		return err
	}

	row := make([]string, width+1)
	for i, s := range d.samples {
		if len(s.Features) != width {
			return fmt.Errorf("sample %d has %d features, expected %d", i, len(s.Features), width)
		}
		for j, v := range s.Features {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row[width] = strconv.Itoa(s.Label)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Export writes the dataset to path as CSV and returns the number of data rows.
// An empty dataset writes nothing and returns 0. The parent directory is created
// if needed, and an existing file is replaced. A failed export leaves the
// dataset untouched so it can be retried with another path.
func (d *Dataset) Export(path string) (int, error) {
	if len(d.samples) == 0 {
		return 0, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := d.WriteCSV(tmp); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	// CreateTemp makes the file owner-only.
	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("replace %s: %w", path, err)
	}

	return len(d.samples), nil
}
