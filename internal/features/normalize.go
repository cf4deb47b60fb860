// Package features turns raw face landmarks into scale and translation invariant
// feature vectors.
package features

import (
	"math"

	"github.com/ayusman/wakeguard/internal/detector"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MinScale is the spread below which a point cloud is treated as degenerate
// and left unscaled.
const MinScale = 1e-6

// Dim is the length of a feature vector built from detector.SubsetIndices.
func Dim() int {
	return 3 * detector.SubsetSize
}

// Normalize centers points on their centroid and divides by the largest
// distance from it, flattening the result as x, y, z per point in point order.
// If that distance is below MinScale the points are only centered.
//
// points must be non-empty; an empty slice yields nil.
func Normalize(points []detector.Point3D) []float64 {
	n := len(points)
	if n == 0 {
		return nil
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, p := range points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}

	floats.AddConst(-stat.Mean(xs, nil), xs)
	floats.AddConst(-stat.Mean(ys, nil), ys)
	floats.AddConst(-stat.Mean(zs, nil), zs)

	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Sqrt(xs[i]*xs[i] + ys[i]*ys[i] + zs[i]*zs[i])
	}

	scale := floats.Max(dist)
	if scale < MinScale {
		scale = 1
	}

	out := make([]float64, 0, 3*n)
	for i := 0; i < n; i++ {
		out = append(out, xs[i], ys[i], zs[i])
	}
	floats.Scale(1/scale, out)

	return out
}

// Extract selects the feature subset from a detected face and normalizes it.
func Extract(face *detector.FaceLandmarks) ([]float64, error) {
	subset, err := face.Subset()
	if err != nil {
		return nil, err
	}
	return Normalize(subset), nil
}
