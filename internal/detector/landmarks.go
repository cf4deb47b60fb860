// Package detector provides face landmark detection interfaces and types for drowsiness data collection.
package detector

import "fmt"

// NumFaceLandmarks is the size of the MediaPipe face mesh (468 mesh points plus 10 iris points).
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const NumFaceLandmarks = 478

// Eye and mouth contour indices following the MediaPipe face mesh convention.
var (
	LeftEye    = []int{33, 160, 158, 133, 153, 144}
	RightEye   = []int{362, 385, 387, 263, 373, 380}
	MouthInner = []int{78, 191, 80, 81, 82, 13, 312, 311}
)

// SubsetIndices is the ordered landmark selection used for feature extraction.
// Its order fixes the column order of exported datasets.
var SubsetIndices = concat(LeftEye, RightEye, MouthInner)

// SubsetSize is the number of landmarks in SubsetIndices.
var SubsetSize = len(SubsetIndices)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks is the landmark set returned for a single detected face.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// Select returns the points at the given indices, in index order.
func (f *FaceLandmarks) Select(indices []int) ([]Point3D, error) {
	out := make([]Point3D, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(f.Points) {
			return nil, fmt.Errorf("landmark index %d out of range (face has %d points)", idx, len(f.Points))
		}
		out[i] = f.Points[idx]
	}
	return out, nil
}

// Subset selects the eye and mouth contours used as features.
func (f *FaceLandmarks) Subset() ([]Point3D, error) {
	return f.Select(SubsetIndices)
}

// Primary returns the face the detector reports first.
// Collection is single-face; any additional faces are ignored.
func Primary(faces []FaceLandmarks) (*FaceLandmarks, bool) {
	if len(faces) == 0 {
		return nil, false
	}
	return &faces[0], true
}

func concat(groups ...[]int) []int {
	var out []int
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
