package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	faces    []FaceLandmarks
	sequence [][]FaceLandmarks
	calls    int
	err      error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by every Detect call.
func (m *MockDetector) SetFaces(faces []FaceLandmarks) {
	m.faces = faces
	m.sequence = nil
}

// SetSequence makes Detect return the given results in order, one per call.
// Once exhausted, Detect falls back to the faces set by SetFaces.
func (m *MockDetector) SetSequence(results [][]FaceLandmarks) {
	m.sequence = results
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]FaceLandmarks, error) {
	i := m.calls
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if i < len(m.sequence) {
		return m.sequence[i], nil
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// NeutralFace returns a preset face looking straight at the camera with eyes open
// and mouth closed.
func NeutralFace() FaceLandmarks {
	face := baseFace()

	// Left eye contour: outer corner, upper lid, inner corner, lower lid.
	setPoints(&face, LeftEye, []Point3D{
		{X: 0.38, Y: 0.42, Z: -0.01},
		{X: 0.40, Y: 0.40, Z: -0.02},
		{X: 0.43, Y: 0.40, Z: -0.02},
		{X: 0.45, Y: 0.42, Z: -0.01},
		{X: 0.43, Y: 0.44, Z: -0.02},
		{X: 0.40, Y: 0.44, Z: -0.02},
	})

	setPoints(&face, RightEye, []Point3D{
		{X: 0.55, Y: 0.42, Z: -0.01},
		{X: 0.57, Y: 0.40, Z: -0.02},
		{X: 0.60, Y: 0.40, Z: -0.02},
		{X: 0.62, Y: 0.42, Z: -0.01},
		{X: 0.60, Y: 0.44, Z: -0.02},
		{X: 0.57, Y: 0.44, Z: -0.02},
	})

	// Inner lip line, nearly flat when the mouth is closed.
	setPoints(&face, MouthInner, []Point3D{
		{X: 0.45, Y: 0.62, Z: -0.03},
		{X: 0.46, Y: 0.615, Z: -0.04},
		{X: 0.47, Y: 0.612, Z: -0.04},
		{X: 0.48, Y: 0.611, Z: -0.05},
		{X: 0.49, Y: 0.610, Z: -0.05},
		{X: 0.50, Y: 0.610, Z: -0.05},
		{X: 0.52, Y: 0.611, Z: -0.05},
		{X: 0.53, Y: 0.612, Z: -0.04},
	})

	return face
}

// ClosedEyesFace returns a preset face with both eyelids closed and the mouth
// slightly open, as seen during the drowsy stages.
func ClosedEyesFace() FaceLandmarks {
	face := NeutralFace()

	// Collapse upper and lower lids onto the corner line.
	for _, eye := range [][]int{LeftEye, RightEye} {
		cornerY := face.Points[eye[0]].Y
		for _, idx := range []int{eye[1], eye[2], eye[4], eye[5]} {
			face.Points[idx].Y = cornerY
		}
	}

	for i, idx := range MouthInner {
		face.Points[idx].Y += 0.002 * float64(i)
	}

	return face
}

// baseFace fills the full mesh with a smooth grid so every index is valid.
func baseFace() FaceLandmarks {
	face := FaceLandmarks{
		Points: make([]Point3D, NumFaceLandmarks),
		Score:  0.97,
	}
	const cols = 22
	for i := range face.Points {
		col := float64(i % cols)
		row := float64(i / cols)
		face.Points[i] = Point3D{
			X: 0.30 + 0.4*col/float64(cols-1),
			Y: 0.20 + 0.6*row/float64(NumFaceLandmarks/cols),
			Z: -0.01 * col / float64(cols-1),
		}
	}
	return face
}

func setPoints(face *FaceLandmarks, indices []int, points []Point3D) {
	for i, idx := range indices {
		face.Points[idx] = points[i]
	}
}
