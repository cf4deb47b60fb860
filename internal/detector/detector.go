package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

var (
	// ErrModelNotFound is returned when the face landmarker model file is missing.
	ErrModelNotFound = errors.New("face landmarker model not found")
	// ErrServiceNotFound is returned when the landmarker service script cannot be located.
	ErrServiceNotFound = errors.New("face_landmarker_service.py not found")
	// ErrServiceFailed wraps an error reported by the running landmarker service.
	// The service stays usable after it.
	ErrServiceFailed = errors.New("landmarker service")
)

// Detector defines the interface for face landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected face landmarks.
	// Returns an empty slice if no faces are detected.
	Detect(frame *gocv.Mat) ([]FaceLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// ModelPath is the path of the MediaPipe face_landmarker.task model.
	ModelPath string

	// MaxFaces is the maximum number of faces to detect (default: 1).
	MaxFaces int

	// ScriptPath overrides the service script lookup when set.
	ScriptPath string

	// Python overrides the interpreter lookup when set.
	Python string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath: modelPath,
		MaxFaces:  1,
	}
}
