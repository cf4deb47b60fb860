package detector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

func TestSubsetIndices(t *testing.T) {
	if SubsetSize != 20 {
		t.Fatalf("expected 20 subset landmarks, got %d", SubsetSize)
	}

	t.Run("left eye first, mouth last", func(t *testing.T) {
		if SubsetIndices[0] != 33 {
			t.Errorf("expected first index 33, got %d", SubsetIndices[0])
		}
		if SubsetIndices[len(SubsetIndices)-1] != 311 {
			t.Errorf("expected last index 311, got %d", SubsetIndices[len(SubsetIndices)-1])
		}
	})

	t.Run("all indices inside the face mesh", func(t *testing.T) {
		for _, idx := range SubsetIndices {
			if idx < 0 || idx >= NumFaceLandmarks {
				t.Errorf("index %d outside mesh of %d points", idx, NumFaceLandmarks)
			}
		}
	})
}

func TestFaceLandmarks_Select(t *testing.T) {
	face := NeutralFace()

	t.Run("preserves index order", func(t *testing.T) {
		points, err := face.Select([]int{133, 33})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if points[0] != face.Points[133] || points[1] != face.Points[33] {
			t.Error("selected points are not in index order")
		}
	})

	t.Run("subset has one point per index", func(t *testing.T) {
		points, err := face.Subset()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(points) != SubsetSize {
			t.Errorf("expected %d points, got %d", SubsetSize, len(points))
		}
	})

	t.Run("out of range index is an error", func(t *testing.T) {
		short := FaceLandmarks{Points: make([]Point3D, 10)}
		if _, err := short.Subset(); err == nil {
			t.Error("expected error for truncated face")
		}
	})
}

func TestPrimary(t *testing.T) {
	if _, ok := Primary(nil); ok {
		t.Error("expected no primary face for empty result")
	}

	faces := []FaceLandmarks{NeutralFace(), ClosedEyesFace()}
	primary, ok := Primary(faces)
	if !ok {
		t.Fatal("expected a primary face")
	}
	if primary != &faces[0] {
		t.Error("primary face should be the first detection")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty faces by default", func(t *testing.T) {
		mock := NewMockDetector()

		faces, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if faces != nil {
			t.Errorf("expected nil faces, got %v", faces)
		}
	})

	t.Run("returns configured faces", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetFaces([]FaceLandmarks{NeutralFace()})

		faces, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(faces) != 1 {
			t.Errorf("expected 1 face, got %d", len(faces))
		}
	})

	t.Run("plays back sequence then falls back", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetFaces([]FaceLandmarks{NeutralFace()})
		mock.SetSequence([][]FaceLandmarks{nil, {ClosedEyesFace()}})

		counts := []int{}
		for i := 0; i < 3; i++ {
			faces, _ := mock.Detect(nil)
			counts = append(counts, len(faces))
		}

		if counts[0] != 0 || counts[1] != 1 || counts[2] != 1 {
			t.Errorf("unexpected face counts %v", counts)
		}
		if mock.Calls() != 3 {
			t.Errorf("expected 3 calls, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		faces, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if faces != nil {
			t.Errorf("expected nil faces when error is set, got %v", faces)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestClosedEyesFace(t *testing.T) {
	open := NeutralFace()
	closed := ClosedEyesFace()

	lidGap := func(f FaceLandmarks, eye []int) float64 {
		return f.Points[eye[5]].Y - f.Points[eye[1]].Y
	}

	for name, eye := range map[string][]int{"left": LeftEye, "right": RightEye} {
		if lidGap(closed, eye) >= lidGap(open, eye) {
			t.Errorf("%s eye should be narrower when closed", name)
		}
		if lidGap(closed, eye) != 0 {
			t.Errorf("%s eye lids should meet, gap %f", name, lidGap(closed, eye))
		}
	}
}

func TestNewMediaPipeDetector_Preconditions(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing model", func(t *testing.T) {
		_, err := NewMediaPipeDetector(Config{ModelPath: filepath.Join(tmpDir, "missing.task")})
		if !errors.Is(err, ErrModelNotFound) {
			t.Errorf("expected ErrModelNotFound, got %v", err)
		}
	})

	model := filepath.Join(tmpDir, "face_landmarker.task")
	if err := os.WriteFile(model, []byte("model"), 0644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	t.Run("missing script", func(t *testing.T) {
		_, err := NewMediaPipeDetector(Config{
			ModelPath:  model,
			ScriptPath: filepath.Join(tmpDir, "nope.py"),
		})
		if !errors.Is(err, ErrServiceNotFound) {
			t.Errorf("expected ErrServiceNotFound, got %v", err)
		}
	})

	t.Run("defaults to one face", func(t *testing.T) {
		script := filepath.Join(tmpDir, serviceScript)
		if err := os.WriteFile(script, []byte("# stub"), 0644); err != nil {
			t.Fatalf("write script: %v", err)
		}

		d, err := NewMediaPipeDetector(Config{ModelPath: model, ScriptPath: script, Python: "python3"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.config.MaxFaces != 1 {
			t.Errorf("expected MaxFaces 1, got %d", d.config.MaxFaces)
		}
		if err := d.Close(); err != nil {
			t.Errorf("Close on unstarted detector returned %v", err)
		}
	})
}

func TestWireProtocol(t *testing.T) {
	t.Run("frame is length prefixed", func(t *testing.T) {
		var buf bytes.Buffer
		payload := []byte{0xFF, 0xD8, 0xFF, 0xD9}

		if err := writeFrame(&buf, payload); err != nil {
			t.Fatalf("writeFrame: %v", err)
		}

		got := buf.Bytes()
		if n := binary.BigEndian.Uint32(got[:4]); n != uint32(len(payload)) {
			t.Errorf("expected length %d, got %d", len(payload), n)
		}
		if !bytes.Equal(got[4:], payload) {
			t.Error("payload not written after header")
		}
	})

	t.Run("parses faces", func(t *testing.T) {
		line := `{"faces":[{"points":[{"x":0.1,"y":0.2,"z":-0.3}],"score":0.9}]}` + "\n"

		faces, err := readFaces(bufio.NewReader(strings.NewReader(line)))
		if err != nil {
			t.Fatalf("readFaces: %v", err)
		}
		if len(faces) != 1 || len(faces[0].Points) != 1 {
			t.Fatalf("unexpected faces %+v", faces)
		}
		if faces[0].Points[0] != (Point3D{X: 0.1, Y: 0.2, Z: -0.3}) {
			t.Errorf("unexpected point %+v", faces[0].Points[0])
		}
	})

	t.Run("no faces", func(t *testing.T) {
		faces, err := readFaces(bufio.NewReader(strings.NewReader("{\"faces\":[]}\n")))
		if err != nil {
			t.Fatalf("readFaces: %v", err)
		}
		if len(faces) != 0 {
			t.Errorf("expected no faces, got %d", len(faces))
		}
	})

	t.Run("service error", func(t *testing.T) {
		_, err := readFaces(bufio.NewReader(strings.NewReader("{\"error\":\"bad image\"}\n")))
		if err == nil || !strings.Contains(err.Error(), "bad image") {
			t.Errorf("expected service error, got %v", err)
		}
		if !errors.Is(err, ErrServiceFailed) {
			t.Errorf("expected ErrServiceFailed, got %v", err)
		}
	})

	t.Run("truncated stream", func(t *testing.T) {
		if _, err := readFaces(bufio.NewReader(strings.NewReader(""))); err == nil {
			t.Error("expected error on EOF")
		}
	})
}

func TestMediaPipeDetector_RestartsDeadService(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the interpreter")
	}

	tmpDir := t.TempDir()
	model := filepath.Join(tmpDir, "face_landmarker.task")
	script := filepath.Join(tmpDir, serviceScript)
	starts := filepath.Join(tmpDir, "starts")
	for _, path := range []string{model, script} {
		if err := os.WriteFile(path, []byte("stub"), 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	// An interpreter that records its start and exits without answering.
	python := filepath.Join(tmpDir, "python")
	body := "#!/bin/sh\necho started >> " + starts + "\nexit 1\n"
	if err := os.WriteFile(python, []byte(body), 0755); err != nil {
		t.Fatalf("write interpreter: %v", err)
	}

	d, err := NewMediaPipeDetector(Config{ModelPath: model, ScriptPath: script, Python: python})
	if err != nil {
		t.Fatalf("NewMediaPipeDetector: %v", err)
	}
	defer d.Close()

	frame := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV8UC3)
	defer frame.Close()

	for i := 0; i < 2; i++ {
		if _, err := d.Detect(&frame); err == nil {
			t.Fatalf("Detect %d: expected error from dead service", i)
		}
		if d.started {
			t.Fatalf("Detect %d: dead service should be shut down", i)
		}
	}

	data, err := os.ReadFile(starts)
	if err != nil {
		t.Fatalf("read starts: %v", err)
	}
	if n := strings.Count(string(data), "started"); n != 2 {
		t.Errorf("expected the service to be started twice, got %d", n)
	}
}
