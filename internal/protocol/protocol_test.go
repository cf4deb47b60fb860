package protocol

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()

	require.Equal(t, 8, p.Count())
	assert.Equal(t, 4400, p.TotalTarget())

	t.Run("alert stages precede drowsy stages", func(t *testing.T) {
		seenDrowsy := false
		for i := 0; i < p.Count(); i++ {
			s, ok := p.Get(i)
			require.True(t, ok)
			if s.Label == LabelDrowsy {
				seenDrowsy = true
			} else {
				assert.False(t, seenDrowsy, "stage %d is alert after a drowsy stage", i)
			}
			assert.Positive(t, s.Target)
			assert.NotEmpty(t, s.Description)
		}
	})

	t.Run("first stage", func(t *testing.T) {
		s, _ := p.Get(0)
		assert.Equal(t, Stage{Label: 0, Description: "NORMAL - Looking straight", Target: 800}, s)
	})
}

func TestProtocol_Get(t *testing.T) {
	p := Default()

	tests := []struct {
		name  string
		index int
		ok    bool
	}{
		{name: "negative", index: -1, ok: false},
		{name: "first", index: 0, ok: true},
		{name: "last", index: 7, ok: true},
		{name: "past end", index: 8, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := p.Get(tt.index)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestProtocol_Immutable(t *testing.T) {
	stages := []Stage{{Label: 0, Description: "a", Target: 1}}
	p, err := New(stages)
	require.NoError(t, err)

	stages[0].Target = 99
	got, _ := p.Get(0)
	assert.Equal(t, 1, got.Target)

	copied := p.Stages()
	copied[0].Target = 42
	got, _ = p.Get(0)
	assert.Equal(t, 1, got.Target)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		stages  []Stage
		wantErr bool
	}{
		{name: "valid", stages: []Stage{{Label: 0, Description: "x", Target: 3}}},
		{name: "zero target allowed", stages: []Stage{{Label: 1, Description: "x", Target: 0}}},
		{name: "larger label allowed", stages: []Stage{{Label: 7, Description: "x", Target: 1}}},
		{name: "empty", stages: nil, wantErr: true},
		{name: "negative target", stages: []Stage{{Label: 0, Description: "x", Target: -1}}, wantErr: true},
		{name: "negative label", stages: []Stage{{Label: -1, Description: "x", Target: 1}}, wantErr: true},
		{name: "missing description", stages: []Stage{{Label: 0, Target: 1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.stages)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("round trips default", func(t *testing.T) {
		data, err := json.Marshal(Default())
		require.NoError(t, err)
		path := filepath.Join(dir, "default.json")
		require.NoError(t, os.WriteFile(path, data, 0644))

		p, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, Default().Stages(), p.Stages())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{stages"), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid stage", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"stages":[{"label":0,"description":"","target":5}]}`), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
