// Package config loads and validates collector settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Feedback modes.
const (
	FeedbackAuto = "auto"
	FeedbackBell = "bell"
	FeedbackNone = "none"
)

// DefaultOutputFile is the dataset file name written inside OutputDir.
const DefaultOutputFile = "3d_landmarks_full.csv"

// Config holds every setting of a collection run.
type Config struct {
	CameraID       int    `validate:"gte=0"`
	CameraFallback bool
	Mirror         bool
	ModelPath      string `validate:"required"`
	ScriptPath     string
	OutputDir      string `validate:"required"`
	OutputFile     string `validate:"required"`
	DBPath         string
	ProtocolFile   string
	LogDir         string
	LogLevel       string `validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	ListenAddr     string `validate:"omitempty,hostname_port"`
	WebDir         string
	Feedback       string `validate:"oneof=auto bell none"`
	Headless       bool
	Tray           bool
}

// Default returns a Config rooted at ~/.wakeguard.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	root := filepath.Join(home, ".wakeguard")

	return Config{
		CameraID:       0,
		CameraFallback: true,
		Mirror:         true,
		ModelPath:      filepath.Join(root, "models", "face_landmarker.task"),
		OutputDir:      filepath.Join(root, "data", "raw"),
		OutputFile:     DefaultOutputFile,
		DBPath:         filepath.Join(root, "wakeguard.db"),
		LogDir:         filepath.Join(root, "logs"),
		LogLevel:       "info",
		Feedback:       FeedbackAuto,
	}
}

// Load returns the defaults overridden by WAKEGUARD_* environment variables.
// A .env file in the working directory, if present, is loaded first without
// overriding variables that are already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OutputPath is the full path of the exported dataset.
func (c Config) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputFile)
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"WAKEGUARD_MODEL_PATH":    &c.ModelPath,
		"WAKEGUARD_SCRIPT_PATH":   &c.ScriptPath,
		"WAKEGUARD_OUTPUT_DIR":    &c.OutputDir,
		"WAKEGUARD_OUTPUT_FILE":   &c.OutputFile,
		"WAKEGUARD_DB_PATH":       &c.DBPath,
		"WAKEGUARD_PROTOCOL_FILE": &c.ProtocolFile,
		"WAKEGUARD_LOG_DIR":       &c.LogDir,
		"WAKEGUARD_LOG_LEVEL":     &c.LogLevel,
		"WAKEGUARD_LISTEN_ADDR":   &c.ListenAddr,
		"WAKEGUARD_WEB_DIR":       &c.WebDir,
		"WAKEGUARD_FEEDBACK":      &c.Feedback,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"WAKEGUARD_CAMERA_FALLBACK": &c.CameraFallback,
		"WAKEGUARD_MIRROR":          &c.Mirror,
		"WAKEGUARD_HEADLESS":        &c.Headless,
		"WAKEGUARD_TRAY":            &c.Tray,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	if v, ok := lookup("WAKEGUARD_CAMERA"); ok {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WAKEGUARD_CAMERA: %w", err)
		}
		c.CameraID = id
	}

	return nil
}
