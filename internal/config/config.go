// Package config handles snapshot configuration.
//
// Values come from, in increasing priority: built-in defaults, a .env file,
// the process environment, and an optional YAML file. CLI flags are applied by
// the caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/GriffinCanCode/snapshot/internal/capture"
	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/export"
)

type Config struct {
	DBPath                  string        `yaml:"db"`
	OutputDir               string        `yaml:"output_dir"`
	FrameSource             string        `yaml:"frame_source"` // pattern, dir or screen
	SourceDir               string        `yaml:"source_dir"`
	SourceWidth             int           `yaml:"source_width"`
	SourceHeight            int           `yaml:"source_height"`
	ScreenDisplay           int           `yaml:"screen_display"`
	TickRate                float64       `yaml:"tick_rate"` // Hz
	PreviewDivisor          int           `yaml:"preview_divisor"`
	JPEGQuality             int           `yaml:"jpeg_quality"`
	ExportJPEG              bool          `yaml:"export_jpeg"`
	ExportPNG               bool          `yaml:"export_png"`
	MaxHashDistance         int           `yaml:"max_hash_distance"`
	AutosaveDelay           time.Duration `yaml:"autosave_delay"`
	CaptureFailureThreshold int           `yaml:"capture_failure_threshold"`
	LogLevel                string        `yaml:"log_level"`
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		DBPath:                  getEnv("SNAPSHOT_DB", DefaultDBPath),
		OutputDir:               getEnv("OUTPUT_DIR", DefaultOutputDir),
		FrameSource:             getEnv("FRAME_SOURCE", capture.KindPattern),
		SourceDir:               getEnv("SOURCE_DIR", ""),
		SourceWidth:             getEnvInt("SOURCE_WIDTH", capture.DefaultPatternWidth),
		SourceHeight:            getEnvInt("SOURCE_HEIGHT", capture.DefaultPatternHeight),
		ScreenDisplay:           getEnvInt("SCREEN_DISPLAY", 0),
		TickRate:                getEnvFloat("TICK_RATE", DefaultTickRate),
		PreviewDivisor:          getEnvInt("PREVIEW_DIVISOR", capture.DefaultPreviewDivisor),
		JPEGQuality:             getEnvInt("JPEG_QUALITY", export.DefaultQuality),
		ExportJPEG:              getEnvBool("EXPORT_JPEG", true),
		ExportPNG:               getEnvBool("EXPORT_PNG", false),
		MaxHashDistance:         getEnvInt("MAX_HASH_DISTANCE", DefaultMaxHashDistance),
		AutosaveDelay:           getEnvDuration("AUTOSAVE_DELAY", DefaultAutosaveDelay),
		CaptureFailureThreshold: getEnvInt("CAPTURE_FAILURE_THRESHOLD", DefaultCaptureFailureThreshold),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
	}
}

// LoadFiles loads dotenv (if present) into the environment, reads the
// environment, then overlays the YAML file at yamlPath when it is non-empty.
func LoadFiles(dotenv, yamlPath string) (*Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "failed to load %s", dotenv)
		}
	}

	cfg := Load()
	if yamlPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "failed to read config file %s", yamlPath)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "failed to parse config file %s", yamlPath)
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.TickRate <= 0 {
		problems = append(problems, fmt.Sprintf("tick_rate must be positive, got %g", c.TickRate))
	}
	if c.PreviewDivisor <= 0 {
		problems = append(problems, fmt.Sprintf("preview_divisor must be positive, got %d", c.PreviewDivisor))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		problems = append(problems, fmt.Sprintf("jpeg_quality must be in 1..100, got %d", c.JPEGQuality))
	}
	if c.SourceWidth < 0 || c.SourceHeight < 0 {
		problems = append(problems, "source dimensions must not be negative")
	}
	if c.MaxHashDistance < 0 || c.MaxHashDistance > 64 {
		problems = append(problems, fmt.Sprintf("max_hash_distance must be in 0..64, got %d", c.MaxHashDistance))
	}
	if c.CaptureFailureThreshold <= 0 {
		problems = append(problems, fmt.Sprintf("capture_failure_threshold must be positive, got %d", c.CaptureFailureThreshold))
	}
	if c.AutosaveDelay < 0 {
		problems = append(problems, "autosave_delay must not be negative")
	}
	switch c.FrameSource {
	case capture.KindPattern, capture.KindScreen:
	case capture.KindDir:
		if c.SourceDir == "" {
			problems = append(problems, "frame_source dir needs source_dir")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown frame_source %q", c.FrameSource))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return apperrors.New(apperrors.ConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// SourceConfig returns the frame source settings.
func (c *Config) SourceConfig() capture.SourceConfig {
	return capture.SourceConfig{
		Kind:    c.FrameSource,
		Dir:     c.SourceDir,
		Width:   uint32(max(c.SourceWidth, 0)),
		Height:  uint32(max(c.SourceHeight, 0)),
		Display: c.ScreenDisplay,
	}
}

// ExportOptions returns the default export options.
func (c *Config) ExportOptions() export.Options {
	return export.Options{JPEG: c.ExportJPEG, PNG: c.ExportPNG, Quality: c.JPEGQuality}
}

// TickInterval converts TickRate to a ticker period.
func (c *Config) TickInterval() time.Duration {
	rate := c.TickRate
	if rate <= 0 {
		rate = DefaultTickRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// SlogLevel returns the configured log level, info when unparseable.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", s)
	}
	return lvl, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
