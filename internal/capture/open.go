package capture

import (
	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
)

// Source kinds accepted by Open.
const (
	KindPattern = "pattern"
	KindDir     = "dir"
	KindScreen  = "screen"
)

// SourceConfig selects and configures a frame source.
type SourceConfig struct {
	Kind    string
	Dir     string
	Width   uint32
	Height  uint32
	Display int
}

// Open creates the frame source described by cfg.
func Open(cfg SourceConfig) (Source, error) {
	switch cfg.Kind {
	case "", KindPattern:
		return NewPatternSource(cfg.Width, cfg.Height), nil
	case KindDir:
		if cfg.Dir == "" {
			return nil, apperrors.New(apperrors.ConfigInvalid, "dir source needs a directory")
		}
		return NewDirSource(cfg.Dir), nil
	case KindScreen:
		return NewScreenSource(cfg.Display), nil
	default:
		return nil, apperrors.Newf(apperrors.ConfigInvalid, "unknown frame source %q", cfg.Kind)
	}
}
