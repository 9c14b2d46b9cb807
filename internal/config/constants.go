package config

import "time"

const (
	DefaultDBPath                  = "snapshot.db"
	DefaultOutputDir               = "."
	DefaultDotEnv                  = ".env"
	DefaultTickRate                = 60.0 // Hz
	DefaultMaxHashDistance         = 5
	DefaultAutosaveDelay           = 500 * time.Millisecond
	DefaultCaptureFailureThreshold = 3
)
