package orchestrator

import "time"

// Orchestrator configuration constants
const (
	// Live preview refresh rate
	DefaultTickInterval = time.Second / 60

	// Consecutive capture failures before the live preview stops retrying
	DefaultFailureThreshold = 3

	// Status lines shown in the view
	StatusNoPhotos   = "no photos yet, showing live preview"
	StatusConfirm    = "delete this photo? confirm or cancel"
	StatusReloadHint = "capture stopped after repeated failures; reloading may help"
)
