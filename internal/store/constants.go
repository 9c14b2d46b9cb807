package store

import "time"

// Settings keys.
const (
	keyActiveTab     = "active_tab"
	keyExportJPEG    = "export_jpeg"
	keyExportPNG     = "export_png"
	keyJPEGQuality   = "jpeg_quality"
	keySelectedIndex = "selected_index"
	keyHistogramMode = "histogram_mode"
)

const (
	busyTimeoutMS = 5000

	DefaultAutosaveDelay = 500 * time.Millisecond

	// Failed saves (after retries) before saving pauses for a while
	DefaultFailureThreshold = 3
)
