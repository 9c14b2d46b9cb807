package capture

// Capture constants
const (
	// Preview frames are this many times smaller than native on each axis
	DefaultPreviewDivisor = 5

	// Default synthetic pattern size
	DefaultPatternWidth  = 640
	DefaultPatternHeight = 480
)
