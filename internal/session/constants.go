package session

import "github.com/GriffinCanCode/snapshot/internal/frame"

// DefaultMaxHashDistance is the Hamming distance at or below which a new
// capture is flagged as a near duplicate of the previous one.
const DefaultMaxHashDistance = frame.MaxHashDistance
