package frame

const (
	// BytesPerPixel is the RGBA stride of a pixel buffer.
	BytesPerPixel = 4

	// LabelLayout formats capture timestamps into record labels.
	LabelLayout = "2006-01-02 15-04-05.000"

	// MaxHashDistance is the Hamming distance at or below which two frames
	// count as near-duplicates.
	MaxHashDistance = 5
)
