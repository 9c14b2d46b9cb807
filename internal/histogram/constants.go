package histogram

const (
	// Bins is the number of buckets per series.
	Bins = 64

	// Series is the number of distributions tracked side by side.
	Series = 3

	// Headroom keeps the tallest bin below 1.0 when plotted.
	Headroom = 1.1
)
