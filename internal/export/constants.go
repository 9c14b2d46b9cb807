package export

import "image/jpeg"

const (
	// MIMEType is the media type of every archive produced by Export.
	MIMEType = "application/zip"

	// ArchiveLayout formats the archive filename from the export time.
	ArchiveLayout = "2006-01-02 15-04-05"
	ArchiveSuffix = " Photos.zip"

	DefaultQuality = jpeg.DefaultQuality

	extJPEG = ".jpg"
	extPNG  = ".png"
)
