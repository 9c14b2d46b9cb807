// Package deliver hands finished archives to their destination.
package deliver

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/trace"
)

// Deliverer accepts a finished byte payload under a suggested filename.
type Deliverer interface {
	Deliver(ctx context.Context, data []byte, filename, mimeType string) error
}

// DirDeliverer writes payloads into a directory.
type DirDeliverer struct {
	dir string
}

// NewDirDeliverer creates a deliverer for dir. The directory must exist.
func NewDirDeliverer(dir string) *DirDeliverer {
	return &DirDeliverer{dir: dir}
}

// Dir returns the target directory.
func (d *DirDeliverer) Dir() string { return d.dir }

// Deliver writes data to <dir>/<filename> through a temporary file and a
// rename, so a reader never observes a partial archive.
func (d *DirDeliverer) Deliver(ctx context.Context, data []byte, filename, mimeType string) error {
	ctx, span := trace.StartSpan(ctx, "deliver")
	defer span.End()
	span.SetAttr("filename", filename)
	span.SetAttr("mime", mimeType)

	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.DeliveryWriteRejected, "delivery cancelled")
	}
	name, err := cleanName(filename)
	if err != nil {
		return err
	}

	info, err := os.Stat(d.dir)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.DeliveryTargetUnavailable, "target %s unavailable", d.dir)
	}
	if !info.IsDir() {
		return apperrors.Newf(apperrors.DeliveryTargetUnavailable, "target %s is not a directory", d.dir)
	}

	tmp, err := os.CreateTemp(d.dir, ".snapshot-*.part")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return apperrors.Wrapf(err, apperrors.DeliveryTargetUnavailable, "target %s is not writable", d.dir)
		}
		return apperrors.Wrap(err, apperrors.DeliveryWriteRejected, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.DeliveryWriteRejected, "failed to write archive")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.DeliveryWriteRejected, "failed to sync archive")
	}
	if err := tmp.Close(); err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.DeliveryWriteRejected, "failed to close archive")
	}

	dst := filepath.Join(d.dir, name)
	if err := os.Rename(tmpName, dst); err != nil {
		span.RecordError(err)
		return apperrors.Wrapf(err, apperrors.DeliveryWriteRejected, "failed to move archive to %s", dst)
	}

	span.SetAttr("bytes", len(data))
	trace.Logger(ctx).Info("archive delivered", "path", dst, "span", span)
	return nil
}

// WriterDeliverer streams payloads to a writer, optionally as a data URL.
type WriterDeliverer struct {
	w       io.Writer
	dataURL bool
}

// NewWriterDeliverer creates a deliverer over w. With dataURL set the payload
// is written as a base64 data: URL followed by a newline.
func NewWriterDeliverer(w io.Writer, dataURL bool) *WriterDeliverer {
	return &WriterDeliverer{w: w, dataURL: dataURL}
}

func (d *WriterDeliverer) Deliver(ctx context.Context, data []byte, filename, mimeType string) error {
	if d.w == nil {
		return apperrors.New(apperrors.DeliveryTargetUnavailable, "no output writer")
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.DeliveryWriteRejected, "delivery cancelled")
	}

	var err error
	if d.dataURL {
		_, err = io.WriteString(d.w, DataURL(data, mimeType)+"\n")
	} else {
		_, err = d.w.Write(data)
	}
	if err != nil {
		return apperrors.Wrapf(err, apperrors.DeliveryWriteRejected, "failed to write %s", filename)
	}
	return nil
}

// DataURL encodes data as an RFC 2397 data URL.
func DataURL(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

func cleanName(filename string) (string, error) {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		return "", apperrors.Newf(apperrors.InvalidArgument, "invalid filename %q", filename)
	}
	return name, nil
}
