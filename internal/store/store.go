// Package store persists a capture session so it survives restarts.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/export"
	"github.com/GriffinCanCode/snapshot/internal/frame"
	"github.com/GriffinCanCode/snapshot/internal/histogram"
	"github.com/GriffinCanCode/snapshot/internal/session"
	"github.com/GriffinCanCode/snapshot/internal/trace"
)

//go:embed schema.sql
var schemaSQL string

// SessionStore saves and restores session state.
type SessionStore interface {
	// Save replaces the stored state with st.
	Save(ctx context.Context, st session.State) error
	// Load returns the stored state. found is false when nothing was saved yet.
	Load(ctx context.Context) (st session.State, found bool, err error)
}

// SQLite is a SessionStore backed by a single SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ SessionStore = (*SQLite)(nil)

// Open creates or opens the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.StoreFailed, "failed to open database")
	}

	// One connection: SQLite has a single writer, and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.StoreFailed, "failed to connect to database")
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.StoreFailed, "failed to apply pragmas")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.StoreFailed, "failed to apply schema")
	}
	return &SQLite{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save rewrites settings and records in one transaction.
func (s *SQLite) Save(ctx context.Context, st session.State) error {
	ctx, span := trace.StartSpan(ctx, "store_save")
	defer span.End()
	span.SetAttr("records", len(st.Records))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return classify(err, "failed to begin transaction")
	}
	defer tx.Rollback() // no-op after commit

	settings := map[string]string{
		keyActiveTab:     st.Tab.String(),
		keyExportJPEG:    strconv.FormatBool(st.Export.JPEG),
		keyExportPNG:     strconv.FormatBool(st.Export.PNG),
		keyJPEGQuality:   strconv.Itoa(st.Export.Quality),
		keySelectedIndex: strconv.Itoa(st.Selected),
		keyHistogramMode: st.Mode.String(),
	}
	for k, v := range settings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			span.RecordError(err)
			return classify(err, "failed to save setting "+k)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		span.RecordError(err)
		return classify(err, "failed to clear records")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records
		(id, position, label, width, height, pixels, marked, pending_deletion, captured_at, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		span.RecordError(err)
		return classify(err, "failed to prepare record insert")
	}
	defer stmt.Close()

	for i, r := range st.Records {
		if r.State == frame.Removed {
			continue
		}
		pixels := r.Pixels
		if pixels == nil {
			pixels = []byte{}
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, i, r.Label, r.Width, r.Height, pixels,
			r.Marked, r.PendingDeletion(), r.CapturedAt.Format(time.RFC3339Nano), int64(r.Hash),
		); err != nil {
			span.RecordError(err)
			return classify(err, "failed to save record "+r.Label)
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return classify(err, "failed to commit session")
	}
	trace.Logger(ctx).Debug("session saved", "span", span)
	return nil
}

// Load reads the stored state. Records that fail validation are skipped.
func (s *SQLite) Load(ctx context.Context) (session.State, bool, error) {
	ctx, span := trace.StartSpan(ctx, "store_load")
	defer span.End()
	log := trace.Logger(ctx)

	st := session.State{Export: export.DefaultOptions(), Mode: histogram.RGB}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return st, false, err
	}
	records, err := s.loadRecords(ctx, log)
	if err != nil {
		return st, false, err
	}
	if len(settings) == 0 && len(records) == 0 {
		return st, false, nil
	}

	if v, ok := settings[keyActiveTab]; ok {
		if tab, err := session.ParseTab(v); err == nil {
			st.Tab = tab
		} else {
			log.Warn("ignoring stored tab", "value", v)
		}
	}
	if v, ok := settings[keyExportJPEG]; ok {
		st.Export.JPEG, _ = strconv.ParseBool(v)
	}
	if v, ok := settings[keyExportPNG]; ok {
		st.Export.PNG, _ = strconv.ParseBool(v)
	}
	if v, ok := settings[keyJPEGQuality]; ok {
		if q, err := strconv.Atoi(v); err == nil {
			st.Export.Quality = q
		}
	}
	if v, ok := settings[keySelectedIndex]; ok {
		st.Selected, _ = strconv.Atoi(v)
	}
	if v, ok := settings[keyHistogramMode]; ok {
		if mode, err := histogram.ParseSpace(v); err == nil {
			st.Mode = mode
		} else {
			log.Warn("ignoring stored histogram mode", "value", v)
		}
	}
	st.Records = records

	span.SetAttr("records", len(records))
	log.Debug("session loaded", "span", span)
	return st, true, nil
}

func (s *SQLite) loadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, classify(err, "failed to query settings")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, classify(err, "failed to scan setting")
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to read settings")
	}
	return out, nil
}

func (s *SQLite) loadRecords(ctx context.Context, log *slog.Logger) ([]*frame.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label, width, height, pixels, marked,
		pending_deletion, captured_at, hash FROM records ORDER BY position`)
	if err != nil {
		return nil, classify(err, "failed to query records")
	}
	defer rows.Close()

	var out []*frame.Record
	for rows.Next() {
		var (
			r          frame.Record
			pending    bool
			capturedAt string
			hash       int64
		)
		if err := rows.Scan(&r.ID, &r.Label, &r.Width, &r.Height, &r.Pixels,
			&r.Marked, &pending, &capturedAt, &hash); err != nil {
			return nil, classify(err, "failed to scan record")
		}
		r.Hash = uint64(hash)
		if pending {
			r.State = frame.PendingDeletion
		}
		if t, err := time.Parse(time.RFC3339Nano, capturedAt); err == nil {
			r.CapturedAt = t
		}
		if err := r.Validate(); err != nil {
			log.Warn("skipping corrupt stored record", "id", r.ID, "error", err)
			continue
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to read records")
	}
	return out, nil
}

// classify maps lock contention to STORE_BUSY so callers can retry it.
func classify(err error, msg string) error {
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return apperrors.Wrap(err, apperrors.StoreBusy, msg)
	}
	return apperrors.Wrap(err, apperrors.StoreFailed, msg)
}
