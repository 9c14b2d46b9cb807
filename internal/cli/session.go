package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/snapshot/internal/config"
	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/frame"
	"github.com/GriffinCanCode/snapshot/internal/orchestrator"
	"github.com/GriffinCanCode/snapshot/internal/session"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig resolves configuration from dotenv, environment, YAML and flags,
// in that order, and installs the process logger.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFiles(opts.DotEnv, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

// withManager opens the session, runs fn and closes it, saving any change.
func withManager(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, m *orchestrator.Manager) error, mopts ...orchestrator.ManagerOption) (err error) {
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	m, err := orchestrator.NewManager(ctx, cfg, mopts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, m)
}

// resolve finds a record by ID, label or 1-based position. An empty key
// means the selected record.
func resolve(sess *session.Session, key string) (int, error) {
	if sess.Len() == 0 {
		return 0, apperrors.New(apperrors.NotFound, "the session has no photos")
	}
	if key == "" {
		return sess.Selected(), nil
	}
	if i, ok := sess.Find(key); ok {
		return i, nil
	}
	if n, err := strconv.Atoi(key); err == nil {
		if n < 1 || n > sess.Len() {
			return 0, apperrors.Newf(apperrors.NotFound, "position %d out of range 1..%d", n, sess.Len())
		}
		return n - 1, nil
	}
	return 0, apperrors.Newf(apperrors.NotFound, "no photo matches %q", key)
}

// RecordInfo is the listing form of a record.
type RecordInfo struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Label    string `json:"label"`
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
	Marked   bool   `json:"marked"`
	State    string `json:"state"`
	Selected bool   `json:"selected"`
}

func (r RecordInfo) String() string {
	sel, mark := " ", " "
	if r.Selected {
		sel = ">"
	}
	if r.Marked {
		mark = "*"
	}
	line := fmt.Sprintf("%s%s %3d  %s  %dx%d", sel, mark, r.Position, r.Label, r.Width, r.Height)
	if r.State != frame.Active.String() {
		line += "  [" + r.State + "]"
	}
	return line
}

func infoAt(sess *session.Session, i int) (RecordInfo, error) {
	rec, err := sess.At(i)
	if err != nil {
		return RecordInfo{}, err
	}
	return RecordInfo{
		Position: i + 1,
		ID:       rec.ID,
		Label:    rec.Label,
		Width:    rec.Width,
		Height:   rec.Height,
		Marked:   rec.Marked,
		State:    rec.State.String(),
		Selected: i == sess.Selected(),
	}, nil
}

// Listing is the output of list.
type Listing struct {
	Tab        string       `json:"tab"`
	Records    []RecordInfo `json:"records"`
	Exportable int          `json:"exportable"`
}

func (l Listing) String() string {
	if len(l.Records) == 0 {
		return "no photos"
	}
	var sb strings.Builder
	for _, r := range l.Records {
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "%d photo(s), %d marked for export", len(l.Records), l.Exportable)
	return sb.String()
}

func listing(sess *session.Session) Listing {
	l := Listing{Tab: sess.Tab().String(), Exportable: sess.MarkedCount(), Records: []RecordInfo{}}
	for i := 0; i < sess.Len(); i++ {
		if info, err := infoAt(sess, i); err == nil {
			l.Records = append(l.Records, info)
		}
	}
	return l
}

// RecordList prints one record per line.
type RecordList []RecordInfo

func (l RecordList) String() string {
	lines := make([]string, len(l))
	for i, r := range l {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}
