package orchestrator

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/snapshot/internal/capture"
	"github.com/GriffinCanCode/snapshot/internal/config"
	"github.com/GriffinCanCode/snapshot/internal/deliver"
	"github.com/GriffinCanCode/snapshot/internal/session"
	"github.com/GriffinCanCode/snapshot/internal/store"
	"github.com/GriffinCanCode/snapshot/internal/trace"
)

// Manager wires a session to its frame source, store and delivery target
// and owns their lifecycle.
type Manager struct {
	cfg      *config.Config
	src      capture.Source
	db       *store.SQLite
	autosave *store.Autosaver
	sess     *session.Session
	orch     *Orchestrator
}

// ManagerOption overrides a component built from config.
type ManagerOption func(*managerDeps)

type managerDeps struct {
	src capture.Source
	out deliver.Deliverer
}

// WithSource uses src instead of the configured frame source.
func WithSource(src capture.Source) ManagerOption {
	return func(d *managerDeps) { d.src = src }
}

// WithDeliverer uses out instead of writing into the output directory.
func WithDeliverer(out deliver.Deliverer) ManagerOption {
	return func(d *managerDeps) { d.out = out }
}

// NewManager opens the store, restores the previous session if any, and
// builds the orchestrator.
func NewManager(ctx context.Context, cfg *config.Config, opts ...ManagerOption) (*Manager, error) {
	ctx, span := trace.StartSpan(ctx, "manager_start")
	defer span.End()
	log := trace.Logger(ctx)

	var deps managerDeps
	for _, opt := range opts {
		opt(&deps)
	}
	if deps.src == nil {
		src, err := capture.Open(cfg.SourceConfig())
		if err != nil {
			return nil, err
		}
		deps.src = src
	}
	if deps.out == nil {
		deps.out = deliver.NewDirDeliverer(cfg.OutputDir)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		capture.Close(deps.src)
		return nil, err
	}

	m := &Manager{cfg: cfg, src: deps.src, db: db}
	m.sess = session.New(
		session.WithMaxHashDistance(cfg.MaxHashDistance),
		session.WithExportOptions(cfg.ExportOptions()),
		session.OnChange(m.touch),
	)

	prev, found, err := db.Load(ctx)
	if err != nil {
		db.Close()
		capture.Close(deps.src)
		return nil, err
	}
	if found {
		m.sess.Restore(prev)
		log.Info("session restored", "records", len(prev.Records), "tab", prev.Tab)
	}

	m.autosave = store.NewAutosaver(db, m.sess.Snapshot, cfg.AutosaveDelay)
	capturer := capture.NewCapturer(deps.src, capture.WithPreviewDivisor(cfg.PreviewDivisor))
	m.orch = New(m.sess, capturer, deps.out,
		WithFailureThreshold(cfg.CaptureFailureThreshold),
		WithTickInterval(cfg.TickInterval()),
	)
	return m, nil
}

func (m *Manager) touch() {
	if m.autosave != nil {
		m.autosave.Touch()
	}
}

// Orchestrator returns the tick loop and actions.
func (m *Manager) Orchestrator() *Orchestrator { return m.orch }

// Session returns the managed session.
func (m *Manager) Session() *session.Session { return m.sess }

// Config returns the configuration the manager was built from.
func (m *Manager) Config() *config.Config { return m.cfg }

// Save flushes pending session changes to the store now.
func (m *Manager) Save(ctx context.Context) error {
	return m.autosave.Flush(ctx)
}

// Close saves the session and releases the source and the store.
func (m *Manager) Close(ctx context.Context) error {
	err := m.autosave.Stop(ctx)
	if cerr := capture.Close(m.src); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if cerr := m.db.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}
