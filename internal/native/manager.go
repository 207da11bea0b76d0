// Package native manages the process-wide setup of the PDF library and hands
// out an independent handle to every caller.
package native

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
)

// Phase is the lifecycle state of the library
type Phase int

const (
	Uninitialized Phase = iota
	Initialized
	Failed
)

func (p Phase) String() string {
	switch p {
	case Initialized:
		return "initialized"
	case Failed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Location is the result of one-time setup, shared read-only by every handle
type Location struct {
	Dir string
}

// Handle is a per-call binding to the library. Handles are never shared or reused.
type Handle struct {
	ID       string
	Location Location
	Config   *model.Configuration
}

// ReadContext parses a PDF with this handle's configuration
func (h *Handle) ReadContext(rs io.ReadSeeker) (*model.Context, error) {
	ctx, err := api.ReadContext(rs, h.Config)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// SetupFunc performs the one-time work of locating or materializing the library
type SetupFunc func() (Location, error)

// BindFunc builds a fresh handle bound to an established location
type BindFunc func(Location) (*Handle, error)

// Manager serializes the Uninitialized -> Initialized|Failed transition.
// Initialized and Failed are terminal until Reset.
type Manager struct {
	mu       sync.Mutex
	phase    Phase
	location Location
	failure  *errors.Error
	poisoned bool

	setup  SetupFunc
	bind   BindFunc
	logger *slog.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithSetup replaces the one-time setup step
func WithSetup(fn SetupFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.setup = fn
		}
	}
}

// WithBind replaces the per-call handle construction
func WithBind(fn BindFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.bind = fn
		}
	}
}

// WithWorkDir sets the directory the default setup materializes
func WithWorkDir(dir string) Option {
	return func(m *Manager) {
		if dir != "" {
			m.setup = DefaultSetup(dir)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// DefaultWorkDir is used when no work directory is configured
func DefaultWorkDir() string {
	return filepath.Join(os.TempDir(), "mcp-doc-extract", "pdfcpu")
}

// DefaultSetup creates the work directory and switches pdfcpu to its
// built-in configuration so that no per-user config dir is touched.
func DefaultSetup(dir string) SetupFunc {
	return func() (Location, error) {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return Location{}, err
		}
		api.DisableConfigDir()
		return Location{Dir: dir}, nil
	}
}

// DefaultBind creates a handle with its own relaxed-validation configuration
func DefaultBind(loc Location) (*Handle, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Handle{
		ID:       uuid.NewString(),
		Location: loc,
		Config:   conf,
	}, nil
}

// NewManager creates a manager in the Uninitialized phase
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		setup:  DefaultSetup(DefaultWorkDir()),
		bind:   DefaultBind,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var (
	sharedOnce sync.Once
	shared     *Manager
)

// Shared returns the process-wide manager, created on first use
func Shared(opts ...Option) *Manager {
	sharedOnce.Do(func() {
		shared = NewManager(opts...)
	})
	return shared
}

// Acquire returns a new handle, running setup first if nobody has yet.
// A setup failure is cached and returned to every later caller unchanged.
func (m *Manager) Acquire() (*Handle, error) {
	loc, err := m.resolve()
	if err != nil {
		return nil, err
	}

	h, bindErr := m.bind(loc)
	if bindErr != nil {
		return nil, errors.Wrap(errors.KindMissingDependency, "pdf library binding failed", bindErr).
			WithCode(errors.ErrBindFailed)
	}
	return h, nil
}

// resolve holds the lock only for the state decision. A panic escaping setup
// leaves the manager marked poisoned; the next caller clears the mark and
// continues with the state as it was.
func (m *Manager) resolve() (Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poisoned {
		m.logger.Warn("recovering pdf library state after panic", "phase", m.phase.String())
		m.poisoned = false
	}

	switch m.phase {
	case Initialized:
		return m.location, nil
	case Failed:
		return Location{}, m.failure
	}

	completed := false
	defer func() {
		if !completed {
			m.poisoned = true
		}
	}()

	loc, err := m.setup()
	completed = true

	if err != nil {
		m.phase = Failed
		m.failure = errors.Wrap(errors.KindMissingDependency, "pdf library setup failed", err).
			WithCode(errors.ErrSetupFailed)
		m.logger.Error("pdf library setup failed", "error", err)
		return Location{}, m.failure
	}

	m.phase = Initialized
	m.location = loc
	m.logger.Info("pdf library initialized", "dir", loc.Dir)
	return loc, nil
}

// State reports the current phase and the cached failure, if any
func (m *Manager) State() (Phase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == Failed {
		return m.phase, m.failure
	}
	return m.phase, nil
}

// Poisoned reports whether a panic escaped while the state lock was held
func (m *Manager) Poisoned() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poisoned
}

// Reset returns the manager to Uninitialized. Intended for tests and process re-initialization.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = Uninitialized
	m.location = Location{}
	m.failure = nil
	m.poisoned = false
}
