// Package registry owns the set of extractors and dispatches requests to them
// in priority order, falling back on failure.
package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

type member struct {
	extractor Extractor
	mimeTypes map[string]struct{}
	seq       uint64
}

func (m *member) descriptor() Descriptor {
	mimes := make([]string, 0, len(m.mimeTypes))
	for mt := range m.mimeTypes {
		mimes = append(mimes, mt)
	}
	sort.Strings(mimes)
	return Descriptor{
		Name:           m.extractor.Name(),
		Version:        m.extractor.Version(),
		MimeTypes:      mimes,
		Priority:       m.extractor.Priority(),
		RegistrationID: m.seq,
	}
}

// Registry holds registered extractors. Membership changes and dispatch may run
// concurrently; dispatch works on a snapshot of the candidates.
type Registry struct {
	mu      sync.RWMutex
	members map[string]*member
	seq     uint64
	logger  *slog.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger used for dispatch diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		members: make(map[string]*member),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register initializes the extractor and adds it. A name that is already
// registered is rejected without calling Initialize. Initialize runs under the
// write lock: readers block until registration completes.
func (r *Registry) Register(ext Extractor) error {
	if ext == nil {
		return errors.Validation("extractor is nil", nil)
	}
	name := ext.Name()
	if name == "" {
		return errors.Validation("extractor name is empty", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[name]; exists {
		return errors.DuplicateExtractor(name)
	}

	if err := callHook(name, "initialize", ext.Initialize); err != nil {
		return err
	}

	mimes := make(map[string]struct{})
	for _, mt := range ext.SupportedMimeTypes() {
		if n := mime.Normalize(mt); n != "" {
			mimes[n] = struct{}{}
		}
	}

	r.seq++
	r.members[name] = &member{extractor: ext, mimeTypes: mimes, seq: r.seq}
	r.logger.Debug("extractor registered", "extractor", name, "priority", ext.Priority(), "mime_types", len(mimes))
	return nil
}

// Unregister shuts the extractor down and removes it. Unknown names are ignored.
// The extractor is removed even when Shutdown fails; that error is returned.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[name]
	if !ok {
		return nil
	}

	err := callHook(name, "shutdown", m.extractor.Shutdown)
	delete(r.members, name)
	return err
}

// Close shuts down every extractor, newest first, and empties the registry
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ordered := make([]*member, 0, len(r.members))
	for _, m := range r.members {
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq > ordered[j].seq })

	var errs []error
	for _, m := range ordered {
		name := m.extractor.Name()
		if err := callHook(name, "shutdown", m.extractor.Shutdown); err != nil {
			errs = append(errs, err)
		}
		delete(r.members, name)
	}
	return stderrors.Join(errs...)
}

// Get returns a registered extractor by name
func (r *Registry) Get(name string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[name]
	if !ok {
		return nil, false
	}
	return m.extractor, true
}

// Len returns the number of registered extractors
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// List describes every registered extractor in registration order
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationID < out[j].RegistrationID })
	return out
}

// SupportedMimeTypes returns the sorted union of all registered MIME types
func (r *Registry) SupportedMimeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, m := range r.members {
		for mt := range m.mimeTypes {
			seen[mt] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for mt := range seen {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

// Candidates returns the extractors that would be tried for a MIME type, in order
func (r *Registry) Candidates(mimeType string) []Descriptor {
	members := r.candidates(mime.Normalize(mimeType))
	out := make([]Descriptor, len(members))
	for i, m := range members {
		out[i] = m.descriptor()
	}
	return out
}

// candidates selects exact MIME matches and orders them by priority
// descending, then by registration order ascending.
func (r *Registry) candidates(normalized string) []*member {
	r.mu.RLock()
	out := make([]*member, 0, 4)
	for _, m := range r.members {
		if _, ok := m.mimeTypes[normalized]; ok {
			out = append(out, m)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].extractor.Priority(), out[j].extractor.Priority()
		if pi != pj {
			return pi > pj
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Dispatch runs the request through the candidate extractors until one succeeds.
// It fails with NoExtractorAvailable when nothing claims the MIME type and with
// an *errors.AggregateError, in try order, when every candidate fails.
func (r *Registry) Dispatch(ctx context.Context, req types.ExtractionRequest) (*types.ExtractionResult, error) {
	normalized := mime.Normalize(req.MimeType)

	candidates := r.candidates(normalized)
	if len(candidates) == 0 {
		return nil, errors.NoExtractorAvailable(normalized)
	}

	failures := errors.NewAggregateError(normalized)
	for _, m := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.KindOther, "extraction cancelled", err)
		}

		name := m.extractor.Name()
		result, err := r.try(ctx, m.extractor, req, normalized)
		if err == nil {
			result.MimeType = normalized
			return result, nil
		}

		failures.Add(name, err)
		r.logger.Debug("extractor failed, falling back",
			"extractor", name,
			"mime_type", normalized,
			"error", err)
	}

	return nil, failures
}

// Extract is a convenience wrapper around Dispatch
func (r *Registry) Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error) {
	return r.Dispatch(ctx, types.ExtractionRequest{Content: content, MimeType: mimeType, Config: cfg})
}

func (r *Registry) try(ctx context.Context, ext Extractor, req types.ExtractionRequest, mimeType string) (result *types.ExtractionResult, err error) {
	name := ext.Name()
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = errors.Plugin(name, fmt.Sprintf("extractor panicked: %v", p), nil)
		}
	}()

	result, err = ext.Extract(ctx, req.Content, mimeType, req.Config)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.Plugin(name, "extractor returned no result", nil)
	}
	return result, nil
}

func callHook(name, hook string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Plugin(name, fmt.Sprintf("%s panicked: %v", hook, p), nil)
		}
	}()

	if hookErr := fn(); hookErr != nil {
		return errors.Plugin(name, hook+" failed", hookErr)
	}
	return nil
}
