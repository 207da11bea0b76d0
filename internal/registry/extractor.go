package registry

import (
	"context"

	"github.com/a3tai/mcp-doc-extract/internal/types"
)

// Extractor turns bytes of one or more MIME types into an ExtractionResult.
// Implementations must be safe for concurrent Extract calls once initialized.
type Extractor interface {
	Name() string
	Version() string

	// Initialize is called exactly once, when the extractor is registered.
	// It runs while the registry holds its write lock, so it must not call
	// back into the registry (Get, List, Register, ...); doing so deadlocks.
	Initialize() error
	// Shutdown is called when the extractor is unregistered or the registry closes
	Shutdown() error

	SupportedMimeTypes() []string
	// Priority ranks extractors for the same MIME type; higher wins
	Priority() int

	Extract(ctx context.Context, content []byte, mimeType string, cfg *types.ExtractionConfig) (*types.ExtractionResult, error)
}

// Descriptor is a read-only snapshot of a registered extractor
type Descriptor struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	MimeTypes      []string `json:"mime_types"`
	Priority       int      `json:"priority"`
	RegistrationID uint64   `json:"registration_id"`
}

// Base carries the descriptive half of the Extractor interface.
// Embed it and implement Extract to get a complete extractor with no-op hooks.
type Base struct {
	ExtractorName    string
	ExtractorVersion string
	MimeTypes        []string
	Rank             int
}

func (b Base) Name() string    { return b.ExtractorName }
func (b Base) Version() string { return b.ExtractorVersion }
func (b Base) Priority() int   { return b.Rank }
func (b Base) Initialize() error {
	return nil
}
func (b Base) Shutdown() error {
	return nil
}

func (b Base) SupportedMimeTypes() []string {
	out := make([]string, len(b.MimeTypes))
	copy(out, b.MimeTypes)
	return out
}
