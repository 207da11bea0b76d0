package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is the closed set of error categories surfaced at the extraction boundary.
// Binding layers map each kind to their own error types.
type Kind int

const (
	KindOther Kind = iota
	KindValidation
	KindUnsupportedFormat
	KindParsing
	KindIo
	KindOcr
	KindPlugin
	KindLockPoisoned
	KindCache
	KindImageProcessing
	KindSerialization
	KindMissingDependency
)

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindParsing:
		return "Parsing"
	case KindIo:
		return "Io"
	case KindOcr:
		return "Ocr"
	case KindPlugin:
		return "Plugin"
	case KindLockPoisoned:
		return "LockPoisoned"
	case KindCache:
		return "Cache"
	case KindImageProcessing:
		return "ImageProcessing"
	case KindSerialization:
		return "Serialization"
	case KindMissingDependency:
		return "MissingDependency"
	default:
		return "Other"
	}
}

// Sentinel codes matched with errors.Is. They are never rendered in Error().
var (
	ErrDuplicateExtractor   = stderrors.New("duplicate extractor")
	ErrNoExtractorAvailable = stderrors.New("no extractor available")
	ErrAllExtractorsFailed  = stderrors.New("all extractors failed")
	ErrSetupFailed          = stderrors.New("native library setup failed")
	ErrBindFailed           = stderrors.New("native library binding failed")
)

// Error is a categorized extraction error
type Error struct {
	Kind    Kind   `json:"kind"`
	Plugin  string `json:"plugin,omitempty"`
	Message string `json:"message"`
	Source  error  `json:"-"`

	code error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Source != nil {
		msg = fmt.Sprintf("%s: %s", e.Message, e.Source.Error())
	}
	if e.Kind == KindPlugin && e.Plugin != "" {
		return fmt.Sprintf("plugin %q: %s", e.Plugin, msg)
	}
	return msg
}

// Unwrap returns the nested source error
func (e *Error) Unwrap() error {
	return e.Source
}

// Is reports whether target is the sentinel code attached to e
func (e *Error) Is(target error) bool {
	return e.code != nil && e.code == target
}

// WithCode attaches a sentinel code to the error
func (e *Error) WithCode(code error) *Error {
	e.code = code
	return e
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a source error
func Wrap(kind Kind, message string, source error) *Error {
	return &Error{Kind: kind, Message: message, Source: source}
}

func Validation(message string, source error) *Error {
	return Wrap(KindValidation, message, source)
}

func Parsing(message string, source error) *Error {
	return Wrap(KindParsing, message, source)
}

func Io(message string, source error) *Error {
	return Wrap(KindIo, message, source)
}

func Ocr(message string, source error) *Error {
	return Wrap(KindOcr, message, source)
}

func Cache(message string, source error) *Error {
	return Wrap(KindCache, message, source)
}

func ImageProcessing(message string, source error) *Error {
	return Wrap(KindImageProcessing, message, source)
}

func Serialization(message string, source error) *Error {
	return Wrap(KindSerialization, message, source)
}

// UnsupportedFormat reports a format nothing in the engine recognizes
func UnsupportedFormat(format string) *Error {
	return New(KindUnsupportedFormat, fmt.Sprintf("unsupported format: %s", format))
}

// MissingDependency reports an unavailable external dependency
func MissingDependency(dependency string, source error) *Error {
	return Wrap(KindMissingDependency, fmt.Sprintf("missing dependency: %s", dependency), source)
}

// LockPoisoned reports a shared resource left inconsistent by a panic
func LockPoisoned(resource string) *Error {
	return New(KindLockPoisoned, fmt.Sprintf("lock poisoned: %s", resource))
}

// Plugin creates an error attributed to a named extractor
func Plugin(name, message string, source error) *Error {
	return &Error{Kind: KindPlugin, Plugin: name, Message: message, Source: source}
}

// Other creates an uncategorized error
func Other(message string) *Error {
	return New(KindOther, message)
}

// DuplicateExtractor reports a registration whose name is already taken
func DuplicateExtractor(name string) *Error {
	return Plugin(name, "an extractor with this name is already registered", nil).WithCode(ErrDuplicateExtractor)
}

// NoExtractorAvailable reports a MIME type with no registered candidate
func NoExtractorAvailable(mimeType string) *Error {
	return New(KindUnsupportedFormat, fmt.Sprintf("no extractor available for MIME type %q", mimeType)).
		WithCode(ErrNoExtractorAvailable)
}

// KindOf classifies any error. Errors outside the taxonomy are KindOther.
func KindOf(err error) Kind {
	var agg *AggregateError
	if stderrors.As(err, &agg) {
		return KindOther
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// IsPermanent reports whether retrying the same request cannot succeed
func IsPermanent(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindUnsupportedFormat, KindMissingDependency, KindParsing:
		return true
	default:
		return stderrors.Is(err, ErrSetupFailed) || stderrors.Is(err, ErrBindFailed)
	}
}
