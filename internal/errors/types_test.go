package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindValidation, "Validation"},
		{KindUnsupportedFormat, "UnsupportedFormat"},
		{KindParsing, "Parsing"},
		{KindIo, "Io"},
		{KindOcr, "Ocr"},
		{KindPlugin, "Plugin"},
		{KindLockPoisoned, "LockPoisoned"},
		{KindCache, "Cache"},
		{KindImageProcessing, "ImageProcessing"},
		{KindSerialization, "Serialization"},
		{KindMissingDependency, "MissingDependency"},
		{KindOther, "Other"},
		{Kind(99), "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestError_Message(t *testing.T) {
	source := fmt.Errorf("unexpected EOF")

	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      Parsing("bad header", nil),
			expected: "bad header",
		},
		{
			name:     "message with source",
			err:      Parsing("bad header", source),
			expected: "bad header: unexpected EOF",
		},
		{
			name:     "plugin prefix",
			err:      Plugin("rtf-extractor", "initialize failed", source),
			expected: `plugin "rtf-extractor": initialize failed: unexpected EOF`,
		},
		{
			name:     "unsupported format",
			err:      UnsupportedFormat("application/x-foo"),
			expected: "unsupported format: application/x-foo",
		},
		{
			name:     "lock poisoned",
			err:      LockPoisoned("registry"),
			expected: "lock poisoned: registry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_UnwrapAndCodes(t *testing.T) {
	source := fmt.Errorf("disk full")
	err := Io("write failed", source)
	assert.ErrorIs(t, err, source)

	dup := DuplicateExtractor("pdf")
	assert.ErrorIs(t, dup, ErrDuplicateExtractor)
	assert.NotErrorIs(t, dup, ErrNoExtractorAvailable)
	assert.Equal(t, KindPlugin, dup.Kind)
	assert.NotContains(t, dup.Error(), "duplicate extractor")

	none := NoExtractorAvailable("image/x-unknown")
	assert.ErrorIs(t, none, ErrNoExtractorAvailable)
	assert.Equal(t, KindUnsupportedFormat, none.Kind)

	wrapped := fmt.Errorf("dispatch: %w", none)
	assert.ErrorIs(t, wrapped, ErrNoExtractorAvailable)
	assert.Equal(t, KindUnsupportedFormat, KindOf(wrapped))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindOther, KindOf(stderrors.New("plain")))
	assert.Equal(t, KindCache, KindOf(Cache("miss", nil)))
	assert.Equal(t, KindSerialization, KindOf(Serialization("encode", nil)))

	agg := NewAggregateError("application/pdf")
	agg.Add("a", Parsing("broken", nil))
	assert.Equal(t, KindOther, KindOf(agg))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(Validation("empty", nil)))
	assert.True(t, IsPermanent(MissingDependency("pdfcpu", nil)))
	assert.True(t, IsPermanent(Other("setup").WithCode(ErrSetupFailed)))
	assert.False(t, IsPermanent(Io("read", nil)))
	assert.False(t, IsPermanent(stderrors.New("plain")))
}

func TestAggregateError(t *testing.T) {
	first := Parsing("no text", nil)
	second := Plugin("pdfcpu-extractor", "panicked", nil)

	agg := NewAggregateError("application/pdf")
	agg.Add("pdf-text-extractor", first)
	agg.Add("pdfcpu-extractor", second)

	require.Equal(t, 2, agg.Len())
	assert.Equal(t, []string{"pdf-text-extractor", "pdfcpu-extractor"}, agg.Extractors())
	assert.ErrorIs(t, agg, ErrAllExtractorsFailed)
	assert.ErrorIs(t, agg, first)
	assert.ErrorIs(t, agg, second)

	msg := agg.Error()
	assert.Contains(t, msg, "pdf-text-extractor: no text")
	assert.Contains(t, msg, `pdfcpu-extractor: plugin "pdfcpu-extractor": panicked`)
	assert.Less(t, strings.Index(msg, "pdf-text-extractor"), strings.Index(msg, "pdfcpu-extractor"))
	assert.Equal(t, "2 extractor(s) failed: pdf-text-extractor, pdfcpu-extractor", agg.Summary())

	assert.Equal(t, "No failures", NewAggregateError("text/plain").Summary())
}
