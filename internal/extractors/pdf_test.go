package extractors

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/mime"
	"github.com/a3tai/mcp-doc-extract/internal/native"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

// two_pages.pdf: "Hello from page one" / "Second page text", Helvetica,
// Info dictionary with title, author, subject, keywords and both dates
func loadTwoPagePDF(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "two_pages.pdf"))
	require.NoError(t, err)
	return data
}

func TestPDFExtractors_TwoPages(t *testing.T) {
	content := loadTwoPagePDF(t)

	tests := []struct {
		name      string
		extractor func(t *testing.T) registry.Extractor
		cfg       *types.ExtractionConfig
		separator string
	}{
		{
			name:      "ledongthuc default separator",
			extractor: func(*testing.T) registry.Extractor { return NewPDFText() },
			separator: types.DefaultPageSeparator,
		},
		{
			name:      "ledongthuc custom separator",
			extractor: func(*testing.T) registry.Extractor { return NewPDFText() },
			cfg:       &types.ExtractionConfig{PageSeparator: "\n<page>\n"},
			separator: "\n<page>\n",
		},
		{
			name: "pdfcpu default separator",
			extractor: func(t *testing.T) registry.Extractor {
				return NewPDFCPU(native.NewManager(native.WithWorkDir(t.TempDir())))
			},
			separator: types.DefaultPageSeparator,
		},
		{
			name: "pdfcpu custom separator",
			extractor: func(t *testing.T) registry.Extractor {
				return NewPDFCPU(native.NewManager(native.WithWorkDir(t.TempDir())))
			},
			cfg:       &types.ExtractionConfig{PageSeparator: "\n<page>\n"},
			separator: "\n<page>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.extractor(t).Extract(context.Background(), content, mime.PDF, tt.cfg)
			require.NoError(t, err)

			assert.Equal(t, "Hello from page one"+tt.separator+"Second page text", result.Content)
			assert.Equal(t, mime.PDF, result.MimeType)

			pages, ok := result.Metadata.Get("page_count")
			require.True(t, ok)
			assert.Equal(t, 2, pages)

			assert.Equal(t, "Quarterly Report", result.Metadata.Title)
			assert.Equal(t, "Jane Doe", result.Metadata.Author)
			assert.Equal(t, []string{"Jane Doe"}, result.Metadata.Authors)
			assert.Equal(t, "Finance", result.Metadata.Subject)

			for key, expected := range map[string]any{
				"keywords":    "q1, revenue",
				"creator":     "doc-writer",
				"producer":    "hand-built",
				"created_at":  "2024-03-05T09:07:00Z",
				"modified_at": "2024-03-06T10:15:00+01:00",
			} {
				v, ok := result.Metadata.Get(key)
				require.True(t, ok, key)
				assert.Equal(t, expected, v, key)
			}
		})
	}
}

func TestPDFCPU_ReportsHeaderVersion(t *testing.T) {
	e := NewPDFCPU(native.NewManager(native.WithWorkDir(t.TempDir())))

	result, err := e.Extract(context.Background(), loadTwoPagePDF(t), mime.PDF, nil)
	require.NoError(t, err)

	v, ok := result.Metadata.Get("pdf_version")
	require.True(t, ok)
	assert.Equal(t, "1.4", v)
}

func TestPDFDate(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "utc", raw: "D:20220429171908Z", expected: "2022-04-29T17:19:08Z"},
		{name: "positive offset", raw: "D:20240306101500+01'00'", expected: "2024-03-06T10:15:00+01:00"},
		{name: "negative offset", raw: "D:20231231235959-05'00'", expected: "2023-12-31T23:59:59-05:00"},
		{name: "date only", raw: "D:20240305", expected: "2024-03-05T00:00:00Z"},
		{name: "missing prefix", raw: "20240305090700Z", expected: "2024-03-05T09:07:00Z"},
		{name: "unparseable kept", raw: "last tuesday", expected: "last tuesday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pdfDate(tt.raw))
		})
	}
}

func TestPDFCPU_ConcurrentDispatch(t *testing.T) {
	const workers = 8

	var (
		mu  sync.Mutex
		ids = make(map[string]int)
	)
	manager := native.NewManager(
		native.WithWorkDir(t.TempDir()),
		native.WithBind(func(loc native.Location) (*native.Handle, error) {
			h, err := native.DefaultBind(loc)
			if err == nil {
				mu.Lock()
				ids[h.ID]++
				mu.Unlock()
			}
			return h, err
		}),
	)

	r := registry.New()
	require.NoError(t, r.Register(NewPDFCPU(manager)))
	content := loadTwoPagePDF(t)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := r.Dispatch(context.Background(), types.ExtractionRequest{
				Content:  content,
				MimeType: mime.PDF,
			})
			if assert.NoError(t, err) {
				assert.Contains(t, result.Content, "Hello from page one")
				assert.Contains(t, result.Content, "Second page text")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, workers)
	for id, n := range ids {
		assert.Equal(t, 1, n, id)
	}
	phase, err := manager.State()
	require.NoError(t, err)
	assert.Equal(t, native.Initialized, phase)
}

func TestStreamText(t *testing.T) {
	tests := []struct {
		name     string
		stream   string
		expected string
	}{
		{name: "show string", stream: `BT /F1 12 Tf 72 712 Td (Hello) Tj ET`, expected: "Hello"},
		{name: "kerning array", stream: `BT [(Hel) -20 (lo) -300 (World)] TJ ET`, expected: "Hello World"},
		{name: "next line", stream: `BT (A) Tj T* (B) Tj ET`, expected: "A\nB"},
		{name: "quote operator", stream: `BT (Line1) ' (Line2) ' ET`, expected: "Line1\nLine2"},
		{name: "vertical move", stream: `BT (Top) Tj 0 -14 Td (Bottom) Tj ET`, expected: "Top\nBottom"},
		{name: "horizontal move", stream: `BT (Left) Tj 120 0 Td (Right) Tj ET`, expected: "Left Right"},
		{name: "hex string", stream: `BT <48656C6C6F> Tj ET`, expected: "Hello"},
		{name: "odd hex digits", stream: `BT <41424> Tj ET`, expected: "AB@"},
		{name: "utf16 hex string", stream: `BT <FEFF00480069> Tj ET`, expected: "Hi"},
		{name: "escapes", stream: `BT (a\(b\)c\\d\101) Tj ET`, expected: `a(b)c\dA`},
		{name: "balanced parentheses", stream: `BT (f(o)o) Tj ET`, expected: "f(o)o"},
		{name: "latin1 octal", stream: `BT (caf\351) Tj ET`, expected: "café"},
		{name: "comment", stream: "% header\nBT (X) Tj ET", expected: "X"},
		{name: "marked content", stream: `/P << /MCID 0 >> BDC BT (Y) Tj ET EMC`, expected: "Y"},
		{name: "inline image", stream: `BI /W 1 /H 1 ID xyz EI BT (After) Tj ET`, expected: "After"},
		{name: "graphics only", stream: `q 1 0 0 1 0 0 cm 0 0 100 100 re f Q`, expected: ""},
		{name: "unterminated string", stream: `BT (open`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, streamText([]byte(tt.stream)))
		})
	}
}

func TestCleanStreamText(t *testing.T) {
	assert.Equal(t, "a b\nc", cleanStreamText("  a \t b \n\n\x01\n c  "))
}

func TestPDFText_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{name: "garbage", content: []byte("this is not a pdf")},
		{name: "truncated header", content: []byte("%PDF-1.4\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPDFText().Extract(context.Background(), tt.content, mime.PDF, nil)
			require.Error(t, err)
			assert.Equal(t, errors.KindParsing, errors.KindOf(err))
		})
	}
}

func TestPDFCPU_BindFailure(t *testing.T) {
	manager := native.NewManager(
		native.WithSetup(func() (native.Location, error) {
			return native.Location{Dir: t.TempDir()}, nil
		}),
		native.WithBind(func(native.Location) (*native.Handle, error) {
			return nil, stderrors.New("library not loadable")
		}),
	)

	_, err := NewPDFCPU(manager).Extract(context.Background(), []byte("%PDF-1.4"), mime.PDF, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBindFailed)
	assert.Equal(t, errors.KindMissingDependency, errors.KindOf(err))
}

func TestPDFCPU_SetupFailure(t *testing.T) {
	manager := native.NewManager(native.WithSetup(func() (native.Location, error) {
		return native.Location{}, stderrors.New("no work dir")
	}))

	_, err := NewPDFCPU(manager).Extract(context.Background(), []byte("%PDF-1.4"), mime.PDF, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSetupFailed)
}

func TestPDFCPU_InvalidInput(t *testing.T) {
	manager := native.NewManager(native.WithWorkDir(t.TempDir()))

	_, err := NewPDFCPU(manager).Extract(context.Background(), []byte("not a pdf at all"), mime.PDF, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindParsing, errors.KindOf(err))
}

func TestNewPDFCPU_DefaultsToSharedManager(t *testing.T) {
	assert.Same(t, native.Shared(), NewPDFCPU(nil).manager)
}
