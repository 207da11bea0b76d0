package types

// DefaultMaxDepth bounds the nesting the format parsers will track
const DefaultMaxDepth = 256

// ExtractionConfig is passed through the dispatcher untouched; each extractor reads what it needs
type ExtractionConfig struct {
	// MaxDepth bounds nested groups/environments in the parser state machines
	MaxDepth int `json:"max_depth,omitempty"`

	// PageSeparator is written between pages by paged extractors
	PageSeparator string `json:"page_separator,omitempty"`

	// MaxContentBytes rejects larger inputs before dispatch (0 = unlimited)
	MaxContentBytes int64 `json:"max_content_bytes,omitempty"`
}

// DefaultPageSeparator is used when ExtractionConfig.PageSeparator is empty
const DefaultPageSeparator = "\n\n--- Page Break ---\n\n"

// DefaultExtractionConfig returns a configuration with sensible defaults
func DefaultExtractionConfig() *ExtractionConfig {
	return &ExtractionConfig{
		MaxDepth:      DefaultMaxDepth,
		PageSeparator: DefaultPageSeparator,
	}
}

// Depth returns the effective parser depth bound
func (c *ExtractionConfig) Depth() int {
	if c == nil || c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

// Separator returns the effective page separator
func (c *ExtractionConfig) Separator() string {
	if c == nil || c.PageSeparator == "" {
		return DefaultPageSeparator
	}
	return c.PageSeparator
}

// ExtractionRequest is created per call and not retained
type ExtractionRequest struct {
	Content  []byte
	MimeType string
	Config   *ExtractionConfig
}

// ExtractionResult is owned by the caller once returned
type ExtractionResult struct {
	Content           string   `json:"content"`
	MimeType          string   `json:"mime_type"`
	Metadata          Metadata `json:"metadata"`
	Tables            []Table  `json:"tables"`
	DetectedLanguages []string `json:"detected_languages,omitempty"`
	Chunks            []Chunk  `json:"chunks,omitempty"`
	Images            []Image  `json:"images,omitempty"`
}

// NewResult creates a result with empty metadata and table list
func NewResult(content, mimeType string) *ExtractionResult {
	return &ExtractionResult{
		Content:  content,
		MimeType: mimeType,
		Metadata: NewMetadata(),
		Tables:   make([]Table, 0),
	}
}

// Chunk is a contiguous slice of the extracted content
type Chunk struct {
	Content    string `json:"content"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	PageNumber int    `json:"page_number,omitempty"`
}

// Image describes an embedded image found during extraction
type Image struct {
	Format     string `json:"format"`
	PageNumber int    `json:"page_number,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Data       []byte `json:"-"`
}
