package descriptions

import "sort"

// Tool names exposed over MCP
const (
	ToolExtractFile     = "extract_file"
	ToolExtractContent  = "extract_content"
	ToolBatchExtract    = "batch_extract_files"
	ToolDetectMime      = "detect_mime"
	ToolListExtractors  = "list_extractors"
	ToolSearchDocuments = "search_documents"
	ToolServerInfo      = "server_info"
)

const (
	// Extraction Tools
	ExtractFileDescription = `Extract text, metadata and tables from a document file.

**When to use:** Need the readable content of a PDF, Word, OpenDocument, EPUB, HTML, LaTeX, RTF, Markdown, CSV or structured text file.

**Supported formats:** PDF, DOCX, ODT, EPUB, HTML/XHTML, LaTeX, RTF, JSON, YAML, TOML, XML, plain text, Markdown, CSV/TSV.

**Examples:**
• Read a paper: "Extract paper.tex and summarize the methodology section"
• Pull a table: "Get the tables from report.docx"
• Inspect metadata: "Who is the author of book.epub?"

**Behavior:** The format is taken from mime_type when given, otherwise from the file extension, otherwise from the leading bytes. When several extractors handle a format they are tried best first until one succeeds.

**Best practices:** Paths are resolved against the configured directory. Use search_documents first to find candidate files.`

	ExtractContentDescription = `Extract text, metadata and tables from document content passed inline.

**When to use:** The document is not on disk, for example text pasted by the user or content fetched by another tool.

**Examples:**
• Convert markup: "Extract this LaTeX snippet as plain text"
• Clean HTML: "Turn this HTML page into markdown"
• Binary payloads: pass base64 content with encoding=base64 and the MIME type, for example a small RTF or DOCX file.

**Behavior:** Without mime_type the content is sniffed (magic bytes, then text heuristics for HTML, XML, JSON and LaTeX).

**Best practices:** Always pass mime_type when you know it; detection cannot tell YAML or TOML from plain text.`

	BatchExtractDescription = `Extract several document files at once.

**When to use:** Processing a set of files found with search_documents, or comparing documents side by side.

**Behavior:** Files are processed in parallel up to the configured concurrency. A failing file does not stop the others; each result reports its own error. Results keep the input order.

**Best practices:** Keep batches small enough for the response to stay readable, content of each file is truncated in the summary when max_chars is set.`

	// Utility Tools
	DetectMimeDescription = `Identify the MIME type of a file or of inline content.

**When to use:** Checking what a file really is before extraction, or choosing the mime_type argument for extract_content.

**Behavior:** Files are identified by extension first, then by their leading bytes. Inline content is identified by magic bytes (PDF, ZIP containers like DOCX/ODT/EPUB, RTF, OLE2) and text heuristics.`

	ListExtractorsDescription = `List the registered extractors with their priorities and MIME types.

**When to use:** Discovering which formats are supported, or understanding which extractor will handle a format first.

**Behavior:** Higher priority extractors are tried first; extractors with the same priority keep registration order.`

	SearchDocumentsDescription = `Find extractable documents in a directory.

**When to use:** Locating files before calling extract_file or batch_extract_files.

**Examples:**
• "Find all documents mentioning invoice in their name"
• "List the first 20 documents under reports/"

**Behavior:** Walks the directory recursively, skipping hidden directories, empty files and files over the size limit. Only formats some extractor supports are listed. The optional query filters by file name, case-insensitively.`

	ServerInfoDescription = `Get server configuration, extractors and supported formats.

**When to use:** Starting a session, troubleshooting missing files, or checking limits before extracting large documents.

**Best practices:** Run at the start of a session to learn the configured directory and size limits.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolExtractFile:     ExtractFileDescription,
	ToolExtractContent:  ExtractContentDescription,
	ToolBatchExtract:    BatchExtractDescription,
	ToolDetectMime:      DetectMimeDescription,
	ToolListExtractors:  ListExtractorsDescription,
	ToolSearchDocuments: SearchDocumentsDescription,
	ToolServerInfo:      ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
