package mcp

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/a3tai/mcp-doc-extract/internal/config"
	"github.com/a3tai/mcp-doc-extract/internal/descriptions"
	"github.com/a3tai/mcp-doc-extract/internal/engine"
	"github.com/a3tai/mcp-doc-extract/internal/errors"
	"github.com/a3tai/mcp-doc-extract/internal/registry"
	"github.com/a3tai/mcp-doc-extract/internal/types"
)

// Formatting methods
func formatExtraction(path string, result *types.ExtractionResult, maxChars int) string {
	var b strings.Builder
	if path != "" {
		fmt.Fprintf(&b, "Successfully extracted: %s\n", path)
	} else {
		b.WriteString("Successfully extracted content\n")
	}
	fmt.Fprintf(&b, "MIME Type: %s\n", result.MimeType)
	fmt.Fprintf(&b, "Characters: %d\n", utf8.RuneCountInString(result.Content))
	fmt.Fprintf(&b, "Tables: %d\n", len(result.Tables))

	writeMetadata(&b, &result.Metadata)

	b.WriteString("\nContent:\n")
	b.WriteString(truncate(result.Content, maxChars))

	for i, table := range result.Tables {
		if i == 0 {
			b.WriteString("\n\nTables:\n")
		}
		fmt.Fprintf(&b, "\nTable %d", i+1)
		if table.PageNumber > 0 {
			fmt.Fprintf(&b, " (page %d)", table.PageNumber)
		}
		fmt.Fprintf(&b, ":\n%s", table.Markdown)
	}

	return b.String()
}

func writeMetadata(b *strings.Builder, m *types.Metadata) {
	keys := m.Keys()
	if len(keys) == 0 {
		return
	}
	b.WriteString("\nMetadata:\n")
	for _, k := range keys {
		v, _ := m.Get(k)
		if list, ok := v.([]string); ok {
			v = strings.Join(list, ", ")
		}
		fmt.Fprintf(b, "  %s: %v\n", k, v)
	}
}

func formatBatch(results []engine.BatchResult, maxChars int) string {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Batch extraction: %d file(s), %d succeeded, %d failed\n",
		len(results), len(results)-failed, failed)

	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, r.Path)
		if r.Err != nil {
			fmt.Fprintf(&b, "   Error (%s): %v\n", errors.KindOf(r.Err), r.Err)
			continue
		}
		fmt.Fprintf(&b, "   MIME Type: %s\n", r.Result.MimeType)
		if r.Result.Metadata.Title != "" {
			fmt.Fprintf(&b, "   Title: %s\n", r.Result.Metadata.Title)
		}
		fmt.Fprintf(&b, "   Content:\n%s\n", truncate(r.Result.Content, maxChars))
	}

	return b.String()
}

func formatDetection(path, mimeType string, supported bool) string {
	text := ""
	if path != "" {
		text = fmt.Sprintf("File: %s\n", path)
	}
	text += fmt.Sprintf("MIME Type: %s\n", mimeType)
	text += fmt.Sprintf("Supported: %t\n", supported)
	return text
}

func formatExtractors(list []registry.Descriptor) string {
	// Dispatch order: priority descending, registration order for ties
	sorted := make([]registry.Descriptor, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	text := fmt.Sprintf("Registered extractors (%d):\n", len(sorted))
	for i, d := range sorted {
		text += fmt.Sprintf("\n%d. %s v%s\n", i+1, d.Name, d.Version)
		text += fmt.Sprintf("   Priority: %d\n", d.Priority)
		text += fmt.Sprintf("   MIME Types: %s\n", strings.Join(d.MimeTypes, ", "))
	}
	return text
}

func formatSearch(result *engine.SearchResult) string {
	text := fmt.Sprintf("Found %d document(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Type: %s\n", file.MimeType)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}

	return text
}

func formatServerInfo(cfg *config.Config, eng *engine.Engine) string {
	text := fmt.Sprintf("%s v%s - Server Information\n", cfg.ServerName, cfg.Version)
	text += fmt.Sprintf("Directory: %s\n", cfg.Directory)
	text += fmt.Sprintf("Max File Size: %d MB\n", eng.MaxFileSize()/(1024*1024))
	text += fmt.Sprintf("Max Parser Depth: %d\n", cfg.MaxDepth)
	text += fmt.Sprintf("Batch Concurrency: %d\n", eng.Concurrency())

	text += "\nAvailable Tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		text += fmt.Sprintf("  • %s\n", name)
	}

	text += "\nSupported MIME Types:\n"
	for _, m := range eng.SupportedMimeTypes() {
		text += fmt.Sprintf("  • %s\n", m)
	}

	text += fmt.Sprintf("\nExtractors: %d registered (use %s for details)\n",
		len(eng.Extractors()), descriptions.ToolListExtractors)
	return text
}

// truncate cuts s to maxChars runes; maxChars <= 0 keeps everything
func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + fmt.Sprintf("\n... [truncated, %d more characters]", len(runes)-maxChars)
}
