package extract

import (
	"fmt"
	"os"
	"strings"
)

// Page is the text of one page, slide or sheet of a document.
type Page struct {
	Number int
	Text   string
}

// Extractor reads a file-backed document and returns its pages. The
// parsing libraries require file input, so callers materialize blob
// bytes to a transient file first.
type Extractor func(path string) ([]Page, error)

// extractors maps a lowercase file extension (with dot) to its
// extractor. The legacy binary formats (.doc, .ppt, .xls) are routed to
// the OOXML extractors; genuinely pre-OOXML files fail to parse and are
// skipped by the loader as extraction failures.
var extractors = map[string]Extractor{
	".pdf":  PDF,
	".txt":  PlainText,
	".doc":  Word,
	".docx": Word,
	".ppt":  PowerPoint,
	".pptx": PowerPoint,
	".xls":  Excel,
	".xlsx": Excel,
}

// ForExtension returns the extractor registered for ext, if any.
func ForExtension(ext string) (Extractor, bool) {
	e, ok := extractors[strings.ToLower(ext)]
	return e, ok
}

// SupportedExtensions lists the extensions the registry knows about.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extractors))
	for ext := range extractors {
		exts = append(exts, ext)
	}
	return exts
}

// PlainText reads a UTF-8 text file as a single page 0.
func PlainText(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []Page{{Number: 0, Text: text}}, nil
}
