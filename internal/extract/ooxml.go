package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// The OOXML formats are zip containers holding XML parts. The
// extractors below read only the text-bearing parts and ignore
// styling, media and relationships.

// Word extracts the paragraphs of word/document.xml as a single
// page 0. DOCX has no page concept before layout, so the whole body is
// one unit.
func Word(path string) ([]Page, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document container: %w", err)
	}
	defer reader.Close()

	content, err := readZipPart(&reader.Reader, "word/document.xml")
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("document container has no word/document.xml")
	}

	text := parseWordXML(content)
	if text == "" {
		return nil, nil
	}
	return []Page{{Number: 0, Text: text}}, nil
}

// PowerPoint extracts the text runs of each slide, one Page per slide
// in slide order.
func PowerPoint(path string) ([]Page, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open presentation container: %w", err)
	}
	defer reader.Close()

	var slides []string
	for _, file := range reader.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml") {
			slides = append(slides, file.Name)
		}
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("presentation container has no slides")
	}
	// Slide part names carry a 1-based ordinal (slide1.xml, ...).
	// Numeric-aware sort so slide10 follows slide9.
	sort.Slice(slides, func(i, j int) bool {
		if len(slides[i]) != len(slides[j]) {
			return len(slides[i]) < len(slides[j])
		}
		return slides[i] < slides[j]
	})

	var pages []Page
	for i, name := range slides {
		content, err := readZipPart(&reader.Reader, name)
		if err != nil {
			return nil, err
		}
		text := collectElementText(content, "t")
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

// Excel extracts the shared-string table of a workbook as a single
// page 0. Cell values referencing the table cover the textual content
// of all sheets.
func Excel(path string) ([]Page, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook container: %w", err)
	}
	defer reader.Close()

	content, err := readZipPart(&reader.Reader, "xl/sharedStrings.xml")
	if err != nil {
		return nil, err
	}
	if content == nil {
		// A workbook with only numeric cells has no shared strings.
		return nil, nil
	}

	text := collectElementText(content, "t")
	if text == "" {
		return nil, nil
	}
	return []Page{{Number: 0, Text: text}}, nil
}

// readZipPart returns the bytes of one part, or nil if absent.
func readZipPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open part %s: %w", name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", name, err)
		}
		return content, nil
	}
	return nil, nil
}

// wordXML mirrors the parts of word/document.xml we care about.
type wordXML struct {
	Body struct {
		Paragraphs []wordParagraph `xml:"p"`
	} `xml:"body"`
}

type wordParagraph struct {
	Runs []wordRun `xml:"r"`
}

type wordRun struct {
	Text []string `xml:"t"`
}

// parseWordXML joins the text runs, one line per paragraph.
func parseWordXML(content []byte) string {
	var doc wordXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}

	var sb strings.Builder
	for _, para := range doc.Body.Paragraphs {
		var line strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				line.WriteString(t)
			}
		}
		if line.Len() == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(line.String())
	}
	return strings.TrimSpace(sb.String())
}

// collectElementText walks an XML part and gathers the character data
// of every element with the given local name, joined by spaces. Slides
// and shared-string tables both keep their text in shallow <t>
// elements, so a token walk is enough.
func collectElementText(content []byte, local string) string {
	decoder := xml.NewDecoder(strings.NewReader(string(content)))

	var parts []string
	depth := 0
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == local {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == local && depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				text := strings.TrimSpace(string(t))
				if text != "" {
					parts = append(parts, text)
				}
			}
		}
	}
	return strings.Join(parts, " ")
}
