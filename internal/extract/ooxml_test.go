package extract

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeContainer builds an OOXML-style zip with the given parts.
func writeContainer(t *testing.T, parts map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "container.zip")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, content := range parts {
		part, err := w.Create(name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestWordExtractsParagraphs(t *testing.T) {
	path := writeContainer(t, map[string]string{
		"word/document.xml": `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph, </w:t></w:r><w:r><w:t>two runs.</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`,
	})

	pages, err := Word(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].Number)
	assert.Equal(t, "First paragraph, two runs.\nSecond paragraph.", pages[0].Text)
}

func TestWordRejectsContainerWithoutDocument(t *testing.T) {
	path := writeContainer(t, map[string]string{"other.xml": "<x/>"})

	_, err := Word(path)
	assert.Error(t, err)
}

func TestPowerPointExtractsSlidesInOrder(t *testing.T) {
	slide := func(text string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
	}
	parts := map[string]string{}
	for i := 1; i <= 11; i++ {
		parts["ppt/slides/slide"+strconv.Itoa(i)+".xml"] = slide("Slide " + strconv.Itoa(i))
	}

	pages, err := PowerPoint(writeContainer(t, parts))
	require.NoError(t, err)
	require.Len(t, pages, 11)

	// slide10 and slide11 must sort after slide9.
	assert.Equal(t, "Slide 9", pages[8].Text)
	assert.Equal(t, "Slide 10", pages[9].Text)
	assert.Equal(t, "Slide 11", pages[10].Text)
	assert.Equal(t, 10, pages[10].Number)
}

func TestExcelExtractsSharedStrings(t *testing.T) {
	path := writeContainer(t, map[string]string{
		"xl/sharedStrings.xml": `<?xml version="1.0"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <si><t>Revenue</t></si>
  <si><t>Quarter</t></si>
</sst>`,
	})

	pages, err := Excel(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Revenue Quarter", pages[0].Text)
}

func TestExcelWithoutSharedStringsYieldsNothing(t *testing.T) {
	path := writeContainer(t, map[string]string{"xl/workbook.xml": "<workbook/>"})

	pages, err := Excel(path)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("  hello world \n"), 0o644))

	pages, err := PlainText(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "hello world", pages[0].Text)
}

func TestForExtensionIsCaseInsensitive(t *testing.T) {
	_, ok := ForExtension(".PDF")
	assert.True(t, ok)
	_, ok = ForExtension(".exe")
	assert.False(t, ok)
}
