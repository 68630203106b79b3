package loader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoaderSupported(t *testing.T) {
	l := NewFileLoader(5 << 20)

	assert.True(t, l.Supported("report.pdf"))
	assert.True(t, l.Supported("notes.DOCX"))
	assert.True(t, l.Supported("old.doc"))
	assert.False(t, l.Supported("image.png"))
	assert.False(t, l.Supported("archive.zip"))
	assert.False(t, l.Supported("noextension"))
}

func TestFileLoaderRejectsUnsupportedFormat(t *testing.T) {
	l := NewFileLoader(5 << 20)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	_, err := l.Load(path, "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFileLoaderRejectsOversizedFile(t *testing.T) {
	l := NewFileLoader(16)

	path := filepath.Join(t.TempDir(), "big.doc")
	require.NoError(t, os.WriteFile(path, make([]byte, 17), 0644))

	_, err := l.Load(path, "big.doc")
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func writeDocx(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return path
}

func TestFileLoaderExtractsDocx(t *testing.T) {
	l := NewFileLoader(5 << 20)

	body := `<?xml version="1.0"?><w:document xmlns:w="ns"><w:body>` +
		`<w:p><w:r><w:t>first paragraph</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>second paragraph</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	path := writeDocx(t, body)

	doc, err := l.Load(path, "doc.docx")
	require.NoError(t, err)

	assert.Contains(t, doc.Content, "first paragraph")
	assert.Contains(t, doc.Content, "second paragraph")
	assert.Equal(t, "doc.docx", doc.Source)
	assert.Equal(t, "docx", doc.Metadata["type"])
}

func TestFileLoaderEmptyDocumentFails(t *testing.T) {
	l := NewFileLoader(5 << 20)

	body := `<?xml version="1.0"?><w:document xmlns:w="ns"><w:body></w:body></w:document>`
	path := writeDocx(t, body)

	_, err := l.Load(path, "doc.docx")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}
