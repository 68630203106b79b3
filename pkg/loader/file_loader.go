package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

var documentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// FileLoader extracts plain text from uploaded documents.
type FileLoader struct {
	maxBytes int64
}

func NewFileLoader(maxBytes int64) *FileLoader {
	return &FileLoader{maxBytes: maxBytes}
}

// Supported reports whether the filename carries an accepted document extension.
func (l *FileLoader) Supported(filename string) bool {
	return documentExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Load reads the file at path and returns its extracted text. The original
// filename decides the extraction strategy; path may be a temp file.
func (l *FileLoader) Load(path, originalName string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !documentExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}

	var text string
	switch ext {
	case ".pdf":
		text, err = extractPdf(path)
	case ".docx":
		text, err = extractDocx(path)
	case ".doc":
		text, err = extractDoc(path)
	}
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: no text content", ErrExtractionFailed)
	}

	return &Document{
		Content:  text,
		Source:   originalName,
		Metadata: map[string]string{"type": strings.TrimPrefix(ext, ".")},
	}, nil
}

func extractPdf(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return buf.String(), nil
}

// extractDocx pulls the document body out of the OOXML package. A .docx is a
// zip archive; the text lives in word/document.xml.
func extractDocx(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		defer rc.Close()
		return decodeDocumentXml(rc)
	}
	return "", fmt.Errorf("%w: word/document.xml missing", ErrExtractionFailed)
}

func decodeDocumentXml(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			// paragraph boundaries become newlines
			if t.Name.Local == "p" {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String(), nil
}

// extractDoc does a best-effort sweep over the legacy binary format, keeping
// printable runs long enough to be prose. Good enough for the text body;
// formatting and embedded objects are dropped.
func extractDoc(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	const minRun = 4
	var sb strings.Builder
	var run []rune
	flush := func() {
		if len(run) >= minRun {
			sb.WriteString(string(run))
			sb.WriteByte('\n')
		}
		run = run[:0]
	}
	for _, b := range string(raw) {
		if unicode.IsPrint(b) || b == ' ' || b == '\t' {
			run = append(run, b)
			continue
		}
		flush()
	}
	flush()

	return sb.String(), nil
}
