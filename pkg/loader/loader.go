package loader

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file exceeds maximum allowed size")
	ErrExtractionFailed  = errors.New("text extraction failed")
	ErrCloneFailed       = errors.New("repository clone failed")
	ErrNoCodeFiles       = errors.New("repository contains no supported code files")
)

// Document is one unit of extracted text ready for chunking. Source names
// where it came from (original filename or repo-relative path).
type Document struct {
	Content  string
	Source   string
	Metadata map[string]string
}
