// Package storage reads chapter content from a directory tree laid out as
// <version>/<book>/<chapter>.html.
package storage

import (
	"strings"
	"time"
)

// ChapterExt is the extension of chapter files.
const ChapterExt = ".html"

// FileInfo describes one chapter file.
type FileInfo struct {
	Path      string
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for content file operations.
type Provider interface {
	// List returns every chapter file under dir (relative to the root).
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
}

// IsChapterFile reports whether name has the chapter file extension.
func IsChapterFile(name string) bool {
	return strings.HasSuffix(name, ChapterExt)
}
