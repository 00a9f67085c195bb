package filestorage

import (
	"mime/multipart"
)

// FileInfo describes a stored upload
type FileInfo struct {
	URL      string // Public relative URL, e.g. /uploads/documents/12/<uuid>.pdf
	Filename string // Original filename
	FileSize int64  // Size in bytes
	MimeType string // MIME type sniffed from the content
}

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFileWithPath stores an upload under a subdirectory with a generated name
	SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (*FileInfo, error)

	// WriteFile stores generated content under a fixed name, replacing any previous file
	WriteFile(subPath, name string, data []byte) (string, error)

	// DeleteFile removes a file addressed by its public URL
	DeleteFile(fileURL string) error

	// GetFullPath maps a public URL to its filesystem path
	GetFullPath(fileURL string) (string, error)
}
