package filestorage

import (
	"fmt"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMIME sniffs the content type of an upload from its leading bytes
func DetectMIME(fileHeader *multipart.FileHeader) (*mimetype.MIME, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()
	return mimetype.DetectReader(file)
}
