package filestorage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/uniadmit/internal/pkg/logger"
)

// ErrInvalidPath is returned for URLs outside the storage root
var ErrInvalidPath = errors.New("invalid file path")

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath  string // Root directory on disk
	urlPrefix string // Public prefix the root is served under, e.g. /uploads
}

// NewLocalStorage creates a new LocalStorage instance and ensures basePath exists.
func NewLocalStorage(basePath, urlPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &LocalStorage{
		basePath:  basePath,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}, nil
}

// BasePath returns the storage root on disk
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// URLPrefix returns the public prefix of stored files
func (ls *LocalStorage) URLPrefix() string {
	return ls.urlPrefix
}

func (ls *LocalStorage) ensureDir(subPath string) (string, error) {
	dir := filepath.Join(ls.basePath, filepath.FromSlash(subPath))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}
	return dir, nil
}

func (ls *LocalStorage) publicURL(subPath, name string) string {
	return path.Join(ls.urlPrefix, subPath, name)
}

// SaveFileWithPath saves an upload to a subdirectory under a uuid file name
func (ls *LocalStorage) SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (*FileInfo, error) {
	if fileHeader == nil {
		return nil, fmt.Errorf("%w: no file provided", ErrInvalidPath)
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	dir, err := ls.ensureDir(subPath)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	uniqueFilename := uuid.New().String() + ext
	dstPath := filepath.Join(dir, uniqueFilename)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	info := &FileInfo{
		URL:      ls.publicURL(subPath, uniqueFilename),
		Filename: filepath.Base(fileHeader.Filename),
		FileSize: written,
		MimeType: fileHeader.Header.Get("Content-Type"),
	}
	if detected, err := DetectMIME(fileHeader); err == nil {
		info.MimeType = detected.String()
	}
	logger.Info().Str("filename", fileHeader.Filename).Str("url", info.URL).Msg("File saved successfully")
	return info, nil
}

// WriteFile writes data to subPath/name through a temp file and rename
func (ls *LocalStorage) WriteFile(subPath, name string, data []byte) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	dir, err := ls.ensureDir(subPath)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return ls.publicURL(subPath, name), nil
}

// GetFullPath maps a public URL (or a path relative to the root) to disk.
// Paths escaping the storage root are rejected.
func (ls *LocalStorage) GetFullPath(fileURL string) (string, error) {
	rel := strings.TrimPrefix(fileURL, ls.urlPrefix)
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	if rel == "" || rel == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, fileURL)
	}
	full := filepath.Join(ls.basePath, filepath.FromSlash(rel))
	root := filepath.Clean(ls.basePath) + string(os.PathSeparator)
	if !strings.HasPrefix(full, root) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, fileURL)
	}
	return full, nil
}

// DeleteFile removes a file. Missing files are not an error.
func (ls *LocalStorage) DeleteFile(fileURL string) error {
	if fileURL == "" {
		return nil
	}
	physicalPath, err := ls.GetFullPath(fileURL)
	if err != nil {
		return err
	}

	if _, err := os.Stat(physicalPath); os.IsNotExist(err) {
		logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
		return nil
	}

	if err := os.Remove(physicalPath); err != nil {
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}
