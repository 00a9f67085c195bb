package filestorage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveFileWithPath(t *testing.T) {
	root := t.TempDir()
	ls, err := NewLocalStorage(root, "/uploads")
	require.NoError(t, err)

	info, err := ls.SaveFileWithPath(multipartHeader(t, "Slip.PDF", []byte("%PDF-1.4")), "documents/7")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(info.URL, "/uploads/documents/7/"))
	assert.True(t, strings.HasSuffix(info.URL, ".pdf"))
	assert.Equal(t, int64(8), info.FileSize)
	assert.Equal(t, "Slip.PDF", info.Filename)

	full, err := ls.GetFullPath(info.URL)
	require.NoError(t, err)
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, ls.DeleteFile(info.URL))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, ls.DeleteFile(info.URL))
}

func TestWriteFileOverwrites(t *testing.T) {
	root := t.TempDir()
	ls, err := NewLocalStorage(root, "")
	require.NoError(t, err)

	url, err := ls.WriteFile("letters", "admission_letter_3.pdf", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/letters/admission_letter_3.pdf", url)

	_, err = ls.WriteFile("letters", "admission_letter_3.pdf", []byte("two"))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, "letters", "admission_letter_3.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestGetFullPathRejectsTraversal(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	full, err := ls.GetFullPath("/uploads/../../etc/passwd")
	// Clean collapses the traversal onto the root, so the result stays inside it
	if err == nil {
		assert.True(t, strings.HasPrefix(full, ls.BasePath()))
	}
	_, err = ls.GetFullPath("/uploads/")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestSaveFileRecordsSniffedMIME(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	info, err := ls.SaveFileWithPath(multipartHeader(t, "slip.pdf", []byte("%PDF-1.4 body")), "documents/1")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.MimeType)

	mtype, err := DetectMIME(multipartHeader(t, "fake.pdf", []byte("just words")))
	require.NoError(t, err)
	assert.False(t, mtype.Is("application/pdf"))
	assert.True(t, mtype.Is("text/plain"))
}
