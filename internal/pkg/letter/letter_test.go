package letter

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() Data {
	return Data{
		InstitutionName:    "Accra Technical University",
		InstitutionAddress: "P.O. Box GP 561, Accra",
		LogoPath:           "/does/not/exist.png",
		ReferenceNumber:    Reference("atu", 2025, 17),
		Date:               time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		ApplicantName:      "Kofi Mensah",
		ProgramName:        "BSc Computer Science",
		DurationYears:      4,
		SystemID:           "ATU2025CS0042",
		Fee:                450000,
		Currency:           "GHS",
		AcademicYear:       "2025/2026",
		RegistrarName:      "Ama Owusu",
	}
}

func TestRenderProducesPDF(t *testing.T) {
	out, err := Render(sampleData())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderRejectsIncompleteData(t *testing.T) {
	d := sampleData()
	d.SystemID = ""
	_, err := Render(d)
	assert.Error(t, err)
}

func TestRenderSkipsUndecodablePhoto(t *testing.T) {
	photo := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(photo, []byte("not an image"), 0o644))

	d := sampleData()
	d.PhotoPath = photo
	out, err := Render(d)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderEmbedsPhoto(t *testing.T) {
	photo := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(photo, pngBytes(t), 0o644))

	withPhoto := sampleData()
	withPhoto.PhotoPath = photo
	out, err := Render(withPhoto)
	require.NoError(t, err)
	plain, err := Render(sampleData())
	require.NoError(t, err)
	assert.Greater(t, len(out), len(plain))
}

func TestCheckImage(t *testing.T) {
	assert.NoError(t, CheckImage(bytes.NewReader(pngBytes(t)), "png"))
	assert.Error(t, CheckImage(bytes.NewReader([]byte("not an image")), "png"))
	assert.Error(t, CheckImage(bytes.NewReader(pngBytes(t)), "jpg"))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 180, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestReferenceAndMoney(t *testing.T) {
	assert.Equal(t, "ATU/ADM/2025/17", Reference("atu", 2025, 17))
	assert.Equal(t, "admission_letter_17.pdf", FileName(17))
	assert.Equal(t, "GHS 4,500.00", FormatMoney(450000, "GHS"))
	assert.Equal(t, "1,234,567.05", FormatMoney(123456705, ""))
	assert.Equal(t, "GHS 0.99", FormatMoney(99, "GHS"))
}
