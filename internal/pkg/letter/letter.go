// Package letter renders admission letters as PDF documents.
package letter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Data is everything printed on an admission letter
type Data struct {
	InstitutionName    string
	InstitutionAddress string
	LogoPath           string // filesystem path, skipped when missing
	PhotoPath          string // filesystem path of the passport photo, skipped when missing
	ReferenceNumber    string
	Date               time.Time
	ApplicantName      string
	ProgramName        string
	DurationYears      int
	SystemID           string
	Fee                int64 // minor units
	Currency           string
	AcademicYear       string
	AcceptanceDeadline string
	RegistrarName      string
}

// Validate checks the fields the letter cannot be printed without
func (d *Data) Validate() error {
	var missing []string
	if strings.TrimSpace(d.ApplicantName) == "" {
		missing = append(missing, "applicant name")
	}
	if strings.TrimSpace(d.ProgramName) == "" {
		missing = append(missing, "program name")
	}
	if strings.TrimSpace(d.SystemID) == "" {
		missing = append(missing, "system ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("letter data incomplete: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Reference builds the letter reference number, e.g. UNI/ADM/2025/17
func Reference(prefix string, year int, applicationID int64) string {
	return fmt.Sprintf("%s/ADM/%d/%d", strings.ToUpper(prefix), year, applicationID)
}

// FileName is the stored name of an application's letter
func FileName(applicationID int64) string {
	return fmt.Sprintf("admission_letter_%d.pdf", applicationID)
}

// FormatMoney renders minor units as "GHS 4,500.00"
func FormatMoney(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := strconv.FormatInt(amount/100, 10)
	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}
	out := fmt.Sprintf("%s%s.%02d", sign, grouped.String(), amount%100)
	if currency != "" {
		out = currency + " " + out
	}
	return out
}

// Renderer produces letter bytes
type Renderer interface {
	Render(data Data) ([]byte, error)
}

// PDFRenderer renders letters with fpdf
type PDFRenderer struct{}

// Render implements Renderer
func (PDFRenderer) Render(data Data) ([]byte, error) {
	return Render(data)
}

// Render lays out the letter on a single A4 page
func Render(data Data) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if data.Date.IsZero() {
		data.Date = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Admission Letter - "+data.ApplicantName, true)
	pdf.SetCreator(data.InstitutionName, true)
	pdf.SetMargins(20, 18, 20)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 40

	placeImage(pdf, data.LogoPath, 20, 14, 22)
	placeImage(pdf, data.PhotoPath, pageW-20-28, 14, 28)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 8, tr(strings.ToUpper(data.InstitutionName)), "", 1, "C", false, 0, "")
	if data.InstitutionAddress != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(contentW, 5, tr(data.InstitutionAddress), "", "C", false)
	}
	pdf.SetY(48)
	pdf.SetLineWidth(0.4)
	pdf.Line(20, pdf.GetY(), pageW-20, pdf.GetY())
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW/2, 6, tr("Ref: "+data.ReferenceNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, data.Date.Format("2 January 2006"), "", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.Cell(contentW, 6, tr("Dear "+data.ApplicantName+","))
	pdf.Ln(10)

	title := "OFFER OF ADMISSION"
	if data.AcademicYear != "" {
		title += " - " + data.AcademicYear + " ACADEMIC YEAR"
	}
	pdf.SetFont("Helvetica", "BU", 12)
	pdf.CellFormat(contentW, 7, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	for i, clause := range clauses(data) {
		pdf.MultiCell(contentW, 6, tr(fmt.Sprintf("%d. %s", i+1, clause)), "", "J", false)
		pdf.Ln(2)
	}

	pdf.Ln(6)
	pdf.Cell(contentW, 6, tr("Congratulations on your admission."))
	pdf.Ln(16)
	pdf.Cell(contentW, 6, "Yours faithfully,")
	pdf.Ln(18)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(contentW, 6, tr(data.RegistrarName))
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(contentW, 6, "Registrar")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clauses(data Data) []string {
	out := []string{
		fmt.Sprintf("We are pleased to inform you that you have been offered admission to pursue a %d-year programme leading to the award of %s.",
			data.DurationYears, data.ProgramName),
		fmt.Sprintf("Your student identification number is %s. Quote this number in all correspondence with the University.", data.SystemID),
		fmt.Sprintf("The fees for the first year of study amount to %s. Payment must be made through the student portal before registration.",
			FormatMoney(data.Fee, data.Currency)),
	}
	if data.AcceptanceDeadline != "" {
		out = append(out, fmt.Sprintf("This offer must be accepted by %s, failing which it will lapse.", data.AcceptanceDeadline))
	} else {
		out = append(out, "This offer must be accepted within the period announced by the University, failing which it will lapse.")
	}
	out = append(out,
		"Your admission is subject to verification of the results and documents you submitted. Any false declaration will lead to withdrawal of this offer, even after registration.",
		"You will be required to undergo a medical examination at the University clinic before registration.",
	)
	return out
}

// CheckImage reports whether r holds an image the renderer can embed.
// imageType is the file extension without the dot.
func CheckImage(r io.Reader, imageType string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.RegisterImageOptionsReader("upload", fpdf.ImageOptions{ImageType: imageType, ReadDpi: true}, r)
	return pdf.Error()
}

// placeImage draws an optional image. A file fpdf cannot decode is left out
// rather than failing the whole letter.
func placeImage(pdf *fpdf.Fpdf, path string, x, y, w float64) {
	if !imageUsable(path) {
		return
	}
	opts := fpdf.ImageOptions{ReadDpi: true}
	if info := pdf.RegisterImageOptions(path, opts); info == nil || !pdf.Ok() {
		pdf.ClearError()
		return
	}
	pdf.ImageOptions(path, x, y, w, 0, false, opts, 0, "")
}

func imageUsable(path string) bool {
	if path == "" {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif":
	default:
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}
