package dto

import (
	"time"

	"github.com/yigit/uniadmit/internal/app/models"
)

// SaveApplicationRequest overwrites the applicant's form content
type SaveApplicationRequest struct {
	FirstName      string               `json:"firstName" binding:"omitempty,max=100"`
	LastName       string               `json:"lastName" binding:"omitempty,max=100"`
	OtherNames     string               `json:"otherNames" binding:"omitempty,max=100"`
	DateOfBirth    *time.Time           `json:"dateOfBirth"`
	Gender         string               `json:"gender" binding:"omitempty,oneof=male female other"`
	Phone          string               `json:"phone" binding:"omitempty,max=20"`
	Address        string               `json:"address" binding:"omitempty,max=500"`
	Nationality    string               `json:"nationality" binding:"omitempty,max=100"`
	FirstChoiceID  *int64               `json:"firstChoiceId" binding:"omitempty,min=1"`
	SecondChoiceID *int64               `json:"secondChoiceId" binding:"omitempty,min=1"`
	ThirdChoiceID  *int64               `json:"thirdChoiceId" binding:"omitempty,min=1"`
	ExamSittings   []models.ExamSitting `json:"examSittings" binding:"omitempty,max=4,dive"`
}

// Details maps the request onto the personal fields of the form
func (r *SaveApplicationRequest) Details() models.ApplicantDetails {
	return models.ApplicantDetails{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		OtherNames:  r.OtherNames,
		DateOfBirth: r.DateOfBirth,
		Gender:      r.Gender,
		Phone:       r.Phone,
		Address:     r.Address,
		Nationality: r.Nationality,
	}
}

// AdmitRequest names the program the applicant is admitted into
type AdmitRequest struct {
	ProgramID int64 `json:"programId" binding:"required,min=1"`
}

// ApplicationFilterRequest carries staff listing parameters
type ApplicationFilterRequest struct {
	Status    string `form:"status" binding:"omitempty,oneof=Draft Submitted Pending Admitted Rejected"`
	ProgramID int64  `form:"programId" binding:"omitempty,min=1"`
}

// ApplicationResponse bundles an application with its documents
type ApplicationResponse struct {
	*models.Application
	Documents        []*models.Document `json:"documents"`
	MissingDocuments []string           `json:"missingDocuments"`
}

// NewApplicationResponse builds the response and computes missing documents
func NewApplicationResponse(app *models.Application, docs []*models.Document) *ApplicationResponse {
	if docs == nil {
		docs = []*models.Document{}
	}
	missing := models.MissingDocuments(app, docs)
	if missing == nil {
		missing = []string{}
	}
	return &ApplicationResponse{Application: app, Documents: docs, MissingDocuments: missing}
}

// AdmissionResult is returned after a successful admission
type AdmissionResult struct {
	ApplicationID       int64  `json:"applicationId"`
	SystemID            string `json:"systemId" example:"UNI2025CS0042"`
	ProgramID           int64  `json:"programId"`
	AdmissionLetterPath string `json:"admissionLetterPath" example:"/uploads/letters/admission_letter_12.pdf"`
	InvoiceID           int64  `json:"invoiceId,omitempty"`
}
