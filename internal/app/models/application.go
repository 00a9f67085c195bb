package models

import (
	"fmt"
	"time"
)

// ApplicationStatus is the admission workflow state
type ApplicationStatus string

const (
	ApplicationDraft     ApplicationStatus = "Draft"
	ApplicationSubmitted ApplicationStatus = "Submitted"
	ApplicationPending   ApplicationStatus = "Pending"
	ApplicationAdmitted  ApplicationStatus = "Admitted"
	ApplicationRejected  ApplicationStatus = "Rejected"
)

// applicationTransitions is the complete transition table. Admitted and
// Rejected have no outgoing edges.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationDraft:     {ApplicationSubmitted},
	ApplicationSubmitted: {ApplicationSubmitted, ApplicationPending, ApplicationAdmitted, ApplicationRejected},
	ApplicationPending:   {ApplicationAdmitted, ApplicationRejected},
}

// TransitionError describes an illegal status move
type TransitionError struct {
	From ApplicationStatus
	To   ApplicationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move application from %s to %s", e.From, e.To)
}

// Transition returns the next status or a *TransitionError when the move is illegal
func (s ApplicationStatus) Transition(to ApplicationStatus) (ApplicationStatus, error) {
	for _, allowed := range applicationTransitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, &TransitionError{From: s, To: to}
}

// Editable reports whether the applicant may still change form content
func (s ApplicationStatus) Editable() bool {
	return s == ApplicationDraft || s == ApplicationSubmitted
}

// Terminal reports whether the status ends the admission cycle
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAdmitted || s == ApplicationRejected
}

// SubjectGrade is one subject result inside an exam sitting
type SubjectGrade struct {
	Subject string `json:"subject"`
	Grade   string `json:"grade"`
}

// ExamSitting is one sitting of a qualifying examination
type ExamSitting struct {
	ExamType    string         `json:"examType"`
	IndexNumber string         `json:"indexNumber"`
	ExamYear    int            `json:"examYear"`
	Subjects    []SubjectGrade `json:"subjects"`
}

// ExamResults holds every sitting declared by the applicant
type ExamResults struct {
	Sittings []ExamSitting `json:"sittings"`
}

// SittingCount returns the number of result slips the applicant must upload
func (r ExamResults) SittingCount() int {
	if len(r.Sittings) == 0 {
		return 1
	}
	return len(r.Sittings)
}

// ApplicantDetails are the personal fields of the form
type ApplicantDetails struct {
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	OtherNames  string     `json:"otherNames,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	Nationality string     `json:"nationality,omitempty"`
}

// Application is one applicant's admission request
type Application struct {
	ID                  int64             `json:"id" db:"id"`
	AccountID           int64             `json:"accountId" db:"account_id"`
	Status              ApplicationStatus `json:"status" db:"status"`
	Details             ApplicantDetails  `json:"details" db:"details"`
	FirstChoiceID       *int64            `json:"firstChoiceId,omitempty" db:"first_choice_id"`
	SecondChoiceID      *int64            `json:"secondChoiceId,omitempty" db:"second_choice_id"`
	ThirdChoiceID       *int64            `json:"thirdChoiceId,omitempty" db:"third_choice_id"`
	ExamResults         ExamResults       `json:"examResults" db:"exam_results"`
	AdmittedProgramID   *int64            `json:"admittedProgramId,omitempty" db:"admitted_program_id"`
	AdmissionLetterPath *string           `json:"admissionLetterPath,omitempty" db:"admission_letter_path"`
	SubmittedAt         *time.Time        `json:"submittedAt,omitempty" db:"submitted_at"`
	DecidedAt           *time.Time        `json:"decidedAt,omitempty" db:"decided_at"`
	DecidedBy           *int64            `json:"decidedBy,omitempty" db:"decided_by"`
	CreatedAt           time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time         `json:"updatedAt" db:"updated_at"`
}

// ApplicationFilter narrows staff listings
type ApplicationFilter struct {
	Status    ApplicationStatus
	ProgramID int64
	Offset    uint64
	Limit     int
}

// DocumentKind classifies an uploaded supporting document
type DocumentKind string

const (
	DocumentResultSlip       DocumentKind = "result_slip"
	DocumentBirthCertificate DocumentKind = "birth_certificate"
	DocumentPassportPhoto    DocumentKind = "passport_photo"
	DocumentOther            DocumentKind = "other"
)

// ParseDocumentKind validates a raw kind string
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch k := DocumentKind(s); k {
	case DocumentResultSlip, DocumentBirthCertificate, DocumentPassportPhoto, DocumentOther:
		return k, nil
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

// Singular reports whether a new upload replaces the previous one of the same kind
func (k DocumentKind) Singular() bool {
	return k == DocumentBirthCertificate || k == DocumentPassportPhoto
}

// Document is a stored upload attached to an application
type Document struct {
	ID            int64        `json:"id" db:"id"`
	ApplicationID int64        `json:"applicationId" db:"application_id"`
	Kind          DocumentKind `json:"kind" db:"kind"`
	Path          string       `json:"path" db:"path"`
	OriginalName  string       `json:"originalName" db:"original_name"`
	Size          int64        `json:"size" db:"size"`
	MimeType      string       `json:"mimeType" db:"mime_type"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
}

// MissingDocuments lists the required document kinds that are not yet
// uploaded. Result slips are required once per declared exam sitting.
func MissingDocuments(app *Application, docs []*Document) []string {
	counts := make(map[DocumentKind]int)
	for _, d := range docs {
		counts[d.Kind]++
	}

	var missing []string
	if need := app.ExamResults.SittingCount(); counts[DocumentResultSlip] < need {
		missing = append(missing, fmt.Sprintf("%s (%d of %d)", DocumentResultSlip, counts[DocumentResultSlip], need))
	}
	if counts[DocumentBirthCertificate] == 0 {
		missing = append(missing, string(DocumentBirthCertificate))
	}
	if counts[DocumentPassportPhoto] == 0 {
		missing = append(missing, string(DocumentPassportPhoto))
	}
	return missing
}
