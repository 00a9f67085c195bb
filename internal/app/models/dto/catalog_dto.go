package dto

// ProgramRequest creates or updates a program
type ProgramRequest struct {
	Code          string `json:"code" binding:"required,max=20" example:"CS"`
	Name          string `json:"name" binding:"required,max=255" example:"BSc Computer Science"`
	Faculty       string `json:"faculty" binding:"omitempty,max=255"`
	Department    string `json:"department" binding:"omitempty,max=255"`
	DurationYears int    `json:"durationYears" binding:"required,min=1,max=10" example:"4"`
	Fee           int64  `json:"fee" binding:"min=0" example:"450000"`
}

// CourseRequest creates or updates a course
type CourseRequest struct {
	Code        string `json:"code" binding:"required,max=20" example:"CSC101"`
	Title       string `json:"title" binding:"required,max=255"`
	CreditHours int    `json:"creditHours" binding:"required,min=1,max=12"`
	ProgramID   *int64 `json:"programId" binding:"omitempty,min=1"`
	Level       int    `json:"level" binding:"required,min=100,max=900" example:"100"`
	Semester    int    `json:"semester" binding:"required,oneof=1 2"`
}

// RegisterCoursesRequest registers the caller for courses
type RegisterCoursesRequest struct {
	CourseIDs    []int64 `json:"courseIds" binding:"required,min=1,dive,min=1"`
	AcademicYear string  `json:"academicYear" binding:"required" example:"2025/2026"`
	Semester     int     `json:"semester" binding:"required,oneof=1 2"`
}

// RecordGradeRequest records continuous assessment and exam scores
type RecordGradeRequest struct {
	CAScore   *float64 `json:"caScore" binding:"required,gte=0,lte=100"`
	ExamScore *float64 `json:"examScore" binding:"required,gte=0,lte=100"`
}

// GradeBandRequest is one band of a grading scheme
type GradeBandRequest struct {
	MinScore float64 `json:"minScore" binding:"gte=0,lte=100"`
	Grade    string  `json:"grade" binding:"required,max=5"`
	Point    float64 `json:"point" binding:"gte=0,lte=5"`
}

// GradingSchemeRequest replaces the grading scheme
type GradingSchemeRequest struct {
	Bands []GradeBandRequest `json:"bands" binding:"required,min=1,dive"`
}

// ResultsResponse lists graded enrollments with the weighted GPA
type ResultsResponse struct {
	Results      interface{} `json:"results"`
	GPA          float64     `json:"gpa" example:"3.42"`
	TotalCredits int         `json:"totalCredits"`
}
