package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/services"
	"github.com/yigit/uniadmit/internal/middleware"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
)

// ProgramController handles program CRUD
type ProgramController struct {
	programs *services.ProgramService
}

// NewProgramController creates a new ProgramController
func NewProgramController(programs *services.ProgramService) *ProgramController {
	return &ProgramController{programs: programs}
}

// List returns every program
// @Summary List programs
// @Tags programs
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.Program}
// @Router /programs [get]
func (c *ProgramController) List(ctx *gin.Context) {
	programs, err := c.programs.List(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if programs == nil {
		programs = []*models.Program{}
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(programs, ""))
}

// Get returns one program
// @Summary Get program
// @Tags programs
// @Produce json
// @Param id path int true "Program ID"
// @Success 200 {object} dto.APIResponse{data=models.Program}
// @Failure 404 {object} dto.ErrorResponse "Program not found"
// @Router /programs/{id} [get]
func (c *ProgramController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Program")
	if !ok {
		return
	}
	program, err := c.programs.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(program, ""))
}

// Create adds a program
// @Summary Create program
// @Tags programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ProgramRequest true "Program"
// @Success 201 {object} dto.APIResponse{data=models.Program}
// @Failure 409 {object} dto.ErrorResponse "Program code already exists"
// @Router /programs [post]
func (c *ProgramController) Create(ctx *gin.Context) {
	var req dto.ProgramRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	program, err := c.programs.Create(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(program, "Program created"))
}

// Update modifies a program
// @Summary Update program
// @Tags programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Program ID"
// @Param request body dto.ProgramRequest true "Program"
// @Success 200 {object} dto.APIResponse{data=models.Program}
// @Router /programs/{id} [put]
func (c *ProgramController) Update(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Program")
	if !ok {
		return
	}
	var req dto.ProgramRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	program, err := c.programs.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(program, "Program updated"))
}

// Delete removes an unused program
// @Summary Delete program
// @Tags programs
// @Security BearerAuth
// @Param id path int true "Program ID"
// @Success 204
// @Failure 409 {object} dto.ErrorResponse "Program is in use"
// @Router /programs/{id} [delete]
func (c *ProgramController) Delete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Program")
	if !ok {
		return
	}
	if err := c.programs.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// CourseController handles courses, enrollments and grading
type CourseController struct {
	courses *services.CourseService
	grading *services.GradingService
}

// NewCourseController creates a new CourseController
func NewCourseController(courses *services.CourseService, grading *services.GradingService) *CourseController {
	return &CourseController{courses: courses, grading: grading}
}

// List lists courses
// @Summary List courses
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param programId query int false "Program filter"
// @Success 200 {object} dto.APIResponse{data=[]models.Course}
// @Router /courses [get]
func (c *CourseController) List(ctx *gin.Context) {
	var programID *int64
	if raw := ctx.Query("programId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("programId must be a positive number"))
			return
		}
		programID = &id
	}
	courses, err := c.courses.List(ctx.Request.Context(), programID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(courses, ""))
}

// Get returns one course
// @Summary Get course
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.APIResponse{data=models.Course}
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id} [get]
func (c *CourseController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Course")
	if !ok {
		return
	}
	course, err := c.courses.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course, ""))
}

// Create adds a course
// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CourseRequest true "Course"
// @Success 201 {object} dto.APIResponse{data=models.Course}
// @Failure 409 {object} dto.ErrorResponse "Course code already exists"
// @Router /courses [post]
func (c *CourseController) Create(ctx *gin.Context) {
	var req dto.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	course, err := c.courses.Create(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(course, "Course created"))
}

// Update modifies a course
// @Summary Update course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body dto.CourseRequest true "Course"
// @Success 200 {object} dto.APIResponse{data=models.Course}
// @Router /courses/{id} [put]
func (c *CourseController) Update(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Course")
	if !ok {
		return
	}
	var req dto.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	course, err := c.courses.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course, "Course updated"))
}

// Delete removes a course
// @Summary Delete course
// @Tags courses
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (c *CourseController) Delete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Course")
	if !ok {
		return
	}
	if err := c.courses.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Roster lists the enrollments of a course
// @Summary Course enrollments
// @Tags grading
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Enrollment}
// @Router /courses/{id}/enrollments [get]
func (c *CourseController) Roster(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Course")
	if !ok {
		return
	}
	enrollments, err := c.courses.CourseRoster(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if enrollments == nil {
		enrollments = []*models.Enrollment{}
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollments, ""))
}

// RecordGrade stores scores and the derived grade
// @Summary Record grade
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Param request body dto.RecordGradeRequest true "Scores"
// @Success 200 {object} dto.APIResponse{data=models.Enrollment}
// @Failure 400 {object} dto.ErrorResponse "Invalid score"
// @Failure 404 {object} dto.ErrorResponse "Enrollment not found"
// @Router /enrollments/{id}/grade [put]
func (c *CourseController) RecordGrade(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "Enrollment")
	if !ok {
		return
	}
	actorID, ok := caller(ctx)
	if !ok {
		return
	}
	var req dto.RecordGradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	enrollment, err := c.grading.RecordGrade(ctx.Request.Context(), id, *req.CAScore, *req.ExamScore, actorID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollment, "Grade recorded"))
}

// GetScheme returns the grading scheme
// @Summary Get grading scheme
// @Tags grading
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.GradeBand}
// @Router /grading-scheme [get]
func (c *CourseController) GetScheme(ctx *gin.Context) {
	bands, err := c.grading.GetScheme(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(bands, ""))
}

// ReplaceScheme replaces the grading scheme
// @Summary Replace grading scheme
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.GradingSchemeRequest true "Bands"
// @Success 200 {object} dto.APIResponse{data=[]models.GradeBand}
// @Failure 400 {object} dto.ErrorResponse "Invalid scheme"
// @Router /grading-scheme [put]
func (c *CourseController) ReplaceScheme(ctx *gin.Context) {
	var req dto.GradingSchemeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	bands := make([]models.GradeBand, 0, len(req.Bands))
	for _, b := range req.Bands {
		bands = append(bands, models.GradeBand{MinScore: b.MinScore, Grade: b.Grade, Point: b.Point})
	}
	saved, err := c.grading.ReplaceScheme(ctx.Request.Context(), bands)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(saved, "Grading scheme updated"))
}

// StudentCourses lists the courses offered to the caller's program
// @Summary My courses
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Course}
// @Router /student/courses [get]
func (c *CourseController) StudentCourses(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	courses, err := c.courses.ListForStudent(ctx.Request.Context(), accountID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(courses, ""))
}

// Register registers the caller for courses
// @Summary Register for courses
// @Description All listed courses are registered or none are
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RegisterCoursesRequest true "Courses"
// @Success 201 {object} dto.APIResponse{data=[]models.Enrollment}
// @Failure 409 {object} dto.ErrorResponse "Already registered"
// @Router /student/enrollments [post]
func (c *CourseController) Register(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	var req dto.RegisterCoursesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}
	enrollments, err := c.courses.Register(ctx.Request.Context(), accountID, req.CourseIDs, req.AcademicYear, req.Semester)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(enrollments, "Courses registered"))
}

// Enrollments lists the caller's enrollments
// @Summary My enrollments
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Enrollment}
// @Router /student/enrollments [get]
func (c *CourseController) Enrollments(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	enrollments, err := c.courses.ListEnrollments(ctx.Request.Context(), accountID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if enrollments == nil {
		enrollments = []*models.Enrollment{}
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollments, ""))
}

// Results returns graded enrollments and the GPA
// @Summary My results
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ResultsResponse}
// @Router /student/results [get]
func (c *CourseController) Results(ctx *gin.Context) {
	accountID, ok := caller(ctx)
	if !ok {
		return
	}
	results, err := c.grading.Results(ctx.Request.Context(), accountID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(results, ""))
}
