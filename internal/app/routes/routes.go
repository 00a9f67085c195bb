package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/uniadmit/internal/app/auth"
	"github.com/yigit/uniadmit/internal/app/controllers"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/middleware"
	"github.com/yigit/uniadmit/internal/pkg/ratelimit"
)

// Controllers groups every HTTP handler set
type Controllers struct {
	Auth         *controllers.AuthController
	Applications *controllers.ApplicationController
	Vouchers     *controllers.VoucherController
	Payments     *controllers.PaymentController
	Programs     *controllers.ProgramController
	Courses      *controllers.CourseController
	Invoices     *controllers.InvoiceController
	Settings     *controllers.SettingController
	// WebSocket upgrades an authenticated request; nil disables /ws
	WebSocket gin.HandlerFunc
}

// RateLimits bounds the unauthenticated credential endpoints per client IP
type RateLimits struct {
	Limiter  ratelimit.Limiter
	Login    int
	Register int
	Window   time.Duration
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	h Controllers,
	authMiddleware *middleware.AuthMiddleware,
	limits RateLimits,
	logger zerolog.Logger,
) {
	v1 := router.Group("/api/v1")
	require := middleware.RequireCapability

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register",
			middleware.RateLimit(limits.Limiter, "register", limits.Register, limits.Window, logger),
			h.Auth.Register)
		auth.POST("/login",
			middleware.RateLimit(limits.Limiter, "login", limits.Login, limits.Window, logger),
			h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
	}
	v1.GET("/settings", h.Settings.Get)
	v1.GET("/programs", h.Programs.List)
	v1.GET("/programs/:id", h.Programs.Get)

	payments := v1.Group("/payments")
	{
		payments.POST("/vouchers/initialize", h.Payments.InitializeVoucherPurchase)
		payments.GET("/:reference/verify", h.Payments.Verify)
		payments.POST("/webhook", h.Payments.Webhook)
	}

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authenticated.GET("/auth/me", h.Auth.Me)
	if h.WebSocket != nil {
		authenticated.GET("/ws", h.WebSocket)
	}

	// Applicant
	mine := authenticated.Group("/applications/me", require(appauth.CapApply))
	{
		mine.GET("", h.Applications.GetMine)
		mine.PUT("", h.Applications.SaveMine)
		mine.POST("/submit", h.Applications.SubmitMine)
		mine.POST("/documents", h.Applications.UploadDocument)
		mine.GET("/documents", h.Applications.ListMyDocuments)
	}

	// Registrar
	applications := authenticated.Group("/applications")
	{
		applications.GET("", require(appauth.CapReviewApplications), h.Applications.List)
		applications.GET("/:id", require(appauth.CapReviewApplications), h.Applications.Get)

		decide := applications.Group("/:id", require(appauth.CapDecideApplications))
		decide.POST("/review", h.Applications.Review)
		decide.POST("/admit", h.Applications.Admit)
		decide.POST("/reject", h.Applications.Reject)
		decide.POST("/letter", h.Applications.RegenerateLetter)
		decide.POST("/notify", h.Applications.Notify)
	}

	grading := authenticated.Group("/grading-scheme", require(appauth.CapManageGrading))
	{
		grading.GET("", h.Courses.GetScheme)
		grading.PUT("", h.Courses.ReplaceScheme)
	}

	courses := authenticated.Group("/courses")
	{
		courses.GET("", require(appauth.CapManageCourses), h.Courses.List)
		courses.GET("/:id", require(appauth.CapManageCourses), h.Courses.Get)
		courses.POST("", require(appauth.CapManageCourses), h.Courses.Create)
		courses.PUT("/:id", require(appauth.CapManageCourses), h.Courses.Update)
		courses.DELETE("/:id", require(appauth.CapManageCourses), h.Courses.Delete)
		courses.GET("/:id/enrollments", require(appauth.CapRecordGrades), h.Courses.Roster)
	}
	authenticated.PUT("/enrollments/:id/grade", require(appauth.CapRecordGrades), h.Courses.RecordGrade)

	// Admin
	vouchers := authenticated.Group("/vouchers", require(appauth.CapManageVouchers))
	{
		vouchers.POST("/batch", h.Vouchers.GenerateBatch)
		vouchers.GET("", h.Vouchers.List)
	}

	programs := authenticated.Group("/programs", require(appauth.CapManagePrograms))
	{
		programs.POST("", h.Programs.Create)
		programs.PUT("/:id", h.Programs.Update)
		programs.DELETE("/:id", h.Programs.Delete)
	}

	authenticated.PUT("/settings", require(appauth.CapManageSettings), h.Settings.Update)

	accounts := authenticated.Group("/admin/accounts", require(appauth.CapManageAccounts))
	{
		accounts.POST("", h.Auth.CreateAccount)
		accounts.GET("", h.Auth.ListAccounts)
	}

	// Student
	student := authenticated.Group("/student", require(appauth.CapStudy))
	{
		student.GET("/courses", h.Courses.StudentCourses)
		student.POST("/enrollments", h.Courses.Register)
		student.GET("/enrollments", h.Courses.Enrollments)
		student.GET("/results", h.Courses.Results)
		student.GET("/invoices", h.Invoices.ListMine)
		student.POST("/invoices/:id/pay", h.Payments.PayInvoice)
	}

	// Finance
	finance := authenticated.Group("", require(appauth.CapManageFinance))
	{
		finance.GET("/invoices", h.Invoices.List)
		finance.POST("/invoices", h.Invoices.Create)
		finance.POST("/invoices/:id/cancel", h.Invoices.Cancel)
		finance.GET("/payments", h.Payments.List)
	}
}
