package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/uniadmit/internal/app/controllers"
	appJobs "github.com/yigit/uniadmit/internal/app/jobs"
	appMigrations "github.com/yigit/uniadmit/internal/app/migrations"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/notifications"
	appRepos "github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/app/repositories/inmem"
	appRoutes "github.com/yigit/uniadmit/internal/app/routes"
	appServices "github.com/yigit/uniadmit/internal/app/services"
	"github.com/yigit/uniadmit/internal/config"
	"github.com/yigit/uniadmit/internal/db"
	appMiddleware "github.com/yigit/uniadmit/internal/middleware"
	pkgAuth "github.com/yigit/uniadmit/internal/pkg/auth"
	"github.com/yigit/uniadmit/internal/pkg/email"
	"github.com/yigit/uniadmit/internal/pkg/filestorage"
	"github.com/yigit/uniadmit/internal/pkg/helpers"
	"github.com/yigit/uniadmit/internal/pkg/letter"
	"github.com/yigit/uniadmit/internal/pkg/logger"
	"github.com/yigit/uniadmit/internal/pkg/paystack"
	"github.com/yigit/uniadmit/internal/pkg/ratelimit"
	"github.com/yigit/uniadmit/internal/pkg/sms"
	"github.com/yigit/uniadmit/internal/pkg/websocket"
	"github.com/yigit/uniadmit/internal/seed"
)

const uploadsURLPrefix = "/uploads"

// Storage is the selected persistence backend
type Storage struct {
	Repos *appRepos.Repositories
	Tx    appRepos.Transactor
	// Pool is nil for the memory driver
	Pool *pgxpool.Pool
}

// Close releases the database pool
func (s *Storage) Close() {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Storage     *Storage
	FileStorage *filestorage.LocalStorage
	JWTService  *pkgAuth.JWTService
	Hub         *websocket.Hub
	Redis       *redis.Client
	Queue       notifications.Queue
	Scheduler   *appJobs.Scheduler

	AuthService        *appServices.AuthService
	VoucherService     *appServices.VoucherService
	ApplicationService *appServices.ApplicationService
	AdmissionService   *appServices.AdmissionService
	ProgramService     *appServices.ProgramService
	CourseService      *appServices.CourseService
	GradingService     *appServices.GradingService
	InvoiceService     *appServices.InvoiceService
	PaymentService     *appServices.PaymentService
	SettingService     *appServices.SettingService

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	RateLimits     appRoutes.RateLimits
	Logger         zerolog.Logger

	closers []func(ctx context.Context) error
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := config.GetEnv("CONFIG_PATH", filepath.Join("configs", "config.yaml"))
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) != "json"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase opens the configured backend, runs migrations for Postgres
// and creates default data.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*Storage, error) {
	var storage *Storage
	switch cfg.Database.Driver {
	case "memory":
		lgr.Warn().Msg("Using in-memory storage; data is lost on restart")
		store := inmem.New()
		storage = &Storage{Repos: store.Repositories(), Tx: store}
	default:
		pool, err := openPostgres(cfg, lgr)
		if err != nil {
			return nil, err
		}
		storage = &Storage{
			Repos: appRepos.NewRepositories(pool),
			Tx:    appRepos.NewPostgresTransactor(pool),
			Pool:  pool,
		}
	}

	seedOpts := seed.Options{AdminEmail: cfg.Seed.AdminEmail, AdminPassword: cfg.Seed.AdminPassword}
	if err := seed.CreateDefaultData(context.Background(), storage.Repos, seedOpts, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}
	return storage, nil
}

func openPostgres(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	pool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Server.MigrationsPath
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		pool.Close()
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Msg("Running database migrations...")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := appMigrations.NewMigrator(pool, lgr).MigrateFromDirectory(ctx, migrationsDir); err != nil {
		pool.Close()
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")
	return pool, nil
}

// NewFileStorage creates the local upload store served at /uploads
func NewFileStorage(cfg *config.Config) (*filestorage.LocalStorage, error) {
	fs, err := filestorage.NewLocalStorage(cfg.Server.StoragePath, uploadsURLPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	return fs, nil
}

// NewDispatcher builds the email, SMS and realtime fan-out. hub may be nil.
func NewDispatcher(cfg *config.Config, files notifications.FileResolver, hub notifications.Publisher, lgr zerolog.Logger) *notifications.Dispatcher {
	timeout := helpers.ParseDuration(cfg.Admission.NotificationTimeout, 30*time.Second)
	emailSender := email.NewSender(email.Config{
		Provider: cfg.Email.Provider,
		SMTP: email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			UseTLS:   cfg.Email.SMTPUseTLS,
			Timeout:  timeout,
		},
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromName:       cfg.Email.FromName,
		FromEmail:      cfg.Email.FromEmail,
		SubjectPrefix:  cfg.Email.SubjectPrefix,
	}, lgr)
	smsSender := sms.NewSender(sms.Config{
		Enabled:  cfg.SMS.Enabled,
		URL:      cfg.SMS.URL,
		APIKey:   cfg.SMS.APIKey,
		SenderID: cfg.SMS.SenderID,
		Timeout:  timeout,
	}, lgr)
	return notifications.NewDispatcher(emailSender, smsSender, hub, files, timeout, lgr)
}

// AMQPConfig maps the broker section
func AMQPConfig(cfg *config.Config) notifications.AMQPConfig {
	return notifications.AMQPConfig{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
		Queue:    cfg.RabbitMQ.Queue,
		Prefetch: cfg.RabbitMQ.Prefetch,
	}
}

func (d *Dependencies) onClose(fn func(ctx context.Context) error) {
	d.closers = append(d.closers, fn)
}

// Close releases resources in reverse construction order
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// BuildDependencies initializes services, controllers and background workers.
// ctx bounds the websocket hub.
func BuildDependencies(ctx context.Context, cfg *config.Config, storage *Storage, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Storage: storage, Logger: lgr}
	repos, tx := storage.Repos, storage.Tx

	var err error
	deps.FileStorage, err = NewFileStorage(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, err
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	// Realtime hub
	deps.Hub = websocket.NewHub(lgr)
	go deps.Hub.Run(ctx)

	// Notifications
	notifyTimeout := helpers.ParseDuration(cfg.Admission.NotificationTimeout, 30*time.Second)
	if cfg.RabbitMQ.Enabled {
		amqpQueue, err := notifications.DialAMQPQueue(AMQPConfig(cfg), lgr)
		if err != nil {
			_ = deps.Close(context.Background())
			return nil, err
		}
		deps.onClose(func(context.Context) error { return amqpQueue.Close() })
		// the worker delivers email and SMS; this process only owns the hub
		realtimeOnly := notifications.NewDispatcher(nil, nil, deps.Hub, nil, notifyTimeout, lgr)
		realtime := notifications.NewInlineQueue(realtimeOnly, notifyTimeout, lgr)
		deps.onClose(func(context.Context) error { realtime.Close(); return nil })
		deps.Queue = notifications.FanoutQueue{amqpQueue, realtime}
		lgr.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("Notifications published to RabbitMQ")
	} else {
		inline := notifications.NewInlineQueue(NewDispatcher(cfg, deps.FileStorage, deps.Hub, lgr), notifyTimeout, lgr)
		deps.onClose(func(context.Context) error { inline.Close(); return nil })
		deps.Queue = inline
	}

	// Rate limiting
	var limiter ratelimit.Limiter = ratelimit.Noop{}
	if cfg.Redis.Enabled {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := deps.Redis.Ping(pingCtx).Err(); err != nil {
			lgr.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable; rate limiting fails open until it recovers")
		}
		cancel()
		client := deps.Redis
		deps.onClose(func(context.Context) error { return client.Close() })
		limiter = ratelimit.NewRedisLimiter(client, cfg.Redis.Prefix)
	}
	deps.RateLimits = appRoutes.RateLimits{
		Limiter:  limiter,
		Login:    cfg.Admission.LoginRateLimit,
		Register: cfg.Admission.RegisterRateLimit,
		Window:   helpers.ParseDuration(cfg.Admission.RateLimitWindow, time.Minute),
	}

	// Services
	prices := make(map[models.VoucherType]int64, len(cfg.Admission.VoucherPrices))
	for name, price := range cfg.Admission.VoucherPrices {
		vtype, err := models.ParseVoucherType(name)
		if err != nil {
			lgr.Warn().Str("type", name).Msg("Ignoring price for unknown voucher type")
			continue
		}
		prices[vtype] = price
	}

	deps.AuthService = appServices.NewAuthService(tx, repos, deps.JWTService, lgr)
	deps.VoucherService = appServices.NewVoucherService(tx, repos, appServices.VoucherConfig{
		Validity:      helpers.ParseDuration(cfg.Admission.VoucherValidity, 180*24*time.Hour),
		SerialRetries: cfg.Admission.VoucherSerialRetries,
	}, lgr)
	deps.ApplicationService = appServices.NewApplicationService(tx, repos, deps.FileStorage, deps.Queue,
		int64(cfg.Server.MaxUploadMB)<<20, lgr)
	deps.AdmissionService = appServices.NewAdmissionService(tx, repos, deps.FileStorage, letter.PDFRenderer{},
		deps.Queue, cfg.Admission.SystemIDMaxAttempts, lgr)
	deps.ProgramService = appServices.NewProgramService(repos, lgr)
	deps.CourseService = appServices.NewCourseService(tx, repos, lgr)
	deps.GradingService = appServices.NewGradingService(repos, lgr)
	deps.InvoiceService = appServices.NewInvoiceService(repos, lgr)
	deps.SettingService = appServices.NewSettingService(repos, lgr)

	gateway := paystack.NewClient(paystack.Config{
		BaseURL:     cfg.Paystack.BaseURL,
		SecretKey:   cfg.Paystack.SecretKey,
		Timeout:     helpers.ParseDuration(cfg.Paystack.Timeout, 15*time.Second),
		MaxAttempts: cfg.Paystack.MaxAttempts,
	}, lgr)
	deps.PaymentService = appServices.NewPaymentService(tx, repos, gateway, deps.VoucherService, deps.InvoiceService,
		deps.Queue, appServices.PaymentConfig{
			SecretKey:     cfg.Paystack.SecretKey,
			CallbackURL:   cfg.Paystack.CallbackURL,
			VoucherPrices: prices,
		}, lgr)

	// Scheduled jobs
	if cfg.Scheduler.Enabled {
		jobs := appJobs.NewJobs(deps.VoucherService, deps.PaymentService, appJobs.Config{
			VoucherExpiry:    cfg.Scheduler.VoucherExpiry,
			PaymentReconcile: cfg.Scheduler.PaymentReconcile,
			ReconcileAfter:   helpers.ParseDuration(cfg.Scheduler.ReconcileAfter, 15*time.Minute),
			Timeout:          helpers.ParseDuration(cfg.Scheduler.JobTimeout, 5*time.Minute),
		}, lgr)
		deps.Scheduler = appJobs.NewScheduler(jobs, lgr)
		if err := deps.Scheduler.Start(); err != nil {
			_ = deps.Close(context.Background())
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
		scheduler := deps.Scheduler
		deps.onClose(func(ctx context.Context) error { scheduler.Stop(ctx); return nil })
	}

	// HTTP layer
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	wsHandler := websocket.NewHandler(deps.Hub, cfg.Server.AllowedOrigins, lgr)
	deps.Controllers = appRoutes.Controllers{
		Auth:         appControllers.NewAuthController(deps.AuthService, lgr),
		Applications: appControllers.NewApplicationController(deps.ApplicationService, deps.AdmissionService, lgr),
		Vouchers:     appControllers.NewVoucherController(deps.VoucherService),
		Payments:     appControllers.NewPaymentController(deps.PaymentService, lgr),
		Programs:     appControllers.NewProgramController(deps.ProgramService),
		Courses:      appControllers.NewCourseController(deps.CourseService, deps.GradingService),
		Invoices:     appControllers.NewInvoiceController(deps.InvoiceService),
		Settings:     appControllers.NewSettingController(deps.SettingService),
		WebSocket:    wsHandler.HandleConnection,
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))
	router.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.RateLimits, lgr)
	router.Static(uploadsURLPrefix, deps.FileStorage.BasePath())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
