// Package sandbox is a local stand-in for the System Manager. It serves the
// login, logout and session endpoints plus user and organization reads with
// the same {data}/{message} envelope, backed by SQLite.
package sandbox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sysmanager-dev/sysmanager/internal/auth"
	"github.com/sysmanager-dev/sysmanager/internal/models"
)

// Options configures a sandbox server
type Options struct {
	// DatabaseURL is a SQLite path or ":memory:"
	DatabaseURL string

	// JWTSecret signs session tokens. A random secret is generated when
	// empty, which invalidates tokens across restarts.
	JWTSecret string

	TokenTTL time.Duration

	// AllowOrigins for CORS. Default: any origin
	AllowOrigins []string

	// CleanupSchedule is the cron expression of the session janitor run
	// by Start. Default: DefaultCleanupSchedule
	CleanupSchedule string
}

// Server is the sandbox HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	issuer    *auth.Issuer
	logger    zerolog.Logger
	validator *validator.Validate
	now       func() time.Time
	schedule  string
}

// New opens the database, migrates it and builds the router
func New(opts Options, zlog zerolog.Logger) (*Server, error) {
	if opts.DatabaseURL == "" {
		opts.DatabaseURL = ":memory:"
	}
	if opts.CleanupSchedule == "" {
		opts.CleanupSchedule = DefaultCleanupSchedule
	}
	if _, err := parseSchedule(opts.CleanupSchedule); err != nil {
		return nil, err
	}

	db, err := initDatabase(opts.DatabaseURL, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	secret := opts.JWTSecret
	if secret == "" {
		secret, err = randomHex(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		zlog.Debug().Msg("Generated ephemeral JWT secret")
	}

	issuer, err := auth.NewIssuer(secret, opts.TokenTTL)
	if err != nil {
		return nil, err
	}

	server := &Server{
		db:        db,
		issuer:    issuer,
		logger:    zlog,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
		schedule:  opts.CleanupSchedule,
	}
	server.setupRouter(opts.AllowOrigins)

	return server, nil
}

// initDatabase opens SQLite with the pragmas the sandbox relies on
func initDatabase(url string, zlog zerolog.Logger) (*gorm.DB, error) {
	const busyTimeout = 5000 // 5 seconds

	gormLogger := logger.New(&zlog, logger.Config{
		LogLevel:                  logger.Error,
		IgnoreRecordNotFoundError: true,
		SlowThreshold:             200 * time.Millisecond,
	})

	db, err := gorm.Open(sqlite.Open(url), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Every connection to ":memory:" is a separate database
	if strings.Contains(url, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(4)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter(allowOrigins []string) {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowOrigins
	}
	s.router.Use(cors.New(corsConfig))

	s.router.GET("/health", s.healthCheck)

	// Public endpoints
	s.router.POST("/login", s.loginPassword)
	s.router.POST("/login/:slug", s.loginBySlug)
	s.router.GET("/logout", s.logout)
	s.router.GET("/session", s.getSession)

	// Session token required
	authed := s.router.Group("/")
	authed.Use(SessionAuthMiddleware(s.db, s.issuer, s.logger))
	{
		authed.GET("/user/:id", s.getUser)
		authed.GET("/organization/:id", s.getOrganization)
		authed.GET("/organization/:id/members", s.listMembers)
	}

	admin := s.router.Group("/admin")
	admin.Use(SessionAuthMiddleware(s.db, s.issuer, s.logger), AdminOnlyMiddleware(s.logger))
	{
		admin.GET("/user", s.adminListUsers)
		admin.POST("/user/:id/deactivate", s.adminDeactivateUser)
		admin.GET("/organization", s.adminListOrganizations)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})
}

// loggingMiddleware logs each request with zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("request_id", c.GetHeader("X-Request-Id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	respondData(c, gin.H{
		"status":    "online",
		"timestamp": s.now().UTC(),
		"service":   "sysmanager-sandbox",
	})
}

// Handler returns the router, for httptest or embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// DB returns the database connection
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Close releases the database
func (s *Server) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start(addr string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go s.RunJanitor(janitorCtx, s.schedule)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", addr).Msg("Starting sandbox server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("sandbox server failed: %w", err)
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopJanitor()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := s.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	}

	s.logger.Info().Msg("Sandbox shutdown complete")
	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
