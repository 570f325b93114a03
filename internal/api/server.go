// Package api exposes the import pipeline and the account data over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fjacquet/fintrack/internal/ai"
	"fjacquet/fintrack/internal/backup"
	"fjacquet/fintrack/internal/categorizer"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/ocr"
	"fjacquet/fintrack/internal/pipeline"
	"fjacquet/fintrack/internal/recurring"
	"fjacquet/fintrack/internal/transactions"
)

// UserHeader carries the auth provider's opaque user id.
const UserHeader = "X-User-ID"

// Deps are the services behind the routes. Assistant and Scanner may be nil,
// which disables their routes.
type Deps struct {
	Importer     *pipeline.Importer
	Sessions     *pipeline.Sessions
	Transactions *transactions.Service
	Categorizer  *categorizer.Categorizer
	Recurring    *recurring.Service
	Backup       *backup.Service
	Assistant    *ai.Assistant
	Scanner      *ocr.Scanner
	Logger       logging.Logger
}

// Options tunes the HTTP layer.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server routes requests to the services.
type Server struct {
	deps   Deps
	opts   Options
	logger logging.Logger
	engine *gin.Engine
}

// NewServer builds the gin engine and registers every route.
func NewServer(deps Deps, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = pipeline.DefaultMaxFileBytes
	}
	s := &Server{deps: deps, opts: opts, logger: logging.OrDefault(deps.Logger)}

	r := gin.New()
	r.MaxMultipartMemory = opts.MaxUploadBytes
	r.Use(gin.Recovery(), s.requestLogger())
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE"},
			AllowHeaders:  []string{"Origin", "Content-Type", UserHeader},
			ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}))
	}
	s.engine = r
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := api.Group("", requireUser())

	imports := authed.Group("/imports")
	imports.POST("", s.uploadImport)
	imports.POST("/:id/confirm", s.confirmImport)
	imports.DELETE("/:id", s.cancelImport)

	tx := authed.Group("/transactions")
	tx.GET("", s.listTransactions)
	tx.POST("", s.createTransaction)
	tx.PATCH("/:id", s.updateTransaction)
	tx.DELETE("/:id", s.deleteTransaction)

	authed.POST("/categorize", s.categorize)

	rec := authed.Group("/recurring")
	rec.GET("", s.listRecurring)
	rec.POST("", s.saveRecurring)
	rec.POST("/refresh", s.refreshRecurring)

	authed.GET("/backup", s.exportBackup)
	authed.POST("/backup", s.restoreBackup)
	authed.GET("/export", s.exportTransactions)

	if s.deps.Assistant != nil {
		authed.POST("/chat", s.chat)
	}
	if s.deps.Scanner != nil {
		authed.POST("/receipts", s.scanReceipt)
	}
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", logging.F("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
