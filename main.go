package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emhgit/pdf-voice-assistant/config"
	"github.com/emhgit/pdf-voice-assistant/handler"
	"github.com/emhgit/pdf-voice-assistant/middleware"
	"github.com/emhgit/pdf-voice-assistant/pkg/logger"
	"github.com/emhgit/pdf-voice-assistant/service"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services
	store := service.NewSessionStore(&cfg.Store)
	registry := service.NewSocketRegistry()
	pdfSvc := service.NewPDFService()
	whisperSvc := service.NewWhisperService(&cfg.Whisper)
	llmSvc := service.NewLLMService(&cfg.LLM)
	pipeline := service.NewPipeline(store, registry, whisperSvc, llmSvc, cfg.Whisper.Language)

	archiveSvc, err := service.NewArchiveService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize artifact archive", "error", err)
		os.Exit(1)
	}
	if archiveSvc != nil {
		if err := archiveSvc.EnsureBucket(context.Background()); err != nil {
			slog.Error("failed to ensure archive bucket", "error", err)
			os.Exit(1)
		}
		slog.Info("artifact archive enabled", "bucket", cfg.Minio.Bucket)
	}

	// Initialize handlers
	pdfHandler := handler.NewPDFHandler(store, pdfSvc, archiveSvc)
	audioHandler := handler.NewAudioHandler(store, pipeline, archiveSvc)
	sessionHandler := handler.NewSessionHandler(store)
	socketHandler := handler.NewSocketHandler(registry)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())     // Request ID for tracing
	router.Use(middleware.Recovery())      // Panic recovery
	router.Use(middleware.RequestLogger()) // Access logging
	router.Use(corsMiddleware())           // CORS

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Push channel; authenticated by the token query parameter, not rate
	// limited.
	router.GET("/ws", socketHandler.Connect)

	// HTTP API surface, rate limited per client
	api := router.Group("/api")
	api.Use(middleware.RateLimit(
		cfg.RateLimit.Requests,
		time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute,
	))

	// Session creation has no credential yet; everything else carries the
	// bearer session token.
	api.POST("/pdf", pdfHandler.Upload)

	protected := api.Group("/")
	protected.Use(middleware.Auth())
	{
		protected.GET("/pdf", pdfHandler.Download)
		protected.PUT("/pdf", pdfHandler.Update)
		protected.GET("/pdf/fields", pdfHandler.Fields)
		protected.GET("/pdf/text", pdfHandler.Text)
		protected.POST("/audio", audioHandler.Upload)
		protected.GET("/audio", audioHandler.Download)
		protected.PUT("/audio", audioHandler.Update)
		protected.GET("/transcription", sessionHandler.GetTranscription)
		protected.PUT("/transcription", sessionHandler.UpdateTranscription)
		protected.GET("/extracted-fields", sessionHandler.GetExtractedFields)
		protected.PUT("/extracted-fields", sessionHandler.UpdateExtractedFields)
		protected.GET("/status", sessionHandler.GetStatus)
	}

	// Create server. Read/write timeouts stay unset: the /ws connections are
	// long-lived and must not be cut by the server.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
