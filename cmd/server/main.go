package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/medscribe/medscribe-api/internal/ai"
	"github.com/medscribe/medscribe-api/internal/config"
	v1 "github.com/medscribe/medscribe-api/internal/handler/v1"
	"github.com/medscribe/medscribe-api/internal/repository"
	"github.com/medscribe/medscribe-api/internal/service"
	"github.com/medscribe/medscribe-api/pkg/auth"
	"github.com/medscribe/medscribe-api/pkg/database"
	"github.com/medscribe/medscribe-api/pkg/logger"
	"github.com/medscribe/medscribe-api/pkg/metrics"
	"github.com/medscribe/medscribe-api/pkg/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		zlog.Fatal("initializing tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			zlog.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		zlog.Fatal("connecting to database", zap.Error(err))
	}
	if err := database.Migrate(db, zlog); err != nil {
		zlog.Fatal("migrating database", zap.Error(err))
	}

	collector := metrics.NewCollector("medscribe")
	jwtManager := auth.NewJWTManager(cfg.JWT)

	transcriptionRepo := repository.NewTranscriptionRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, collector, zlog)
	defer auditSvc.Shutdown()

	transcriber := ai.NewHuggingFaceClient(cfg.HuggingFace, cfg.Transcription.DefaultModel, zlog)
	assistant := ai.NewMedicalAIClient(cfg.MedicalAI, zlog)

	authSvc := service.NewAuthService(userRepo, jwtManager, auditSvc, zlog)
	transcriptionSvc := service.NewTranscriptionService(transcriptionRepo, transcriber, auditSvc, collector, cfg.Transcription, zlog)
	workflowSvc := service.NewWorkflowService(transcriptionRepo, assistant, auditSvc, collector, zlog)

	router := v1.NewRouter(v1.RouterDeps{
		Config:        cfg,
		Log:           zlog,
		JWTManager:    jwtManager,
		Collector:     collector,
		Auth:          v1.NewAuthHandler(authSvc),
		Transcription: v1.NewTranscriptionHandler(transcriptionSvc),
		Workflow:      v1.NewWorkflowHandler(workflowSvc),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zlog.Info("server listening",
			zap.String("address", srv.Addr),
			zap.String("environment", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
