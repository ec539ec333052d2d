package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medscribe/medscribe-api/internal/config"
	"github.com/medscribe/medscribe-api/pkg/auth"
	"github.com/medscribe/medscribe-api/pkg/metrics"
)

type RouterDeps struct {
	Config        *config.Config
	Log           *zap.Logger
	JWTManager    *auth.JWTManager
	Collector     *metrics.Collector
	Auth          *AuthHandler
	Transcription *TranscriptionHandler
	Workflow      *WorkflowHandler
}

// NewRouter wires middleware and routes. The path layout mirrors the
// public API contract; workflow endpoints hang off a record id.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(deps.Log))
	r.Use(MetricsMiddleware(deps.Collector))
	r.Use(CORSMiddleware(deps.Config.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": deps.Config.App.Version,
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", deps.Auth.Login)
		authGroup.POST("/refresh", deps.Auth.Refresh)
	}

	transcriptions := r.Group("/transcriptions")
	transcriptions.Use(AuthMiddleware(deps.JWTManager))
	{
		transcriptions.POST("/transcribe-chunk", deps.Transcription.TranscribeChunk)
		transcriptions.POST("/transcribe", deps.Transcription.Transcribe)
		transcriptions.GET("/", deps.Transcription.List)
		transcriptions.GET("/:id", deps.Transcription.Get)
		transcriptions.DELETE("/:id", deps.Transcription.Delete)

		workflow := transcriptions.Group("/:id/workflow")
		{
			workflow.POST("/generate-note", deps.Workflow.GenerateNote)
			workflow.POST("/suggest-icd10", deps.Workflow.SuggestICD10)
			workflow.POST("/suggest-cpt", deps.Workflow.SuggestCPT)
			workflow.POST("/generate-cms1500", deps.Workflow.GenerateCMS1500)
			workflow.POST("/run-full", deps.Workflow.RunFull)
		}
	}

	return r
}
