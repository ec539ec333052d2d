package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/medscribe/medscribe-api/internal/ai"
	"github.com/medscribe/medscribe-api/internal/config"
	"github.com/medscribe/medscribe-api/internal/domain"
	"github.com/medscribe/medscribe-api/internal/domain/transcription"
	"github.com/medscribe/medscribe-api/pkg/metrics"
)

// SpeechTranscriber converts raw audio into text. Implementations must
// return ai.ErrModelLoading for retryable warm-up states.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

// AudioUpload is a fully read upload; transport details stay in the handler.
type AudioUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ChunkResult is the lenient per-chunk response shape: upstream failures
// degrade to an empty-text result instead of an error, since a dropped
// chunk should not break a live dictation session.
type ChunkResult struct {
	Text    string `json:"text"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type TranscriptionService struct {
	repo        transcription.Repository
	transcriber SpeechTranscriber
	auditSvc    *AuditService
	collector   *metrics.Collector
	cfg         config.TranscriptionConfig
	log         *zap.Logger
}

func NewTranscriptionService(
	repo transcription.Repository,
	transcriber SpeechTranscriber,
	auditSvc *AuditService,
	collector *metrics.Collector,
	cfg config.TranscriptionConfig,
	log *zap.Logger,
) *TranscriptionService {
	return &TranscriptionService{
		repo:        repo,
		transcriber: transcriber,
		auditSvc:    auditSvc,
		collector:   collector,
		cfg:         cfg,
		log:         log,
	}
}

// Transcribe validates the upload, transcribes it, and persists a new record.
// Size and format checks run before any upstream call is attempted.
func (s *TranscriptionService) Transcribe(ctx context.Context, upload *AudioUpload, caller *domain.Claims, ip string) (*transcription.Transcription, error) {
	contentType, err := transcription.ResolveContentType(upload.ContentType, upload.Filename, s.cfg.AllowedFormats)
	if err != nil {
		return nil, err
	}

	if len(upload.Data) == 0 {
		return nil, transcription.ErrEmptyFile
	}

	sizeMB := round2(float64(len(upload.Data)) / (1024 * 1024))
	if sizeMB > s.cfg.MaxFileSizeMB {
		return nil, fmt.Errorf("%w: %.2f MB, maximum is %.2f MB",
			transcription.ErrFileTooLarge, sizeMB, s.cfg.MaxFileSizeMB)
	}

	start := time.Now()
	text, err := s.transcriber.Transcribe(ctx, upload.Data, contentType)
	if err != nil {
		s.collector.TranscriptionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	elapsed := time.Since(start)

	t := &transcription.Transcription{
		Filename:              upload.Filename,
		FileSizeMB:            sizeMB,
		ContentType:           contentType,
		Text:                  text,
		ProcessingTimeSeconds: round2(elapsed.Seconds()),
		Model:                 s.cfg.DefaultModel,
		Provider:              s.cfg.Provider,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		s.log.Error("failed to persist transcription", zap.Error(err))
		return nil, fmt.Errorf("creating transcription: %w", err)
	}

	s.collector.TranscriptionsTotal.WithLabelValues("success").Inc()
	s.collector.TranscriptionDuration.Observe(elapsed.Seconds())

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     caller.Role,
		Action:       domain.ActionCreate,
		ResourceType: "transcription",
		ResourceID:   strconv.FormatUint(uint64(t.ID), 10),
		IPAddress:    ip,
	})

	s.log.Info("transcription created",
		zap.Uint("transcription_id", t.ID),
		zap.String("filename", t.Filename),
		zap.Float64("file_size_mb", t.FileSizeMB),
		zap.Duration("processing_time", elapsed),
	)

	return t, nil
}

// TranscribeChunk transcribes one chunk of a live stream. Each chunk is
// independent: no buffering, no ordering across chunks, and failures are
// reported in-band rather than as errors.
func (s *TranscriptionService) TranscribeChunk(ctx context.Context, upload *AudioUpload) *ChunkResult {
	if len(upload.Data) == 0 {
		return &ChunkResult{Text: "", Status: "empty"}
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "audio/webm"
	}

	text, err := s.transcriber.Transcribe(ctx, upload.Data, contentType)
	if err != nil {
		if errors.Is(err, ai.ErrModelLoading) {
			return &ChunkResult{Text: "", Status: "loading"}
		}
		s.log.Warn("chunk transcription failed", zap.Error(err))
		return &ChunkResult{Text: "", Status: "error", Message: err.Error()}
	}

	return &ChunkResult{Text: text, Status: "success"}
}

func (s *TranscriptionService) Get(ctx context.Context, id uint, caller *domain.Claims, ip string) (*transcription.Transcription, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     caller.Role,
		Action:       domain.ActionRead,
		ResourceType: "transcription",
		ResourceID:   strconv.FormatUint(uint64(id), 10),
		IPAddress:    ip,
	})

	return t, nil
}

func (s *TranscriptionService) List(ctx context.Context, q *transcription.ListTranscriptionsQuery) (*transcription.PagedTranscriptions, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 10
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.repo.List(ctx, q)
}

func (s *TranscriptionService) Delete(ctx context.Context, id uint, caller *domain.Claims, ip string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     caller.Role,
		Action:       domain.ActionDelete,
		ResourceType: "transcription",
		ResourceID:   strconv.FormatUint(uint64(id), 10),
		IPAddress:    ip,
	})

	s.log.Info("transcription deleted", zap.Uint("transcription_id", id))
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
