package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medscribe/medscribe-api/internal/ai"
	"github.com/medscribe/medscribe-api/internal/config"
	"github.com/medscribe/medscribe-api/internal/domain/transcription"
)

func testTranscriptionConfig() config.TranscriptionConfig {
	return config.TranscriptionConfig{
		MaxFileSizeMB: 25,
		AllowedFormats: []string{
			"audio/mpeg", "audio/wav", "audio/webm", "audio/ogg",
		},
		DefaultModel: "openai/whisper-large-v3",
		Provider:     "huggingface",
	}
}

func newTestTranscriptionService(repo transcription.Repository, transcriber SpeechTranscriber) *TranscriptionService {
	return NewTranscriptionService(repo, transcriber, newTestAuditService(), testCollector, testTranscriptionConfig(), zap.NewNop())
}

func TestTranscribeHappyPath(t *testing.T) {
	repo := newMemoryRepo()
	stub := &stubTranscriber{text: "Patient reports persistent headache for three days."}
	svc := newTestTranscriptionService(repo, stub)

	rec, err := svc.Transcribe(context.Background(), &AudioUpload{
		Filename:    "visit-001.mp3",
		ContentType: "audio/mpeg",
		Data:        bytes.Repeat([]byte{0x01}, 2048),
	}, testClaims(), "10.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, uint(1), rec.ID)
	assert.Equal(t, "Patient reports persistent headache for three days.", rec.Text)
	assert.Equal(t, "visit-001.mp3", rec.Filename)
	assert.Equal(t, "audio/mpeg", rec.ContentType)
	assert.Equal(t, "openai/whisper-large-v3", rec.Model)
	assert.Equal(t, "huggingface", rec.Provider)
	assert.Equal(t, transcription.StatusRaw, rec.WorkflowStatus)
	assert.Equal(t, 1, stub.calls)
}

func TestTranscribeRejectsBeforeUpstreamCall(t *testing.T) {
	repo := newMemoryRepo()
	stub := &stubTranscriber{text: "should never run"}
	svc := newTestTranscriptionService(repo, stub)

	t.Run("unsupported format", func(t *testing.T) {
		_, err := svc.Transcribe(context.Background(), &AudioUpload{
			Filename:    "visit.mp4",
			ContentType: "video/mp4",
			Data:        []byte{0x01},
		}, testClaims(), "10.0.0.1")
		assert.ErrorIs(t, err, transcription.ErrUnsupportedFormat)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := svc.Transcribe(context.Background(), &AudioUpload{
			Filename:    "visit.mp3",
			ContentType: "audio/mpeg",
		}, testClaims(), "10.0.0.1")
		assert.ErrorIs(t, err, transcription.ErrEmptyFile)
	})

	t.Run("oversize file", func(t *testing.T) {
		_, err := svc.Transcribe(context.Background(), &AudioUpload{
			Filename:    "visit.mp3",
			ContentType: "audio/mpeg",
			Data:        bytes.Repeat([]byte{0x01}, 26*1024*1024),
		}, testClaims(), "10.0.0.1")
		assert.ErrorIs(t, err, transcription.ErrFileTooLarge)
	})

	assert.Zero(t, stub.calls, "validation failures must not reach the transcriber")
}

func TestTranscribeUpstreamFailureNotPersisted(t *testing.T) {
	repo := newMemoryRepo()
	stub := &stubTranscriber{err: &ai.UpstreamError{Provider: "huggingface", StatusCode: 500, Message: "boom"}}
	svc := newTestTranscriptionService(repo, stub)

	_, err := svc.Transcribe(context.Background(), &AudioUpload{
		Filename:    "visit.mp3",
		ContentType: "audio/mpeg",
		Data:        []byte{0x01, 0x02},
	}, testClaims(), "10.0.0.1")

	var upstream *ai.UpstreamError
	require.True(t, errors.As(err, &upstream))

	page, err := svc.List(context.Background(), &transcription.ListTranscriptionsQuery{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
}

func TestTranscribeChunk(t *testing.T) {
	t.Run("empty chunk short-circuits", func(t *testing.T) {
		stub := &stubTranscriber{text: "unused"}
		svc := newTestTranscriptionService(newMemoryRepo(), stub)

		result := svc.TranscribeChunk(context.Background(), &AudioUpload{Filename: "chunk.webm"})
		assert.Equal(t, &ChunkResult{Text: "", Status: "empty"}, result)
		assert.Zero(t, stub.calls)
	})

	t.Run("model loading reported in-band", func(t *testing.T) {
		stub := &stubTranscriber{err: ai.ErrModelLoading}
		svc := newTestTranscriptionService(newMemoryRepo(), stub)

		result := svc.TranscribeChunk(context.Background(), &AudioUpload{Data: []byte{0x01}})
		assert.Equal(t, "loading", result.Status)
		assert.Empty(t, result.Text)
	})

	t.Run("upstream failure degrades to error status", func(t *testing.T) {
		stub := &stubTranscriber{err: &ai.UpstreamError{Provider: "huggingface", StatusCode: 502, Message: "bad gateway"}}
		svc := newTestTranscriptionService(newMemoryRepo(), stub)

		result := svc.TranscribeChunk(context.Background(), &AudioUpload{Data: []byte{0x01}})
		assert.Equal(t, "error", result.Status)
		assert.Empty(t, result.Text)
		assert.NotEmpty(t, result.Message)
	})

	t.Run("successful chunk", func(t *testing.T) {
		stub := &stubTranscriber{text: "and the patient denies fever"}
		svc := newTestTranscriptionService(newMemoryRepo(), stub)

		result := svc.TranscribeChunk(context.Background(), &AudioUpload{Data: []byte{0x01}})
		assert.Equal(t, &ChunkResult{Text: "and the patient denies fever", Status: "success"}, result)
	})

	t.Run("chunks are not persisted", func(t *testing.T) {
		repo := newMemoryRepo()
		svc := newTestTranscriptionService(repo, &stubTranscriber{text: "hello"})

		svc.TranscribeChunk(context.Background(), &AudioUpload{Data: []byte{0x01}})

		page, err := svc.List(context.Background(), &transcription.ListTranscriptionsQuery{Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, page.TotalCount)
	})
}

func TestListPagination(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestTranscriptionService(repo, &stubTranscriber{text: "x"})

	for i := 0; i < 15; i++ {
		require.NoError(t, repo.Create(context.Background(), &transcription.Transcription{
			Filename: "visit.mp3",
			Text:     "x",
		}))
	}

	page, err := svc.List(context.Background(), &transcription.ListTranscriptionsQuery{Offset: 0, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Records, 10)
	assert.Equal(t, int64(15), page.TotalCount)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)

	page, err = svc.List(context.Background(), &transcription.ListTranscriptionsQuery{Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Records, 5)
	assert.Equal(t, 2, page.Page)

	// Newest first.
	assert.Equal(t, uint(5), page.Records[0].ID)
}

func TestListClampsBadBounds(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestTranscriptionService(repo, &stubTranscriber{text: "x"})

	require.NoError(t, repo.Create(context.Background(), &transcription.Transcription{Text: "x"}))

	page, err := svc.List(context.Background(), &transcription.ListTranscriptionsQuery{Offset: -5, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, 1, page.Page)
}

func TestDelete(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestTranscriptionService(repo, &stubTranscriber{text: "x"})

	require.NoError(t, repo.Create(context.Background(), &transcription.Transcription{Text: "x"}))

	require.NoError(t, svc.Delete(context.Background(), 1, testClaims(), "10.0.0.1"))

	// Second delete reports absence instead of silently succeeding.
	err := svc.Delete(context.Background(), 1, testClaims(), "10.0.0.1")
	assert.ErrorIs(t, err, transcription.ErrTranscriptionNotFound)
}

func TestGetMissingRecord(t *testing.T) {
	svc := newTestTranscriptionService(newMemoryRepo(), &stubTranscriber{})

	_, err := svc.Get(context.Background(), 42, testClaims(), "10.0.0.1")
	assert.ErrorIs(t, err, transcription.ErrTranscriptionNotFound)
}
