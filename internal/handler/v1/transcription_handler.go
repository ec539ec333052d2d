package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medscribe/medscribe-api/internal/domain/transcription"
	"github.com/medscribe/medscribe-api/internal/service"
)

type TranscriptionHandler struct {
	svc *service.TranscriptionService
}

func NewTranscriptionHandler(svc *service.TranscriptionService) *TranscriptionHandler {
	return &TranscriptionHandler{svc: svc}
}

type ListResponse struct {
	Total    int64 `json:"total"`
	Items    []any `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// TranscribeChunk handles POST /transcriptions/transcribe-chunk.
// Chunk failures come back as a success-shaped body with empty text so a
// live dictation stream keeps going.
func (h *TranscriptionHandler) TranscribeChunk(c *gin.Context) {
	upload, ok := readAudioUpload(c)
	if !ok {
		return
	}

	result := h.svc.TranscribeChunk(c.Request.Context(), upload)
	c.JSON(http.StatusOK, result)
}

// Transcribe handles POST /transcriptions/transcribe.
func (h *TranscriptionHandler) Transcribe(c *gin.Context) {
	upload, ok := readAudioUpload(c)
	if !ok {
		return
	}

	caller := callerClaims(c)
	record, err := h.svc.Transcribe(c.Request.Context(), upload, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, viewFor(caller.Role, record))
}

// List handles GET /transcriptions/ with skip/limit pagination.
func (h *TranscriptionHandler) List(c *gin.Context) {
	skip, ok := parseQueryInt(c, "skip", 0)
	if !ok {
		return
	}
	limit, ok := parseQueryInt(c, "limit", 10)
	if !ok {
		return
	}
	if skip < 0 {
		respondError(c, http.StatusBadRequest, "skip must not be negative")
		return
	}
	if limit < 1 || limit > 100 {
		respondError(c, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	page, err := h.svc.List(c.Request.Context(), &transcription.ListTranscriptionsQuery{
		Offset: skip,
		Limit:  limit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	caller := callerClaims(c)
	items := make([]any, 0, len(page.Records))
	for _, record := range page.Records {
		items = append(items, viewFor(caller.Role, record))
	}

	c.JSON(http.StatusOK, ListResponse{
		Total:    page.TotalCount,
		Items:    items,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

// Get handles GET /transcriptions/:id.
func (h *TranscriptionHandler) Get(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	caller := callerClaims(c)
	record, err := h.svc.Get(c.Request.Context(), id, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, viewFor(caller.Role, record))
}

// Delete handles DELETE /transcriptions/:id. Deleting an id that no longer
// exists reports not-found rather than silently succeeding.
func (h *TranscriptionHandler) Delete(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	caller := callerClaims(c)
	if err := h.svc.Delete(c.Request.Context(), id, caller, c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Transcription deleted successfully"})
}

// readAudioUpload pulls the "audio" multipart file into memory. Transport
// normalization ends here; everything past this point works on bytes.
func readAudioUpload(c *gin.Context) (*service.AudioUpload, bool) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		respondError(c, http.StatusBadRequest, "audio file is required")
		return nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "could not open uploaded file")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "could not read uploaded file")
		return nil, false
	}

	return &service.AudioUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, true
}
