package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medscribe/medscribe-api/internal/domain"
	"github.com/medscribe/medscribe-api/internal/domain/transcription"
	"github.com/medscribe/medscribe-api/internal/service"
)

type WorkflowHandler struct {
	svc *service.WorkflowService
}

func NewWorkflowHandler(svc *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

// WorkflowStepResponse is the uniform shape of every workflow endpoint.
type WorkflowStepResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Transcription any    `json:"transcription"`
}

// GenerateNote handles POST /transcriptions/:id/workflow/generate-note.
func (h *WorkflowHandler) GenerateNote(c *gin.Context) {
	h.runStep(c, h.svc.GenerateNote)
}

// SuggestICD10 handles POST /transcriptions/:id/workflow/suggest-icd10.
func (h *WorkflowHandler) SuggestICD10(c *gin.Context) {
	h.runStep(c, h.svc.SuggestICD10)
}

// SuggestCPT handles POST /transcriptions/:id/workflow/suggest-cpt.
func (h *WorkflowHandler) SuggestCPT(c *gin.Context) {
	h.runStep(c, h.svc.SuggestCPT)
}

// GenerateCMS1500 handles POST /transcriptions/:id/workflow/generate-cms1500.
// The request body is an optional patient_info payload.
func (h *WorkflowHandler) GenerateCMS1500(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	patient, ok := bindOptionalPatientInfo(c)
	if !ok {
		return
	}

	caller := callerClaims(c)
	result, err := h.svc.GenerateCMS1500(c.Request.Context(), id, patient, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.respondStep(c, result)
}

// RunFull handles POST /transcriptions/:id/workflow/run-full.
func (h *WorkflowHandler) RunFull(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	patient, ok := bindOptionalPatientInfo(c)
	if !ok {
		return
	}

	caller := callerClaims(c)
	result, err := h.svc.RunFull(c.Request.Context(), id, patient, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.respondStep(c, result)
}

// stepFunc is the shared signature of the body-less workflow steps.
type stepFunc func(ctx context.Context, id uint, caller *domain.Claims, ip string) (*service.StepResult, error)

func (h *WorkflowHandler) runStep(c *gin.Context, step stepFunc) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	caller := callerClaims(c)
	result, err := step(c.Request.Context(), id, caller, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.respondStep(c, result)
}

func (h *WorkflowHandler) respondStep(c *gin.Context, result *service.StepResult) {
	caller := callerClaims(c)
	c.JSON(http.StatusOK, WorkflowStepResponse{
		Success:       result.Success,
		Message:       result.Message,
		Transcription: viewFor(caller.Role, result.Transcription),
	})
}

// bindOptionalPatientInfo decodes the request body when present. An empty
// body is valid: the collaborator fills placeholders.
func bindOptionalPatientInfo(c *gin.Context) (*transcription.PatientInfo, bool) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, true
	}

	var patient transcription.PatientInfo
	if !bindJSON(c, &patient) {
		return nil, false
	}
	return &patient, true
}
