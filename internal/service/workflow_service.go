package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/medscribe/medscribe-api/internal/domain"
	"github.com/medscribe/medscribe-api/internal/domain/transcription"
	"github.com/medscribe/medscribe-api/pkg/metrics"
)

// MedicalAssistant is the AI collaborator behind the four workflow steps.
type MedicalAssistant interface {
	GenerateNote(ctx context.Context, text string) (string, error)
	SuggestICD10(ctx context.Context, note, text string) ([]transcription.ICD10Code, error)
	SuggestCPT(ctx context.Context, note, text string) ([]transcription.CPTCode, error)
	GenerateCMS1500(ctx context.Context, note string, icd10 []transcription.ICD10Code, cpt []transcription.CPTCode, patient *transcription.PatientInfo) (*transcription.CMS1500Form, error)
	RunFullWorkflow(ctx context.Context, text string, patient *transcription.PatientInfo) (*transcription.FullWorkflowResult, error)
}

// StepResult is the uniform outcome of every workflow operation. The
// record is unfiltered here; the handler projects it per caller role.
type StepResult struct {
	Success       bool
	Message       string
	Transcription *transcription.Transcription
}

// WorkflowService walks a transcription through the documentation steps:
// raw text, medical note, diagnosis and procedure codes, claim form. Each
// step loads the record, checks its guard, calls the assistant, persists.
// A per-record mutex serializes concurrent steps against the same id so
// two callers cannot interleave last-write-wins updates.
type WorkflowService struct {
	repo      transcription.Repository
	assistant MedicalAssistant
	auditSvc  *AuditService
	collector *metrics.Collector
	log       *zap.Logger

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewWorkflowService(
	repo transcription.Repository,
	assistant MedicalAssistant,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
) *WorkflowService {
	return &WorkflowService{
		repo:      repo,
		assistant: assistant,
		auditSvc:  auditSvc,
		collector: collector,
		log:       log,
		locks:     make(map[uint]*sync.Mutex),
	}
}

func (s *WorkflowService) GenerateNote(ctx context.Context, id uint, caller *domain.Claims, ip string) (*StepResult, error) {
	unlock := s.lockRecord(id)
	defer unlock()

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.stepFailed("generate-note", err)
	}

	hadDownstream := t.HasCodes() || t.CMS1500Form != nil

	note, err := s.assistant.GenerateNote(ctx, t.Text)
	if err != nil {
		return nil, s.stepFailed("generate-note", err)
	}

	updated, err := s.repo.UpdateMedicalNote(ctx, id, note)
	if err != nil {
		return nil, s.stepFailed("generate-note", err)
	}

	message := "Medical note generated successfully"
	if hadDownstream {
		// Regenerating the note does not invalidate previously suggested
		// codes or a generated form; warn the caller they may be stale.
		message += "; previously generated codes and form may be stale"
	}

	s.stepSucceeded(ctx, "generate-note", id, caller, ip)
	return &StepResult{Success: true, Message: message, Transcription: updated}, nil
}

func (s *WorkflowService) SuggestICD10(ctx context.Context, id uint, caller *domain.Claims, ip string) (*StepResult, error) {
	unlock := s.lockRecord(id)
	defer unlock()

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.stepFailed("suggest-icd10", err)
	}

	if !t.HasNote() {
		return nil, s.stepFailed("suggest-icd10", transcription.ErrNoteRequired)
	}

	codes, err := s.assistant.SuggestICD10(ctx, *t.MedicalNote, t.Text)
	if err != nil {
		return nil, s.stepFailed("suggest-icd10", err)
	}

	updated, err := s.repo.UpdateICD10Codes(ctx, id, codes)
	if err != nil {
		return nil, s.stepFailed("suggest-icd10", err)
	}

	s.stepSucceeded(ctx, "suggest-icd10", id, caller, ip)
	return &StepResult{Success: true, Message: "ICD-10 codes suggested successfully", Transcription: updated}, nil
}

func (s *WorkflowService) SuggestCPT(ctx context.Context, id uint, caller *domain.Claims, ip string) (*StepResult, error) {
	unlock := s.lockRecord(id)
	defer unlock()

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.stepFailed("suggest-cpt", err)
	}

	if !t.HasNote() {
		return nil, s.stepFailed("suggest-cpt", transcription.ErrNoteRequired)
	}

	codes, err := s.assistant.SuggestCPT(ctx, *t.MedicalNote, t.Text)
	if err != nil {
		return nil, s.stepFailed("suggest-cpt", err)
	}

	updated, err := s.repo.UpdateCPTCodes(ctx, id, codes)
	if err != nil {
		return nil, s.stepFailed("suggest-cpt", err)
	}

	s.stepSucceeded(ctx, "suggest-cpt", id, caller, ip)
	return &StepResult{Success: true, Message: "CPT codes suggested successfully", Transcription: updated}, nil
}

func (s *WorkflowService) GenerateCMS1500(ctx context.Context, id uint, patient *transcription.PatientInfo, caller *domain.Claims, ip string) (*StepResult, error) {
	unlock := s.lockRecord(id)
	defer unlock()

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.stepFailed("generate-cms1500", err)
	}

	if !t.HasNote() {
		return nil, s.stepFailed("generate-cms1500", transcription.ErrNoteRequired)
	}

	var missing []string
	if len(t.ICD10Codes) == 0 {
		missing = append(missing, "ICD-10 codes")
	}
	if len(t.CPTCodes) == 0 {
		missing = append(missing, "CPT codes")
	}
	if len(missing) > 0 {
		err := fmt.Errorf("%w: missing %s", transcription.ErrCodesRequired, strings.Join(missing, " and "))
		return nil, s.stepFailed("generate-cms1500", err)
	}

	form, err := s.assistant.GenerateCMS1500(ctx, *t.MedicalNote, t.ICD10Codes, t.CPTCodes, patient)
	if err != nil {
		return nil, s.stepFailed("generate-cms1500", err)
	}

	updated, err := s.repo.UpdateCMS1500Form(ctx, id, form)
	if err != nil {
		return nil, s.stepFailed("generate-cms1500", err)
	}

	s.stepSucceeded(ctx, "generate-cms1500", id, caller, ip)
	return &StepResult{Success: true, Message: "CMS-1500 form generated successfully", Transcription: updated}, nil
}

// RunFull executes the assistant's combined pipeline in a single upstream
// call and persists all four outputs atomically. There are no intermediate
// guards: the pipeline starts from the raw text.
func (s *WorkflowService) RunFull(ctx context.Context, id uint, patient *transcription.PatientInfo, caller *domain.Claims, ip string) (*StepResult, error) {
	unlock := s.lockRecord(id)
	defer unlock()

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.stepFailed("run-full", err)
	}

	result, err := s.assistant.RunFullWorkflow(ctx, t.Text, patient)
	if err != nil {
		return nil, s.stepFailed("run-full", err)
	}

	updated, err := s.repo.UpdateFullWorkflow(ctx, id, result)
	if err != nil {
		return nil, s.stepFailed("run-full", err)
	}

	s.stepSucceeded(ctx, "run-full", id, caller, ip)
	return &StepResult{Success: true, Message: "Full workflow completed successfully", Transcription: updated}, nil
}

func (s *WorkflowService) lockRecord(id uint) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *WorkflowService) stepFailed(step string, err error) error {
	s.collector.WorkflowStepsTotal.WithLabelValues(step, "error").Inc()
	return err
}

func (s *WorkflowService) stepSucceeded(ctx context.Context, step string, id uint, caller *domain.Claims, ip string) {
	s.collector.WorkflowStepsTotal.WithLabelValues(step, "success").Inc()

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     caller.Role,
		Action:       domain.ActionWorkflow,
		ResourceType: "transcription",
		ResourceID:   strconv.FormatUint(uint64(id), 10),
		IPAddress:    ip,
		Detail:       fmt.Sprintf(`{"step":%q}`, step),
	})

	s.log.Info("workflow step completed",
		zap.String("step", step),
		zap.Uint("transcription_id", id),
	)
}
