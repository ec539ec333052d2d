package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medscribe/medscribe-api/internal/domain"
	"github.com/medscribe/medscribe-api/internal/domain/transcription"
	"github.com/medscribe/medscribe-api/pkg/metrics"
)

// Prometheus collectors register globally, so the package shares one.
var testCollector = metrics.NewCollector("service_test")

func testClaims() *domain.Claims {
	return &domain.Claims{
		UserID: uuid.New(),
		Email:  "dr.smith@clinic.test",
		Role:   domain.RoleAdmin,
	}
}

// memoryRepo is an in-memory transcription.Repository mirroring the
// database adapter's contract: updates return the refreshed record and
// recompute the workflow status.
type memoryRepo struct {
	mu     sync.Mutex
	nextID uint
	items  map[uint]*transcription.Transcription
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, items: make(map[uint]*transcription.Transcription)}
}

func (r *memoryRepo) Create(_ context.Context, t *transcription.Transcription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	t.WorkflowStatus = t.DeriveStatus()
	cp := *t
	r.items[t.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uint) (*transcription.Transcription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, transcription.ErrTranscriptionNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memoryRepo) List(_ context.Context, q *transcription.ListTranscriptionsQuery) (*transcription.PagedTranscriptions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*transcription.Transcription, 0, len(r.items))
	for _, t := range r.items {
		cp := *t
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	records := []*transcription.Transcription{}
	for i := q.Offset; i < len(all) && len(records) < q.Limit; i++ {
		records = append(records, all[i])
	}

	return &transcription.PagedTranscriptions{
		Records:    records,
		TotalCount: int64(len(all)),
		Page:       (q.Offset / q.Limit) + 1,
		PageSize:   q.Limit,
	}, nil
}

func (r *memoryRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return transcription.ErrTranscriptionNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) UpdateMedicalNote(_ context.Context, id uint, note string) (*transcription.Transcription, error) {
	return r.apply(id, func(t *transcription.Transcription) {
		t.MedicalNote = &note
	})
}

func (r *memoryRepo) UpdateICD10Codes(_ context.Context, id uint, codes []transcription.ICD10Code) (*transcription.Transcription, error) {
	return r.apply(id, func(t *transcription.Transcription) {
		t.ICD10Codes = codes
	})
}

func (r *memoryRepo) UpdateCPTCodes(_ context.Context, id uint, codes []transcription.CPTCode) (*transcription.Transcription, error) {
	return r.apply(id, func(t *transcription.Transcription) {
		t.CPTCodes = codes
	})
}

func (r *memoryRepo) UpdateCMS1500Form(_ context.Context, id uint, form *transcription.CMS1500Form) (*transcription.Transcription, error) {
	return r.apply(id, func(t *transcription.Transcription) {
		t.CMS1500Form = form
	})
}

func (r *memoryRepo) UpdateFullWorkflow(_ context.Context, id uint, result *transcription.FullWorkflowResult) (*transcription.Transcription, error) {
	return r.apply(id, func(t *transcription.Transcription) {
		t.MedicalNote = &result.MedicalNote
		t.ICD10Codes = result.ICD10Codes
		t.CPTCodes = result.CPTCodes
		t.CMS1500Form = result.CMS1500Form
	})
}

func (r *memoryRepo) apply(id uint, mutate func(*transcription.Transcription)) (*transcription.Transcription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, transcription.ErrTranscriptionNotFound
	}
	mutate(t)
	t.WorkflowStatus = t.DeriveStatus()
	cp := *t
	return &cp, nil
}

type memoryAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (r *memoryAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func newTestAuditService() *AuditService {
	return NewAuditService(&memoryAuditRepo{}, testCollector, zap.NewNop())
}

// stubTranscriber returns a fixed transcript, or err when set. calls counts
// upstream invocations so guard ordering can be asserted.
type stubTranscriber struct {
	text  string
	err   error
	calls int
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

// stubAssistant returns canned outputs per step, or err when set.
type stubAssistant struct {
	note   string
	icd10  []transcription.ICD10Code
	cpt    []transcription.CPTCode
	form   *transcription.CMS1500Form
	full   *transcription.FullWorkflowResult
	err    error
	calls  int
	gotten *transcription.PatientInfo
}

func (s *stubAssistant) GenerateNote(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.note, nil
}

func (s *stubAssistant) SuggestICD10(_ context.Context, _, _ string) ([]transcription.ICD10Code, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.icd10, nil
}

func (s *stubAssistant) SuggestCPT(_ context.Context, _, _ string) ([]transcription.CPTCode, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.cpt, nil
}

func (s *stubAssistant) GenerateCMS1500(_ context.Context, _ string, _ []transcription.ICD10Code, _ []transcription.CPTCode, patient *transcription.PatientInfo) (*transcription.CMS1500Form, error) {
	s.calls++
	s.gotten = patient
	if s.err != nil {
		return nil, s.err
	}
	return s.form, nil
}

func (s *stubAssistant) RunFullWorkflow(_ context.Context, _ string, patient *transcription.PatientInfo) (*transcription.FullWorkflowResult, error) {
	s.calls++
	s.gotten = patient
	if s.err != nil {
		return nil, s.err
	}
	return s.full, nil
}
