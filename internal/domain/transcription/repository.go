package transcription

import (
	"context"
)

// Repository is the persistence contract for transcription records. All
// update methods return the refreshed record, or ErrTranscriptionNotFound
// when the id does not exist (absence is never reported as a zero value).
type Repository interface {
	Create(ctx context.Context, t *Transcription) error
	GetByID(ctx context.Context, id uint) (*Transcription, error)
	List(ctx context.Context, q *ListTranscriptionsQuery) (*PagedTranscriptions, error)
	Delete(ctx context.Context, id uint) error

	UpdateMedicalNote(ctx context.Context, id uint, note string) (*Transcription, error)
	UpdateICD10Codes(ctx context.Context, id uint, codes []ICD10Code) (*Transcription, error)
	UpdateCPTCodes(ctx context.Context, id uint, codes []CPTCode) (*Transcription, error)
	UpdateCMS1500Form(ctx context.Context, id uint, form *CMS1500Form) (*Transcription, error)
	UpdateFullWorkflow(ctx context.Context, id uint, result *FullWorkflowResult) (*Transcription, error)
}
