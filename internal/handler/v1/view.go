package v1

import (
	"time"

	"github.com/medscribe/medscribe-api/internal/domain"
	"github.com/medscribe/medscribe-api/internal/domain/transcription"
)

// The two response shapes are fixed at the type level: the clinician view
// has no coding or billing fields at all, so no code path can leak them.
// Role selection happens exactly once, in viewFor.

// AdminTranscriptionView is the unfiltered projection.
type AdminTranscriptionView struct {
	ID                    uint                         `json:"id"`
	Filename              string                       `json:"filename"`
	FileSizeMB            float64                      `json:"file_size_mb"`
	ContentType           string                       `json:"content_type"`
	Text                  string                       `json:"text"`
	ProcessingTimeSeconds float64                      `json:"processing_time_seconds"`
	Model                 string                       `json:"model"`
	Provider              string                       `json:"provider"`
	MedicalNote           *string                      `json:"medical_note"`
	ICD10Codes            []transcription.ICD10Code    `json:"icd10_codes"`
	CPTCodes              []transcription.CPTCode      `json:"cpt_codes"`
	CMS1500Form           *transcription.CMS1500Form   `json:"cms1500_form"`
	WorkflowStatus        transcription.WorkflowStatus `json:"workflow_status"`
	CreatedAt             time.Time                    `json:"created_at"`
	UpdatedAt             time.Time                    `json:"updated_at"`
}

// ClinicianTranscriptionView omits diagnosis/procedure codes and the claim
// form. This is a confidentiality boundary, not a display preference.
type ClinicianTranscriptionView struct {
	ID                    uint                         `json:"id"`
	Filename              string                       `json:"filename"`
	FileSizeMB            float64                      `json:"file_size_mb"`
	ContentType           string                       `json:"content_type"`
	Text                  string                       `json:"text"`
	ProcessingTimeSeconds float64                      `json:"processing_time_seconds"`
	Model                 string                       `json:"model"`
	Provider              string                       `json:"provider"`
	MedicalNote           *string                      `json:"medical_note"`
	WorkflowStatus        transcription.WorkflowStatus `json:"workflow_status"`
	CreatedAt             time.Time                    `json:"created_at"`
	UpdatedAt             time.Time                    `json:"updated_at"`
}

// viewFor projects a record into the shape its viewer may see. Unknown
// roles never reach this point; the auth middleware rejects them.
func viewFor(role domain.Role, t *transcription.Transcription) any {
	if role == domain.RoleClinician {
		return ClinicianTranscriptionView{
			ID:                    t.ID,
			Filename:              t.Filename,
			FileSizeMB:            t.FileSizeMB,
			ContentType:           t.ContentType,
			Text:                  t.Text,
			ProcessingTimeSeconds: t.ProcessingTimeSeconds,
			Model:                 t.Model,
			Provider:              t.Provider,
			MedicalNote:           t.MedicalNote,
			WorkflowStatus:        t.WorkflowStatus,
			CreatedAt:             t.CreatedAt,
			UpdatedAt:             t.UpdatedAt,
		}
	}

	return AdminTranscriptionView{
		ID:                    t.ID,
		Filename:              t.Filename,
		FileSizeMB:            t.FileSizeMB,
		ContentType:           t.ContentType,
		Text:                  t.Text,
		ProcessingTimeSeconds: t.ProcessingTimeSeconds,
		Model:                 t.Model,
		Provider:              t.Provider,
		MedicalNote:           t.MedicalNote,
		ICD10Codes:            t.ICD10Codes,
		CPTCodes:              t.CPTCodes,
		CMS1500Form:           t.CMS1500Form,
		WorkflowStatus:        t.WorkflowStatus,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}
