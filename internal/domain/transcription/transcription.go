package transcription

import (
	"time"
)

// WorkflowStatus labels the furthest completed workflow step. Steps only
// ever add output fields, so a record's status never regresses.
type WorkflowStatus string

const (
	StatusRaw            WorkflowStatus = "raw"
	StatusNoteGenerated  WorkflowStatus = "note_generated"
	StatusCodesSuggested WorkflowStatus = "codes_suggested"
	StatusFormGenerated  WorkflowStatus = "form_generated"
)

// ICD10Code is a suggested diagnosis code.
type ICD10Code struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CPTCode is a suggested procedure code with an optional modifier.
type CPTCode struct {
	Code        string  `json:"code"`
	Description string  `json:"description,omitempty"`
	Modifier    *string `json:"modifier"`
}

// CMS1500Form holds the generated claim-form data.
type CMS1500Form struct {
	PatientName      string        `json:"patient_name"`
	PatientDOB       string        `json:"patient_dob,omitempty"`
	PatientSex       string        `json:"patient_sex,omitempty"`
	PatientAddress   string        `json:"patient_address,omitempty"`
	PatientCityState string        `json:"patient_city_state_zip,omitempty"`
	PatientPhone     string        `json:"patient_phone,omitempty"`
	PatientID        string        `json:"patient_id,omitempty"`
	InsuredName      string        `json:"insured_name,omitempty"`
	InsuredID        string        `json:"insured_id,omitempty"`
	InsuranceGroup   string        `json:"insurance_group,omitempty"`
	DiagnosisCodes   []string      `json:"diagnosis_codes"`
	ServiceLines     []ServiceLine `json:"service_lines"`
	TotalCharge      string        `json:"total_charge,omitempty"`
	Notes            string        `json:"notes,omitempty"`
}

// ServiceLine is one billed procedure row on a CMS-1500 form.
type ServiceLine struct {
	CPTCode          string  `json:"cpt_code"`
	Modifier         *string `json:"modifier"`
	DiagnosisPointer string  `json:"diagnosis_pointer,omitempty"`
	Charge           string  `json:"charge,omitempty"`
	Units            int     `json:"units,omitempty"`
}

// PatientInfo carries optional demographic and insurance fields merged
// into the generated CMS-1500 form.
type PatientInfo struct {
	Name           *string `json:"name"`
	DOB            *string `json:"dob"`
	Sex            *string `json:"sex"`
	Address        *string `json:"address"`
	CityStateZip   *string `json:"city_state_zip"`
	Phone          *string `json:"phone"`
	ID             *string `json:"id"`
	InsuredName    *string `json:"insured_name"`
	InsuredID      *string `json:"insured_id"`
	InsuranceGroup *string `json:"insurance_group"`
}

// Transcription is the aggregate: upload metadata and transcribed text are
// written once at creation; the four workflow outputs are added by their
// steps and never unset.
type Transcription struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Filename    string  `gorm:"column:filename;type:varchar(255);not null"`
	FileSizeMB  float64 `gorm:"column:file_size_mb;not null"`
	ContentType string  `gorm:"column:content_type;type:varchar(100);not null"`

	Text                  string  `gorm:"column:text;type:text;not null"`
	ProcessingTimeSeconds float64 `gorm:"column:processing_time_seconds"`
	Model                 string  `gorm:"column:model;type:varchar(200)"`
	Provider              string  `gorm:"column:provider;type:varchar(50)"`

	MedicalNote *string      `gorm:"column:medical_note;type:text"`
	ICD10Codes  []ICD10Code  `gorm:"column:icd10_codes;serializer:json"`
	CPTCodes    []CPTCode    `gorm:"column:cpt_codes;serializer:json"`
	CMS1500Form *CMS1500Form `gorm:"column:cms1500_form;serializer:json"`

	WorkflowStatus WorkflowStatus `gorm:"column:workflow_status;type:varchar(30);not null;index"`
}

func (Transcription) TableName() string {
	return "clinical.transcriptions"
}

// HasNote reports whether the note-generation step has run.
func (t *Transcription) HasNote() bool {
	return t.MedicalNote != nil && *t.MedicalNote != ""
}

// HasCodes reports whether both coding sub-steps have produced output.
func (t *Transcription) HasCodes() bool {
	return len(t.ICD10Codes) > 0 && len(t.CPTCodes) > 0
}

// DeriveStatus computes the workflow status from field presence. Because
// outputs are additive, the derived status is monotonic over a record's life.
func (t *Transcription) DeriveStatus() WorkflowStatus {
	switch {
	case t.CMS1500Form != nil:
		return StatusFormGenerated
	case t.HasCodes():
		return StatusCodesSuggested
	case t.HasNote():
		return StatusNoteGenerated
	default:
		return StatusRaw
	}
}

type CreateTranscriptionCommand struct {
	Filename              string
	FileSizeMB            float64
	ContentType           string
	Text                  string
	ProcessingTimeSeconds float64
	Model                 string
	Provider              string
}

type ListTranscriptionsQuery struct {
	Offset int
	Limit  int
}

type PagedTranscriptions struct {
	Records    []*Transcription
	TotalCount int64
	Page       int
	PageSize   int
}

// FullWorkflowResult is the combined output of the single-call pipeline;
// it is persisted atomically or not at all.
type FullWorkflowResult struct {
	MedicalNote string
	ICD10Codes  []ICD10Code
	CPTCodes    []CPTCode
	CMS1500Form *CMS1500Form
}
