package v1

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscribe/medscribe-api/internal/domain"
	"github.com/medscribe/medscribe-api/internal/domain/transcription"
)

func sampleRecord() *transcription.Transcription {
	note := "S: headache. O: stable. A: tension headache. P: ibuprofen."
	return &transcription.Transcription{
		ID:          7,
		Filename:    "visit.mp3",
		FileSizeMB:  1.2,
		ContentType: "audio/mpeg",
		Text:        "Patient reports headache.",
		MedicalNote: &note,
		ICD10Codes:  []transcription.ICD10Code{{Code: "R51.9", Description: "Headache, unspecified"}},
		CPTCodes:    []transcription.CPTCode{{Code: "99213"}},
		CMS1500Form: &transcription.CMS1500Form{
			PatientName:    "Jane Doe",
			DiagnosisCodes: []string{"R51.9"},
		},
		WorkflowStatus: transcription.StatusFormGenerated,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func jsonKeys(t *testing.T, v any) map[string]json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	keys := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(raw, &keys))
	return keys
}

func TestViewForAdmin(t *testing.T) {
	keys := jsonKeys(t, viewFor(domain.RoleAdmin, sampleRecord()))

	assert.Contains(t, keys, "icd10_codes")
	assert.Contains(t, keys, "cpt_codes")
	assert.Contains(t, keys, "cms1500_form")
	assert.Contains(t, keys, "medical_note")
	assert.Contains(t, keys, "text")
}

func TestViewForClinicianOmitsCodingFields(t *testing.T) {
	keys := jsonKeys(t, viewFor(domain.RoleClinician, sampleRecord()))

	// The keys must be absent entirely, not present as null.
	assert.NotContains(t, keys, "icd10_codes")
	assert.NotContains(t, keys, "cpt_codes")
	assert.NotContains(t, keys, "cms1500_form")

	assert.Contains(t, keys, "medical_note")
	assert.Contains(t, keys, "text")
	assert.Contains(t, keys, "workflow_status")
}
