package transcription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestDeriveStatus(t *testing.T) {
	t.Run("raw record", func(t *testing.T) {
		rec := &Transcription{Text: "patient reports headache"}
		assert.Equal(t, StatusRaw, rec.DeriveStatus())
	})

	t.Run("note only", func(t *testing.T) {
		rec := &Transcription{MedicalNote: strPtr("SOAP note")}
		assert.Equal(t, StatusNoteGenerated, rec.DeriveStatus())
	})

	t.Run("empty note does not count", func(t *testing.T) {
		rec := &Transcription{MedicalNote: strPtr("")}
		assert.Equal(t, StatusRaw, rec.DeriveStatus())
	})

	t.Run("one code family is not enough", func(t *testing.T) {
		rec := &Transcription{
			MedicalNote: strPtr("SOAP note"),
			ICD10Codes:  []ICD10Code{{Code: "R51", Description: "Headache"}},
		}
		assert.Equal(t, StatusNoteGenerated, rec.DeriveStatus())
	})

	t.Run("both code families advance the status", func(t *testing.T) {
		rec := &Transcription{
			MedicalNote: strPtr("SOAP note"),
			ICD10Codes:  []ICD10Code{{Code: "R51", Description: "Headache"}},
			CPTCodes:    []CPTCode{{Code: "99213"}},
		}
		assert.Equal(t, StatusCodesSuggested, rec.DeriveStatus())
	})

	t.Run("form wins over everything", func(t *testing.T) {
		rec := &Transcription{
			MedicalNote: strPtr("SOAP note"),
			ICD10Codes:  []ICD10Code{{Code: "R51"}},
			CPTCodes:    []CPTCode{{Code: "99213"}},
			CMS1500Form: &CMS1500Form{PatientName: "Jane Doe"},
		}
		assert.Equal(t, StatusFormGenerated, rec.DeriveStatus())
	})
}

func TestHasCodes(t *testing.T) {
	rec := &Transcription{}
	assert.False(t, rec.HasCodes())

	rec.ICD10Codes = []ICD10Code{{Code: "R51"}}
	assert.False(t, rec.HasCodes())

	rec.CPTCodes = []CPTCode{{Code: "99213"}}
	assert.True(t, rec.HasCodes())
}
