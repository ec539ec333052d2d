package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medscribe/medscribe-api/internal/config"
	"github.com/medscribe/medscribe-api/internal/domain/transcription"
)

// chatServer answers /chat/completions with the given assistant content.
func chatServer(t *testing.T, content string) (*httptest.Server, *chatRequest) {
	t.Helper()
	captured := &chatRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func newMedicalClient(serverURL string) *MedicalAIClient {
	return NewMedicalAIClient(config.MedicalAIConfig{
		APIURL:  serverURL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestGenerateNote(t *testing.T) {
	server, captured := chatServer(t, "  S: headache. O: stable. A: tension headache. P: ibuprofen.  ")
	client := newMedicalClient(server.URL)

	note, err := client.GenerateNote(context.Background(), "Patient reports headache.")
	require.NoError(t, err)
	assert.Equal(t, "S: headache. O: stable. A: tension headache. P: ibuprofen.", note)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[1].Content, "Patient reports headache.")
}

func TestSuggestICD10ParsesFencedJSON(t *testing.T) {
	server, _ := chatServer(t, "```json\n[{\"code\":\"R51.9\",\"description\":\"Headache, unspecified\"}]\n```")
	client := newMedicalClient(server.URL)

	codes, err := client.SuggestICD10(context.Background(), "note", "transcript")
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "R51.9", codes[0].Code)
	assert.Equal(t, "Headache, unspecified", codes[0].Description)
}

func TestSuggestCPT(t *testing.T) {
	server, _ := chatServer(t, `[{"code":"99213","description":"Office visit","modifier":null}]`)
	client := newMedicalClient(server.URL)

	codes, err := client.SuggestCPT(context.Background(), "note", "transcript")
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "99213", codes[0].Code)
	assert.Nil(t, codes[0].Modifier)
}

func TestSuggestICD10MalformedJSON(t *testing.T) {
	server, _ := chatServer(t, "Sorry, I cannot help with that.")
	client := newMedicalClient(server.URL)

	_, err := client.SuggestICD10(context.Background(), "note", "transcript")
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Contains(t, upstream.Message, "malformed ICD-10 response")
}

func TestGenerateCMS1500IncludesPatientInfo(t *testing.T) {
	server, captured := chatServer(t, `{"patient_name":"Jane Doe","diagnosis_codes":["R51.9"],"service_lines":[{"cpt_code":"99213","modifier":null,"units":1}]}`)
	client := newMedicalClient(server.URL)

	name := "Jane Doe"
	form, err := client.GenerateCMS1500(
		context.Background(),
		"note",
		[]transcription.ICD10Code{{Code: "R51.9"}},
		[]transcription.CPTCode{{Code: "99213"}},
		&transcription.PatientInfo{Name: &name},
	)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", form.PatientName)
	require.Len(t, form.ServiceLines, 1)
	assert.Equal(t, "99213", form.ServiceLines[0].CPTCode)

	assert.Contains(t, captured.Messages[1].Content, "Patient information:")
	assert.Contains(t, captured.Messages[1].Content, "Jane Doe")
}

func TestRunFullWorkflow(t *testing.T) {
	full := `{
		"medical_note": "S: headache.",
		"icd10_codes": [{"code":"R51.9","description":"Headache"}],
		"cpt_codes": [{"code":"99213","modifier":null}],
		"cms1500_form_data": {"patient_name":"Jane Doe","diagnosis_codes":["R51.9"],"service_lines":[]}
	}`
	server, _ := chatServer(t, full)
	client := newMedicalClient(server.URL)

	result, err := client.RunFullWorkflow(context.Background(), "transcript", nil)
	require.NoError(t, err)
	assert.Equal(t, "S: headache.", result.MedicalNote)
	assert.Len(t, result.ICD10Codes, 1)
	assert.Len(t, result.CPTCodes, 1)
	require.NotNil(t, result.CMS1500Form)
	assert.Equal(t, "Jane Doe", result.CMS1500Form.PatientName)
}

func TestRunFullWorkflowRejectsPartialResponse(t *testing.T) {
	partial := `{
		"medical_note": "S: headache.",
		"icd10_codes": [{"code":"R51.9"}],
		"cpt_codes": [],
		"cms1500_form_data": {"patient_name":"Jane Doe"}
	}`
	server, _ := chatServer(t, partial)
	client := newMedicalClient(server.URL)

	_, err := client.RunFullWorkflow(context.Background(), "transcript", nil)
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Contains(t, upstream.Message, "incomplete workflow response")
}

func TestChatUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached"}}`))
	}))
	defer server.Close()

	client := newMedicalClient(server.URL)
	_, err := client.GenerateNote(context.Background(), "transcript")

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Equal(t, "Rate limit reached", upstream.Message)
}
