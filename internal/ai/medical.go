package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medscribe/medscribe-api/internal/config"
	"github.com/medscribe/medscribe-api/internal/domain/transcription"
)

const noteSystemPrompt = `You are a medical documentation assistant. Given a raw ` +
	`clinical conversation transcript, write a concise professional medical note ` +
	`in SOAP format. Return only the note text.`

const icd10SystemPrompt = `You are a medical coding assistant. Given a medical note ` +
	`and the original transcript, suggest applicable ICD-10 diagnosis codes. ` +
	`Respond with a JSON array of objects: [{"code":"...","description":"..."}]. ` +
	`Return only JSON.`

const cptSystemPrompt = `You are a medical billing assistant. Given a medical note ` +
	`and the original transcript, suggest applicable CPT procedure codes with ` +
	`modifiers where appropriate. Respond with a JSON array of objects: ` +
	`[{"code":"...","description":"...","modifier":null}]. Return only JSON.`

const cms1500SystemPrompt = `You are a medical claims assistant. Given a medical note, ` +
	`ICD-10 codes, CPT codes, and optional patient information, produce CMS-1500 ` +
	`claim form data as a JSON object with fields patient_name, patient_dob, ` +
	`patient_sex, patient_address, patient_city_state_zip, patient_phone, patient_id, ` +
	`insured_name, insured_id, insurance_group, diagnosis_codes, service_lines, ` +
	`total_charge, notes. Use placeholders for missing patient fields. Return only JSON.`

const fullWorkflowSystemPrompt = `You are a medical documentation pipeline. Given a raw ` +
	`clinical transcript and optional patient information, produce in one pass: a SOAP ` +
	`medical note, ICD-10 codes, CPT codes, and CMS-1500 claim form data. Respond with ` +
	`a JSON object: {"medical_note":"...","icd10_codes":[...],"cpt_codes":[...],` +
	`"cms1500_form_data":{...}}. Return only JSON.`

// MedicalAIClient drives the documentation workflow steps through an
// OpenAI-compatible chat completions API.
type MedicalAIClient struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewMedicalAIClient(cfg config.MedicalAIConfig, log *zap.Logger) *MedicalAIClient {
	return &MedicalAIClient{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

func (c *MedicalAIClient) GenerateNote(ctx context.Context, text string) (string, error) {
	content, err := c.chat(ctx, "generate_note", noteSystemPrompt, "Transcript:\n"+text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *MedicalAIClient) SuggestICD10(ctx context.Context, note, text string) ([]transcription.ICD10Code, error) {
	prompt := fmt.Sprintf("Medical note:\n%s\n\nOriginal transcript:\n%s", note, text)
	content, err := c.chat(ctx, "suggest_icd10", icd10SystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var codes []transcription.ICD10Code
	if err := decodeJSONContent(content, &codes); err != nil {
		return nil, &UpstreamError{Provider: "medical-ai", Message: "malformed ICD-10 response: " + err.Error()}
	}
	return codes, nil
}

func (c *MedicalAIClient) SuggestCPT(ctx context.Context, note, text string) ([]transcription.CPTCode, error) {
	prompt := fmt.Sprintf("Medical note:\n%s\n\nOriginal transcript:\n%s", note, text)
	content, err := c.chat(ctx, "suggest_cpt", cptSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var codes []transcription.CPTCode
	if err := decodeJSONContent(content, &codes); err != nil {
		return nil, &UpstreamError{Provider: "medical-ai", Message: "malformed CPT response: " + err.Error()}
	}
	return codes, nil
}

func (c *MedicalAIClient) GenerateCMS1500(
	ctx context.Context,
	note string,
	icd10 []transcription.ICD10Code,
	cpt []transcription.CPTCode,
	patient *transcription.PatientInfo,
) (*transcription.CMS1500Form, error) {
	prompt, err := buildCMS1500Prompt(note, icd10, cpt, patient)
	if err != nil {
		return nil, err
	}

	content, err := c.chat(ctx, "generate_cms1500", cms1500SystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var form transcription.CMS1500Form
	if err := decodeJSONContent(content, &form); err != nil {
		return nil, &UpstreamError{Provider: "medical-ai", Message: "malformed CMS-1500 response: " + err.Error()}
	}
	return &form, nil
}

type fullWorkflowResponse struct {
	MedicalNote     string                     `json:"medical_note"`
	ICD10Codes      []transcription.ICD10Code  `json:"icd10_codes"`
	CPTCodes        []transcription.CPTCode    `json:"cpt_codes"`
	CMS1500FormData *transcription.CMS1500Form `json:"cms1500_form_data"`
}

// RunFullWorkflow produces note, codes, and form in a single upstream
// request. A response missing any of the four parts is rejected whole so
// the caller never persists a partial pipeline result.
func (c *MedicalAIClient) RunFullWorkflow(ctx context.Context, text string, patient *transcription.PatientInfo) (*transcription.FullWorkflowResult, error) {
	prompt := "Transcript:\n" + text
	if patient != nil {
		patientJSON, err := json.Marshal(patient)
		if err != nil {
			return nil, fmt.Errorf("encoding patient info: %w", err)
		}
		prompt += "\n\nPatient information:\n" + string(patientJSON)
	}

	content, err := c.chat(ctx, "run_full_workflow", fullWorkflowSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var result fullWorkflowResponse
	if err := decodeJSONContent(content, &result); err != nil {
		return nil, &UpstreamError{Provider: "medical-ai", Message: "malformed workflow response: " + err.Error()}
	}

	if result.MedicalNote == "" || len(result.ICD10Codes) == 0 ||
		len(result.CPTCodes) == 0 || result.CMS1500FormData == nil {
		return nil, &UpstreamError{Provider: "medical-ai", Message: "incomplete workflow response"}
	}

	return &transcription.FullWorkflowResult{
		MedicalNote: result.MedicalNote,
		ICD10Codes:  result.ICD10Codes,
		CPTCodes:    result.CPTCodes,
		CMS1500Form: result.CMS1500FormData,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *MedicalAIClient) chat(ctx context.Context, step, systemPrompt, userPrompt string) (string, error) {
	ctx, span := otel.Tracer("ai").Start(ctx, "medicalai."+step)
	defer span.End()
	span.SetAttributes(attribute.String("ai.model", c.model))

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Provider: "medical-ai", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Provider: "medical-ai", Message: "reading response: " + err.Error()}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(respBody))
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return "", &UpstreamError{Provider: "medical-ai", StatusCode: resp.StatusCode, Message: message}
	}

	if len(parsed.Choices) == 0 {
		return "", &UpstreamError{Provider: "medical-ai", Message: "empty completion"}
	}

	return parsed.Choices[0].Message.Content, nil
}

func buildCMS1500Prompt(
	note string,
	icd10 []transcription.ICD10Code,
	cpt []transcription.CPTCode,
	patient *transcription.PatientInfo,
) (string, error) {
	icd10JSON, err := json.Marshal(icd10)
	if err != nil {
		return "", fmt.Errorf("encoding ICD-10 codes: %w", err)
	}
	cptJSON, err := json.Marshal(cpt)
	if err != nil {
		return "", fmt.Errorf("encoding CPT codes: %w", err)
	}

	prompt := fmt.Sprintf("Medical note:\n%s\n\nICD-10 codes:\n%s\n\nCPT codes:\n%s",
		note, icd10JSON, cptJSON)

	if patient != nil {
		patientJSON, err := json.Marshal(patient)
		if err != nil {
			return "", fmt.Errorf("encoding patient info: %w", err)
		}
		prompt += "\n\nPatient information:\n" + string(patientJSON)
	}

	return prompt, nil
}

// decodeJSONContent tolerates models that wrap JSON in markdown fences.
func decodeJSONContent(content string, v any) error {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return json.Unmarshal([]byte(trimmed), v)
}
