package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medscribe/medscribe-api/internal/config"
)

// HuggingFaceClient transcribes audio through the Hugging Face inference
// API. One shared instance serves all requests; it holds no per-call state.
type HuggingFaceClient struct {
	apiURL     string
	token      string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewHuggingFaceClient(cfg config.HuggingFaceConfig, model string, log *zap.Logger) *HuggingFaceClient {
	return &HuggingFaceClient{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		token:  cfg.Token,
		model:  model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

type hfSuccessResponse struct {
	Text string `json:"text"`
}

type hfErrorResponse struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// Transcribe posts raw audio bytes to the model endpoint and returns the
// recognized text. A 503 with an estimated_time means the hosted model is
// still loading and maps to ErrModelLoading.
func (c *HuggingFaceClient) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	ctx, span := otel.Tracer("ai").Start(ctx, "huggingface.transcribe")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.model", c.model),
		attribute.Int("audio.bytes", len(audio)),
	)

	url := fmt.Sprintf("%s/models/%s", c.apiURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Provider: "huggingface", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Provider: "huggingface", Message: "reading response: " + err.Error()}
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		var hfErr hfErrorResponse
		_ = json.Unmarshal(body, &hfErr)
		c.log.Warn("transcription model loading",
			zap.String("model", c.model),
			zap.Float64("estimated_time", hfErr.EstimatedTime),
		)
		return "", ErrModelLoading
	}

	if resp.StatusCode != http.StatusOK {
		var hfErr hfErrorResponse
		message := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &hfErr) == nil && hfErr.Error != "" {
			message = hfErr.Error
		}
		return "", &UpstreamError{Provider: "huggingface", StatusCode: resp.StatusCode, Message: message}
	}

	var result hfSuccessResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &UpstreamError{Provider: "huggingface", Message: "malformed response: " + err.Error()}
	}

	c.log.Debug("audio transcribed",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("text_length", len(result.Text)),
	)

	return result.Text, nil
}
