package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/emhgit/pdf-voice-assistant/config"
	"github.com/emhgit/pdf-voice-assistant/model"
)

// LLMService is the adapter for the external field-extraction service.
type LLMService struct {
	config     *config.LLMConfig
	httpClient *http.Client
}

// extractionRequest represents the request to the extraction service
type extractionRequest struct {
	Transcription string   `json:"transcription"`
	PDFFieldNames []string `json:"pdf_field_names"`
}

// extractionResponse represents the extraction service response
type extractionResponse struct {
	ExtractedFields map[string]string `json:"extracted_fields"`
}

func NewLLMService(cfg *config.LLMConfig) *LLMService {
	return &LLMService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// ExtractFields posts the field names and transcript to the extraction
// service and returns one candidate value per requested field name, in the
// requested order. The service's response mapping carries no order guarantee,
// so entries are matched by name; unmatched names get an empty value.
func (s *LLMService) ExtractFields(ctx context.Context, fieldNames []string, transcription string) ([]model.ExtractedField, error) {
	reqBody := extractionRequest{
		Transcription: transcription,
		PDFFieldNames: fieldNames,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/extract", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach extraction service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result extractionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(respBody))
	}

	fields := make([]model.ExtractedField, 0, len(fieldNames))
	for _, name := range fieldNames {
		fields = append(fields, model.ExtractedField{
			Name:  name,
			Value: result.ExtractedFields[name],
		})
	}

	return fields, nil
}
