package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/whitewolf2000ani/hiperhealth/internal/config"
)

// Client talks to the external diagnostics engine. The engine owns the AI
// diagnosis and exam generation, report/wearable extraction, and the
// deidentification pipeline; this service only crosses its HTTP boundary.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a diagnostics engine client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.EngineBaseURL,
		apiKey:     cfg.EngineAPIKey,
		httpClient: newHTTPClient(cfg.EngineTimeout),
	}
}

// Differential requests AI differential-diagnosis suggestions for a patient
// record. It returns the parsed suggestion and the raw engine response so the
// caller can persist it verbatim.
func (c *Client) Differential(ctx context.Context, record map[string]interface{}, language, sessionID string) (*Suggestion, json.RawMessage, error) {
	req := suggestionRequest{
		Patient:   record,
		Language:  language,
		SessionID: sessionID,
	}
	return c.suggest(ctx, "/v1/diagnosis", req)
}

// Exams requests AI exam suggestions for the selected diagnoses.
func (c *Client) Exams(ctx context.Context, diagnoses []string, language, sessionID string) (*Suggestion, json.RawMessage, error) {
	req := suggestionRequest{
		Diagnoses: diagnoses,
		Language:  language,
		SessionID: sessionID,
	}
	return c.suggest(ctx, "/v1/exams", req)
}

func (c *Client) suggest(ctx context.Context, path string, req suggestionRequest) (*Suggestion, json.RawMessage, error) {
	body, err := c.postJSON(ctx, path, req)
	if err != nil {
		return nil, nil, err
	}

	var suggestion Suggestion
	if err := json.Unmarshal(body, &suggestion); err != nil {
		return nil, nil, fmt.Errorf("failed to decode engine response: %w", err)
	}
	return &suggestion, json.RawMessage(body), nil
}

// ExtractReport sends an uploaded medical report to the engine and returns
// the extracted FHIR document.
func (c *Client) ExtractReport(ctx context.Context, filename, contentType string, content []byte) (map[string]interface{}, error) {
	body, err := c.postFile(ctx, "/v1/extract/medical-report", filename, contentType, content)
	if err != nil {
		return nil, err
	}

	var fhir map[string]interface{}
	if err := json.Unmarshal(body, &fhir); err != nil {
		return nil, fmt.Errorf("failed to decode extracted report: %w", err)
	}
	return fhir, nil
}

// ExtractWearable sends an uploaded wearable-data file to the engine and
// returns the extracted series as raw JSON.
func (c *Client) ExtractWearable(ctx context.Context, filename, contentType string, content []byte) (json.RawMessage, error) {
	body, err := c.postFile(ctx, "/v1/extract/wearable", filename, contentType, content)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("engine returned invalid wearable payload")
	}
	return json.RawMessage(body), nil
}

// Deidentify runs the finished patient record through the engine's
// deidentification pipeline.
func (c *Client) Deidentify(ctx context.Context, record map[string]interface{}) (map[string]interface{}, error) {
	body, err := c.postJSON(ctx, "/v1/deidentify", deidentifyRequest{Record: record})
	if err != nil {
		return nil, err
	}

	var resp deidentifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode deidentified record: %w", err)
	}
	return resp.Record, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal engine request: %w", err)
	}

	var respBody []byte
	err = retry(ctx, 3, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		respBody, err = c.do(req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("engine call %s failed: %w", path, err)
	}
	return respBody, nil
}

func (c *Client) postFile(ctx context.Context, path, filename, contentType string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}
	if contentType != "" {
		if err := writer.WriteField("content_type", contentType); err != nil {
			return nil, fmt.Errorf("failed to build multipart request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}

	// Extraction calls are not retried: the engine may have partially
	// processed the file and uploads are cheap to resubmit from the client.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("engine call %s failed: %w", path, err)
	}
	return body, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine returned status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
