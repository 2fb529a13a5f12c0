package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	apierrors "github.com/counseldesk/backend/internal/errors"
	"github.com/counseldesk/backend/internal/telemetry"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	geminiModel          = "gemini-1.5-flash"
)

// GeminiClient calls the Gemini generateContent REST endpoint
type GeminiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGeminiClient creates a Gemini API client
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		baseURL: defaultGeminiBaseURL,
		apiKey:  apiKey,
		httpClient: telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{
			ServiceName: "gemini",
			Timeout:     60 * time.Second,
		}),
	}
}

// SetBaseURL overrides the API base URL, used by tests
func (c *GeminiClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetHTTPClient overrides the HTTP client, used by tests
func (c *GeminiClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateContent sends a prompt and returns the first candidate's text
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", apierrors.InternalError("failed to encode prompt")
	}

	endpoint := c.baseURL + "/models/" + geminiModel + ":generateContent?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apierrors.InternalError("failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apierrors.Upstream("gemini", 0, "request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apierrors.Upstream("gemini", resp.StatusCode, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", apierrors.Upstream("gemini", resp.StatusCode, "generation failed").WithDetails(respBody)
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", apierrors.Upstream("gemini", resp.StatusCode, "unexpected response format")
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", apierrors.Upstream("gemini", resp.StatusCode, "empty response")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
