package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	apierrors "github.com/counseldesk/backend/internal/errors"
	"github.com/counseldesk/backend/internal/metrics"
	"github.com/counseldesk/backend/internal/telemetry"
)

const (
	calendarBaseURL = "https://www.googleapis.com/calendar/v3"
	tasksBaseURL    = "https://tasks.googleapis.com/tasks/v1"
	gmailBaseURL    = "https://gmail.googleapis.com/gmail/v1"
)

// Client talks to the Google Calendar, Tasks, and Gmail REST APIs on
// behalf of a signed-in user. The access token comes from the session
// on every call.
type Client struct {
	calendarURL string
	tasksURL    string
	gmailURL    string
	httpClient  *http.Client
}

// NewClient creates a Google API client
func NewClient() *Client {
	return &Client{
		calendarURL: calendarBaseURL,
		tasksURL:    tasksBaseURL,
		gmailURL:    gmailBaseURL,
		httpClient: telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{
			ServiceName: "google",
			Timeout:     15 * time.Second,
		}),
	}
}

// SetBaseURLs overrides the API base URLs, used by tests
func (c *Client) SetBaseURLs(calendar, tasks, gmail string) {
	c.calendarURL = calendar
	c.tasksURL = tasks
	c.gmailURL = gmail
}

// SetHTTPClient overrides the HTTP client, used by tests
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// doJSON performs an authorized request and decodes a 2xx response
// into out. Non-2xx responses become an upstream error carrying the
// provider's status and payload.
func (c *Client) doJSON(ctx context.Context, token, method, rawURL string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return apierrors.InternalError("failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("google", 0, time.Since(started))
		return apierrors.Upstream("google", 0, "request failed")
	}
	defer resp.Body.Close()
	metrics.RecordUpstream("google", resp.StatusCode, time.Since(started))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierrors.Upstream("google", resp.StatusCode, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierrors.Upstream("google", resp.StatusCode, googleErrorMessage(respBody)).WithDetails(respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apierrors.Upstream("google", resp.StatusCode, "unexpected response format")
	}
	return nil
}

func jsonBody(payload interface{}) (io.Reader, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apierrors.InternalError("failed to encode request body")
	}
	return bytes.NewReader(data), nil
}

// googleErrorMessage extracts the message from a Google error payload
func googleErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return "google request failed"
}
