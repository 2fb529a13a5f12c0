package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/counseldesk/backend/internal/google"
	"github.com/counseldesk/backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitializeForTests()
}

func TestBuildPrompt(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	events := []google.Event{{ID: "e1", Summary: "Status conference"}}
	unread := []google.EmailSummary{{ID: "m1", Subject: "Discovery deadline"}}

	prompt := BuildPrompt("Jane Doe", "What is on my plate today?", now, events, unread)

	assert.Contains(t, prompt, `User's name is: "Jane"`)
	assert.Contains(t, prompt, `User's Question: "What is on my plate today?"`)
	assert.Contains(t, prompt, "Today's Date: Tue Sep 1 2026")
	assert.Contains(t, prompt, "Status conference")
	assert.Contains(t, prompt, "Discovery deadline")
	assert.Contains(t, prompt, "Format your response using Markdown")
}

func TestGeminiGenerateContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "hello")

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hi there."}]}}]}`))
	}))
	defer server.Close()

	client := NewGeminiClient("test-key")
	client.SetBaseURL(server.URL)
	client.SetHTTPClient(server.Client())

	text, err := client.GenerateContent(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there.", text)
}

func TestGeminiGenerateContent_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer server.Close()

	client := NewGeminiClient("k")
	client.SetBaseURL(server.URL)
	client.SetHTTPClient(server.Client())

	_, err := client.GenerateContent(context.Background(), "hello")
	require.Error(t, err)
}

func TestGeminiGenerateContent_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := NewGeminiClient("k")
	client.SetBaseURL(server.URL)
	client.SetHTTPClient(server.Client())

	_, err := client.GenerateContent(context.Background(), "hello")
	require.Error(t, err)
}

func TestAnswer_OmitsFailedContext(t *testing.T) {
	var prompt string
	geminiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt = req.Contents[0].Parts[0].Text
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer geminiSrv.Close()

	googleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/calendars/primary/events":
			w.Write([]byte(`{"items":[{"id":"e1","summary":"Hearing","start":{"dateTime":"2026-09-02T10:00:00Z"},"end":{"dateTime":"2026-09-02T11:00:00Z"}}]}`))
		case "/users/me/messages":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"message":"insufficient scope"}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer googleSrv.Close()

	googleClient := google.NewClient()
	googleClient.SetBaseURLs(googleSrv.URL, googleSrv.URL, googleSrv.URL)
	googleClient.SetHTTPClient(googleSrv.Client())

	gemini := NewGeminiClient("k")
	gemini.SetBaseURL(geminiSrv.URL)
	gemini.SetHTTPClient(geminiSrv.Client())

	service := NewService(googleClient, gemini)
	service.SetNow(func() time.Time { return time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC) })

	answer, err := service.Answer(context.Background(), "gtok", "Jane Doe", "What's next?")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Contains(t, prompt, "Hearing")
	assert.Contains(t, prompt, "Unread Emails:\n[]")
}
