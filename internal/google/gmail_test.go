package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/counseldesk/backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitializeForTests()
}

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient()
	client.SetBaseURLs(server.URL, server.URL, server.URL)
	client.SetHTTPClient(server.Client())
	return client, server
}

func b64(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func TestExtractBody_PrefersHTML(t *testing.T) {
	payload := MessagePart{
		MimeType: "multipart/alternative",
		Parts: []MessagePart{
			{MimeType: "text/plain", Body: MessageBody{Data: b64("plain text")}},
			{MimeType: "text/html", Body: MessageBody{Data: b64("<p>rich</p>")}},
		},
	}
	assert.Equal(t, "<p>rich</p>", ExtractBody(payload))
}

func TestExtractBody_FallsBackToPlain(t *testing.T) {
	payload := MessagePart{
		MimeType: "multipart/alternative",
		Parts: []MessagePart{
			{MimeType: "text/plain", Body: MessageBody{Data: b64("plain only")}},
		},
	}
	assert.Equal(t, "plain only", ExtractBody(payload))
}

func TestExtractBody_NestedMultipart(t *testing.T) {
	payload := MessagePart{
		MimeType: "multipart/mixed",
		Parts: []MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []MessagePart{
					{MimeType: "text/html", Body: MessageBody{Data: b64("<b>deep</b>")}},
				},
			},
		},
	}
	assert.Equal(t, "<b>deep</b>", ExtractBody(payload))
}

func TestExtractBody_TopLevelBody(t *testing.T) {
	payload := MessagePart{
		MimeType: "text/plain",
		Body:     MessageBody{Data: b64("bare body")},
	}
	assert.Equal(t, "bare body", ExtractBody(payload))
}

func TestExtractBody_Empty(t *testing.T) {
	assert.Equal(t, "", ExtractBody(MessagePart{MimeType: "multipart/mixed"}))
}

func TestListMessages_Query(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/messages", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "category:primary is:unread", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"messages":[{"id":"m1","threadId":"t1"},{"id":"m2","threadId":"t2"}]}`))
	}))
	defer server.Close()

	refs, err := client.ListMessages(context.Background(), "tok", 5, "is:unread")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "m1", refs[0].ID)
}

func TestListMessages_EmptyInbox(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultSizeEstimate":0}`))
	}))
	defer server.Close()

	refs, err := client.ListMessages(context.Background(), "tok", 5, "")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestModifyMessage_Payload(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/me/messages/m1/modify", r.URL.Path)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []interface{}{"UNREAD"}, payload["removeLabelIds"])
		assert.NotContains(t, payload, "addLabelIds")
		w.Write([]byte(`{"id":"m1"}`))
	}))
	defer server.Close()

	err := client.ModifyMessage(context.Background(), "tok", "m1", nil, []string{"UNREAD"})
	require.NoError(t, err)
}

func TestSendMessage_EncodesRaw(t *testing.T) {
	raw := "To: a@b.c\r\nSubject: hi\r\n\r\nbody"
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/messages/send", r.URL.Path)

		var payload struct {
			Raw      string `json:"raw"`
			ThreadID string `json:"threadId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(payload.Raw)
		require.NoError(t, err)
		assert.Equal(t, raw, string(decoded))
		assert.Equal(t, "thread-9", payload.ThreadID)
		w.Write([]byte(`{"id":"sent"}`))
	}))
	defer server.Close()

	require.NoError(t, client.SendMessage(context.Background(), "tok", raw, "thread-9"))
}

func TestGetMessage_UpstreamError(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"Not Found","status":"NOT_FOUND"}}`))
	}))
	defer server.Close()

	_, err := client.GetMessage(context.Background(), "tok", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestMessageHelpers(t *testing.T) {
	m := &Message{
		LabelIDs: []string{"INBOX", "UNREAD"},
		Payload: MessagePart{
			Headers: []MessageHeader{
				{Name: "Subject", Value: "Deposition prep"},
				{Name: "message-id", Value: "<abc@mail>"},
			},
		},
	}
	assert.True(t, m.IsUnread())
	assert.Equal(t, "Deposition prep", m.Header("subject"))
	assert.Equal(t, "<abc@mail>", m.Header("Message-ID"))
	assert.Equal(t, "", m.Header("References"))
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", TimeAgo(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", TimeAgo(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", TimeAgo(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", TimeAgo(now.Add(-48*time.Hour), now))
	assert.Equal(t, "Aug 1", TimeAgo(now.Add(-31*24*time.Hour), now))
}

func TestComposeRFC822(t *testing.T) {
	msg := Compose{
		To:         "client@example.com",
		Subject:    "Re: Hearing",
		InReplyTo:  "<orig@mail>",
		References: "<root@mail> <orig@mail>",
		Body:       "<p>See you there.</p>",
	}
	raw := msg.RFC822()
	assert.Contains(t, raw, "To: client@example.com\r\n")
	assert.Contains(t, raw, "In-Reply-To: <orig@mail>\r\n")
	assert.Contains(t, raw, "References: <root@mail> <orig@mail>\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, raw, "\r\n\r\n<p>See you there.</p>")

	plain := Compose{To: "a@b.c", Subject: "Hi", Body: "x"}.RFC822()
	assert.NotContains(t, plain, "In-Reply-To")
	assert.NotContains(t, plain, "References")
}

func TestSubjectPrefixes(t *testing.T) {
	assert.Equal(t, "Re: Hearing", ReplySubject("Hearing"))
	assert.Equal(t, "RE: Hearing", ReplySubject("RE: Hearing"))
	assert.Equal(t, "Fwd: Hearing", ForwardSubject("Hearing"))
	assert.Equal(t, "FW: Hearing", ForwardSubject("FW: Hearing"))
}
