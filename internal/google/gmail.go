package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MessageRef is a Gmail list entry, id only
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// MessageHeader is a single RFC 822 header
type MessageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessageBody is the encoded content of a MIME part
type MessageBody struct {
	Size int    `json:"size"`
	Data string `json:"data,omitempty"`
}

// MessagePart is one node of a MIME message tree
type MessagePart struct {
	MimeType string          `json:"mimeType"`
	Headers  []MessageHeader `json:"headers,omitempty"`
	Body     MessageBody     `json:"body"`
	Parts    []MessagePart   `json:"parts,omitempty"`
}

// Message is a full Gmail message
type Message struct {
	ID           string      `json:"id"`
	ThreadID     string      `json:"threadId"`
	LabelIDs     []string    `json:"labelIds,omitempty"`
	Snippet      string      `json:"snippet,omitempty"`
	InternalDate string      `json:"internalDate,omitempty"`
	Payload      MessagePart `json:"payload"`
}

// Header returns a named header from the message payload, case-insensitively
func (m *Message) Header(name string) string {
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// IsUnread reports whether the message carries the UNREAD label
func (m *Message) IsUnread() bool {
	for _, label := range m.LabelIDs {
		if label == "UNREAD" {
			return true
		}
	}
	return false
}

// ListMessages fetches up to limit message ids from the primary inbox
// category, optionally narrowed by an extra Gmail search query.
func (c *Client) ListMessages(ctx context.Context, token string, limit int, extraQuery string) ([]MessageRef, error) {
	query := "category:primary"
	if extraQuery != "" {
		query += " " + extraQuery
	}

	q := url.Values{}
	q.Set("maxResults", fmt.Sprintf("%d", limit))
	q.Set("q", query)

	var result struct {
		Messages []MessageRef `json:"messages"`
	}
	endpoint := c.gmailURL + "/users/me/messages?" + q.Encode()
	if err := c.doJSON(ctx, token, http.MethodGet, endpoint, nil, "", &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// GetMessage fetches a full message including the MIME tree
func (c *Client) GetMessage(ctx context.Context, token, messageID string) (*Message, error) {
	endpoint := c.gmailURL + "/users/me/messages/" + url.PathEscape(messageID) + "?format=full"
	var message Message
	if err := c.doJSON(ctx, token, http.MethodGet, endpoint, nil, "", &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// GetMessageMetadata fetches only the headers needed to thread a reply
func (c *Client) GetMessageMetadata(ctx context.Context, token, messageID string) (*Message, error) {
	q := url.Values{}
	q.Set("format", "metadata")
	for _, h := range []string{"Subject", "From", "To", "Message-ID", "References"} {
		q.Add("metadataHeaders", h)
	}
	endpoint := c.gmailURL + "/users/me/messages/" + url.PathEscape(messageID) + "?" + q.Encode()

	var message Message
	if err := c.doJSON(ctx, token, http.MethodGet, endpoint, nil, "", &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// ModifyMessage adds and removes label ids on a message
func (c *Client) ModifyMessage(ctx context.Context, token, messageID string, addLabels, removeLabels []string) error {
	payload := struct {
		AddLabelIDs    []string `json:"addLabelIds,omitempty"`
		RemoveLabelIDs []string `json:"removeLabelIds,omitempty"`
	}{AddLabelIDs: addLabels, RemoveLabelIDs: removeLabels}

	body, err := jsonBody(payload)
	if err != nil {
		return err
	}
	endpoint := c.gmailURL + "/users/me/messages/" + url.PathEscape(messageID) + "/modify"
	return c.doJSON(ctx, token, http.MethodPost, endpoint, body, "application/json", nil)
}

// SendMessage submits a raw RFC 822 message, optionally into an
// existing thread.
func (c *Client) SendMessage(ctx context.Context, token, rawMessage, threadID string) error {
	payload := struct {
		Raw      string `json:"raw"`
		ThreadID string `json:"threadId,omitempty"`
	}{
		Raw:      base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(rawMessage)),
		ThreadID: threadID,
	}

	body, err := jsonBody(payload)
	if err != nil {
		return err
	}
	endpoint := c.gmailURL + "/users/me/messages/send"
	return c.doJSON(ctx, token, http.MethodPost, endpoint, body, "application/json", nil)
}

// ExtractBody walks a message's MIME tree and returns the best
// renderable body: an HTML part if one exists, otherwise a plain-text
// part, otherwise the top-level body. Multipart containers are
// searched recursively.
func ExtractBody(payload MessagePart) string {
	if body := findPart(payload, "text/html"); body != "" {
		return body
	}
	if body := findPart(payload, "text/plain"); body != "" {
		return body
	}
	if payload.Body.Data != "" {
		return decodeBase64URL(payload.Body.Data)
	}
	return ""
}

func findPart(part MessagePart, mimeType string) string {
	if part.MimeType == mimeType && part.Body.Data != "" {
		return decodeBase64URL(part.Body.Data)
	}
	for _, child := range part.Parts {
		if body := findPart(child, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func decodeBase64URL(data string) string {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}

// ParseInternalDate converts Gmail's millisecond internalDate string
func ParseInternalDate(internalDate string) (time.Time, bool) {
	var millis int64
	if _, err := fmt.Sscanf(internalDate, "%d", &millis); err != nil || millis == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// TimeAgo renders a timestamp as a short relative label
func TimeAgo(t time.Time, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
