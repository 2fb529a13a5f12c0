package google

import (
	"context"
	"strings"
	"time"
)

// EmailSummary is the dashboard's view of one inbox message
type EmailSummary struct {
	ID          string `json:"id"`
	ThreadID    string `json:"threadId"`
	Sender      string `json:"sender"`
	SenderEmail string `json:"senderEmail"`
	Subject     string `json:"subject"`
	Snippet     string `json:"snippet"`
	FullBody    string `json:"fullBody"`
	Date        string `json:"date"`
	TimeAgo     string `json:"timeAgo"`
	IsUnread    bool   `json:"isUnread"`
	IsArchived  bool   `json:"isArchived"`
	EmailClient string `json:"emailClient"`
}

// RecentEmails lists the newest primary-inbox messages and hydrates
// each one in parallel. List order is preserved; any fetch failure
// fails the whole batch, same as the upstream list call.
func (c *Client) RecentEmails(ctx context.Context, token string, limit int) ([]EmailSummary, error) {
	refs, err := c.ListMessages(ctx, token, limit, "")
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return []EmailSummary{}, nil
	}

	type fetchResult struct {
		index   int
		message *Message
		err     error
	}
	resultsChan := make(chan fetchResult, len(refs))

	for i, ref := range refs {
		go func(index int, id string) {
			message, err := c.GetMessage(ctx, token, id)
			resultsChan <- fetchResult{index: index, message: message, err: err}
		}(i, ref.ID)
	}

	messages := make([]*Message, len(refs))
	for range refs {
		result := <-resultsChan
		if result.err != nil {
			return nil, result.err
		}
		messages[result.index] = result.message
	}

	now := time.Now()
	summaries := make([]EmailSummary, 0, len(messages))
	for _, message := range messages {
		summaries = append(summaries, summarize(message, now))
	}
	return summaries, nil
}

func summarize(m *Message, now time.Time) EmailSummary {
	fromName, fromEmail := ParseAddress(m.Header("From"))

	summary := EmailSummary{
		ID:          m.ID,
		ThreadID:    m.ThreadID,
		Sender:      fromName,
		SenderEmail: fromEmail,
		Subject:     m.Header("Subject"),
		Snippet:     m.Snippet,
		FullBody:    ExtractBody(m.Payload),
		IsUnread:    m.IsUnread(),
		IsArchived:  !hasLabel(m, "INBOX"),
		EmailClient: "google",
	}

	if received, ok := ParseInternalDate(m.InternalDate); ok {
		summary.Date = received.Format(time.RFC3339)
		summary.TimeAgo = TimeAgo(received, now)
	}
	return summary
}

func hasLabel(m *Message, label string) bool {
	for _, l := range m.LabelIDs {
		if l == label {
			return true
		}
	}
	return false
}

// ParseAddress splits an RFC 822 From header into display name and
// address. "Jane Doe <jane@firm.com>" yields ("Jane Doe",
// "jane@firm.com"); a bare address yields it for both.
func ParseAddress(from string) (string, string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	open := strings.LastIndex(from, "<")
	end := strings.LastIndex(from, ">")
	if open >= 0 && end > open {
		name := strings.Trim(strings.TrimSpace(from[:open]), `"`)
		email := from[open+1 : end]
		if name == "" {
			name = email
		}
		return name, email
	}
	return from, from
}
