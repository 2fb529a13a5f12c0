package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/counseldesk/backend/internal/google"
	"github.com/counseldesk/backend/internal/logger"
	"go.uber.org/zap"
)

const contextEmailLimit = 10

// Service answers practice questions with the user's calendar and
// unread inbox as context.
type Service struct {
	googleClient *google.Client
	gemini       *GeminiClient
	now          func() time.Time
}

// NewService creates a new chat service
func NewService(googleClient *google.Client, gemini *GeminiClient) *Service {
	return &Service{
		googleClient: googleClient,
		gemini:       gemini,
		now:          time.Now,
	}
}

// SetNow overrides the clock, used by tests
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// Answer gathers the next week of events and the unread inbox in
// parallel, builds the prompt, and asks the model. Context data that
// fails to load is logged and omitted rather than failing the chat.
func (s *Service) Answer(ctx context.Context, googleToken, userName, query string) (string, error) {
	now := s.now()

	var (
		wg     sync.WaitGroup
		events []google.Event
		emails []google.EmailSummary
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		events, err = s.googleClient.CalendarEvents(ctx, googleToken, now, now.AddDate(0, 0, 7))
		if err != nil {
			logger.Log.Warn("Chat context: calendar fetch failed", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		emails, err = s.googleClient.RecentEmails(ctx, googleToken, contextEmailLimit)
		if err != nil {
			logger.Log.Warn("Chat context: email fetch failed", zap.Error(err))
		}
	}()
	wg.Wait()

	unread := make([]google.EmailSummary, 0, len(emails))
	for _, email := range emails {
		if email.IsUnread {
			unread = append(unread, email)
		}
	}

	prompt := BuildPrompt(userName, query, now, events, unread)
	return s.gemini.GenerateContent(ctx, prompt)
}

// BuildPrompt renders the assistant prompt with the user's first name,
// today's date, and the JSON-encoded context data.
func BuildPrompt(userName, query string, now time.Time, events []google.Event, unreadEmails []google.EmailSummary) string {
	firstName := userName
	if i := strings.IndexByte(userName, ' '); i > 0 {
		firstName = userName[:i]
	}

	if events == nil {
		events = []google.Event{}
	}
	if unreadEmails == nil {
		unreadEmails = []google.EmailSummary{}
	}
	eventsJSON, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		eventsJSON = []byte("[]")
	}
	emailsJSON, err := json.MarshalIndent(unreadEmails, "", "  ")
	if err != nil {
		emailsJSON = []byte("[]")
	}

	var b strings.Builder
	b.WriteString("You are a paralegal and lawyer's personal assistant, also helping user with legal questions. Based on the following data, please answer the user's question.\n")
	fmt.Fprintf(&b, "User's name is: %q\n", firstName)
	fmt.Fprintf(&b, "User's Question: %q\n\n", query)
	fmt.Fprintf(&b, "Today's Date: %s\n\n", now.Format("Mon Jan 2 2006"))
	fmt.Fprintf(&b, "Calendar Events (next 7 days):\n%s\n\n", eventsJSON)
	fmt.Fprintf(&b, "Unread Emails:\n%s\n\n", emailsJSON)
	b.WriteString("Answer the question in a concise and friendly manner. Format your response using Markdown.")
	return b.String()
}
