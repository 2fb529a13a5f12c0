package feed

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/counseldesk/backend/internal/clio"
	"github.com/counseldesk/backend/internal/google"
	"github.com/counseldesk/backend/internal/logger"
	"github.com/counseldesk/backend/internal/metrics"
	"go.uber.org/zap"
)

// Item is a single entry in the unified calendar feed. Events from
// Google Calendar, Google Tasks, and the case-management calendar all
// normalize into this shape.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"` // "Meeting", "Event", "Task", "Court", or provider event type
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	DateTime    string   `json:"dateTime"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	HangoutLink string   `json:"hangoutLink,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	Source      string   `json:"source"` // "calendar", "tasks", "clio"

	// startAt is the parsed instant behind DateTime. Sorting compares
	// instants, not the formatted strings, so sources reporting
	// different UTC offsets still interleave correctly.
	startAt time.Time
}

// Meta reports how many items each source contributed
type Meta struct {
	GoogleEvents int `json:"google_events"`
	GoogleTasks  int `json:"google_tasks"`
	ClioEntries  int `json:"clio_entries"`
	Failed       int `json:"failed_sources"`
}

// Response is the unified feed for one week window
type Response struct {
	Items []Item `json:"items"`
	Meta  Meta   `json:"meta"`
}

// Service merges the three calendar sources into one feed
type Service struct {
	googleClient *google.Client
	clioClient   *clio.Client
}

// NewService creates a new feed service
func NewService(googleClient *google.Client, clioClient *clio.Client) *Service {
	return &Service{
		googleClient: googleClient,
		clioClient:   clioClient,
	}
}

// WeekFeed fetches all sources for [start, end) in parallel and merges
// them sorted by start time. A failing source is logged and skipped so
// one provider outage never blanks the whole feed. A source whose
// token is absent is skipped without being attempted.
func (s *Service) WeekFeed(ctx context.Context, googleToken, clioToken string, start, end time.Time) (*Response, error) {
	buildStart := time.Now()
	defer func() {
		metrics.Get().FeedBuildDuration.WithLabelValues().Observe(time.Since(buildStart).Seconds())
	}()

	type sourceResult struct {
		items  []Item
		source string
		err    error
	}

	sources := 0
	if googleToken != "" {
		sources += 2
	}
	if clioToken != "" {
		sources++
	}
	resultsChan := make(chan sourceResult, sources)

	if googleToken != "" {
		go func() {
			items, err := s.googleEvents(ctx, googleToken, start, end)
			resultsChan <- sourceResult{items: items, source: "calendar", err: err}
		}()
		go func() {
			items, err := s.googleTasks(ctx, googleToken, start, end)
			resultsChan <- sourceResult{items: items, source: "tasks", err: err}
		}()
	}

	if clioToken != "" {
		go func() {
			items, err := s.clioEntries(ctx, clioToken, start, end)
			resultsChan <- sourceResult{items: items, source: "clio", err: err}
		}()
	}

	allItems := make([]Item, 0, 64)
	meta := Meta{}

	for i := 0; i < sources; i++ {
		result := <-resultsChan
		if result.err != nil {
			// Log but continue - one source failure should not break the feed
			logger.Log.Warn("Feed source failed",
				zap.String("source", result.source),
				zap.Error(result.err))
			metrics.Get().FeedSourceFailures.WithLabelValues(result.source).Inc()
			meta.Failed++
			continue
		}

		switch result.source {
		case "calendar":
			meta.GoogleEvents = len(result.items)
		case "tasks":
			meta.GoogleTasks = len(result.items)
		case "clio":
			meta.ClioEntries = len(result.items)
		}

		allItems = append(allItems, result.items...)
	}

	sort.Slice(allItems, func(i, j int) bool {
		return allItems[i].startAt.Before(allItems[j].startAt)
	})

	return &Response{Items: allItems, Meta: meta}, nil
}

// googleEvents fetches and normalizes Google Calendar events
func (s *Service) googleEvents(ctx context.Context, token string, start, end time.Time) ([]Item, error) {
	events, err := s.googleClient.CalendarEvents(ctx, token, start, end)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(events))
	for _, event := range events {
		startTime, ok := event.StartTime()
		if !ok {
			continue
		}

		// Events with other participants render as meetings
		eventType := "Event"
		if len(event.Attendees) > 0 {
			eventType = "Meeting"
		}

		attendees := make([]string, 0, len(event.Attendees))
		for _, a := range event.Attendees {
			if a.DisplayName != "" {
				attendees = append(attendees, a.DisplayName)
			} else if a.Email != "" {
				attendees = append(attendees, a.Email)
			}
		}

		items = append(items, Item{
			ID:          "gcal-" + event.ID,
			Title:       titleOr(event.Summary, "(no title)"),
			Type:        eventType,
			Date:        startTime.Format("2006-01-02"),
			Time:        startTime.Format("3:04 PM"),
			DateTime:    startTime.Format(time.RFC3339),
			Description: event.Description,
			Location:    event.Location,
			HangoutLink: event.HangoutLink,
			Attendees:   attendees,
			Source:      "calendar",
			startAt:     startTime,
		})
	}
	return items, nil
}

// googleTasks fetches and normalizes Google Tasks due in the window
func (s *Service) googleTasks(ctx context.Context, token string, start, end time.Time) ([]Item, error) {
	tasks, err := s.googleClient.Tasks(ctx, token, start, end)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(tasks))
	for _, task := range tasks {
		due, ok := task.DueTime()
		if !ok {
			continue
		}

		items = append(items, Item{
			ID:          "gtask-" + task.ID,
			Title:       titleOr(task.Title, "(untitled task)"),
			Type:        "Task",
			Date:        due.Format("2006-01-02"),
			Time:        due.Format("3:04 PM"),
			DateTime:    due.Format(time.RFC3339),
			Description: task.Notes,
			Source:      "tasks",
			startAt:     due,
		})
	}
	return items, nil
}

// clioEntries fetches and normalizes case-management calendar entries
func (s *Service) clioEntries(ctx context.Context, token string, start, end time.Time) ([]Item, error) {
	entries, err := s.clioClient.ListCalendarEntries(ctx, token,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		startTime, err := time.Parse(time.RFC3339, entry.StartAt)
		if err != nil {
			continue
		}

		eventType := "Court"
		if entry.CalendarEntryEventType != nil && entry.CalendarEntryEventType.Name != "" {
			eventType = entry.CalendarEntryEventType.Name
		}

		attendees := make([]string, 0, len(entry.Attendees))
		for _, a := range entry.Attendees {
			if a.Name != "" {
				attendees = append(attendees, a.Name)
			}
		}

		location := ""
		if entry.Location != nil {
			location = entry.Location.Name
		}

		items = append(items, Item{
			ID:          "clio-" + strconv.FormatInt(entry.ID, 10),
			Title:       titleOr(entry.Summary, "(no title)"),
			Type:        eventType,
			Date:        startTime.Format("2006-01-02"),
			Time:        startTime.Format("3:04 PM"),
			DateTime:    startTime.Format(time.RFC3339),
			Description: entry.Description,
			Location:    location,
			Attendees:   attendees,
			Source:      "clio",
			startAt:     startTime,
		})
	}
	return items, nil
}

func titleOr(title, fallback string) string {
	if title == "" {
		return fallback
	}
	return title
}
