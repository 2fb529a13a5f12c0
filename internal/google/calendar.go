package google

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// EventTime is the Calendar API start/end object. Timed events carry
// DateTime; all-day events carry only Date.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Attendee is a calendar event participant
type Attendee struct {
	Email          string `json:"email,omitempty"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
	Organizer      bool   `json:"organizer,omitempty"`
}

// Event is a Google Calendar event
type Event struct {
	ID          string     `json:"id"`
	Status      string     `json:"status,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	HangoutLink string     `json:"hangoutLink,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

// CalendarEvents fetches the primary calendar's events in
// [timeMin, timeMax], expanded to single instances and ordered by
// start time.
func (c *Client) CalendarEvents(ctx context.Context, token string, timeMin, timeMax time.Time) ([]Event, error) {
	q := url.Values{}
	q.Set("timeMin", timeMin.Format(time.RFC3339))
	q.Set("timeMax", timeMax.Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", "100")

	var result struct {
		Items []Event `json:"items"`
	}
	endpoint := c.calendarURL + "/calendars/primary/events?" + q.Encode()
	if err := c.doJSON(ctx, token, http.MethodGet, endpoint, nil, "", &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// StartTime resolves an event's start as a time.Time. All-day events
// resolve to midnight of their date.
func (e Event) StartTime() (time.Time, bool) {
	if e.Start.DateTime != "" {
		t, err := time.Parse(time.RFC3339, e.Start.DateTime)
		if err == nil {
			return t, true
		}
	}
	if e.Start.Date != "" {
		t, err := time.Parse("2006-01-02", e.Start.Date)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
