package google

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarEvents_QueryAndDecode(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		assert.Equal(t, "startTime", r.URL.Query().Get("orderBy"))
		assert.NotEmpty(t, r.URL.Query().Get("timeMin"))
		assert.NotEmpty(t, r.URL.Query().Get("timeMax"))
		w.Write([]byte(`{"items":[
			{"id":"e1","summary":"Client call","start":{"dateTime":"2026-09-02T09:00:00Z"},"end":{"dateTime":"2026-09-02T09:30:00Z"},"attendees":[{"email":"x@y.z"}]},
			{"id":"e2","summary":"Filing deadline","start":{"date":"2026-09-03"},"end":{"date":"2026-09-04"}}
		]}`))
	}))
	defer server.Close()

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	events, err := client.CalendarEvents(context.Background(), "tok", start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Client call", events[0].Summary)
	assert.Len(t, events[0].Attendees, 1)
}

func TestEventStartTime(t *testing.T) {
	timed := Event{Start: EventTime{DateTime: "2026-09-02T09:00:00Z"}}
	got, ok := timed.StartTime()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC), got)

	allDay := Event{Start: EventTime{Date: "2026-09-03"}}
	got, ok = allDay.StartTime()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC), got)

	_, ok = Event{}.StartTime()
	assert.False(t, ok)
}

func TestTasks_DropsTasksWithoutDueDate(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lists/@default/tasks", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("showCompleted"))
		w.Write([]byte(`{"items":[
			{"id":"t1","title":"Draft brief","due":"2026-09-04T00:00:00.000Z"},
			{"id":"t2","title":"Someday"},
			{"id":"t3","title":"Call clerk","due":"2026-09-05T00:00:00.000Z"}
		]}`))
	}))
	defer server.Close()

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	tasks, err := client.Tasks(context.Background(), "tok", start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, "t3", tasks[1].ID)
}
