package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/counseldesk/backend/internal/clio"
	"github.com/counseldesk/backend/internal/google"
	"github.com/counseldesk/backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitializeForTests()
}

type fixture struct {
	service    *Service
	googleSrv  *httptest.Server
	clioSrv    *httptest.Server
	clioStatus int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{clioStatus: http.StatusOK}

	f.googleSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/calendars/primary/events":
			w.Write([]byte(`{"items":[
				{"id":"e1","summary":"Team sync","start":{"dateTime":"2026-09-02T15:00:00Z"},"end":{"dateTime":"2026-09-02T15:30:00Z"},"attendees":[{"email":"p@q.r","displayName":"Pat"}]},
				{"id":"e2","summary":"Focus block","start":{"dateTime":"2026-09-01T09:00:00Z"},"end":{"dateTime":"2026-09-01T11:00:00Z"}}
			]}`))
		case "/lists/@default/tasks":
			w.Write([]byte(`{"items":[
				{"id":"t1","title":"Draft brief","due":"2026-09-02T00:00:00Z"}
			]}`))
		default:
			t.Errorf("unexpected google path %s", r.URL.Path)
		}
	}))
	t.Cleanup(f.googleSrv.Close)

	f.clioSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.clioStatus != http.StatusOK {
			w.WriteHeader(f.clioStatus)
			w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		w.Write([]byte(`{"data":[
			{"id":7,"start_at":"2026-09-03T13:00:00Z","end_at":"2026-09-03T14:00:00Z","summary":"Status conference","calendar_entry_event_type":{"name":"Court Date"},"location":{"name":"Courtroom 4B"}}
		]}`))
	}))
	t.Cleanup(f.clioSrv.Close)

	googleClient := google.NewClient()
	googleClient.SetBaseURLs(f.googleSrv.URL, f.googleSrv.URL, f.googleSrv.URL)
	googleClient.SetHTTPClient(f.googleSrv.Client())

	clioClient := clio.NewClient(f.clioSrv.URL)
	clioClient.SetHTTPClient(f.clioSrv.Client())

	f.service = NewService(googleClient, clioClient)
	return f
}

func weekWindow() (time.Time, time.Time) {
	start := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 7)
}

func TestWeekFeed_MergesAndSortsAllSources(t *testing.T) {
	f := newFixture(t)
	start, end := weekWindow()

	resp, err := f.service.WeekFeed(context.Background(), "gtok", "ctok", start, end)
	require.NoError(t, err)

	require.Len(t, resp.Items, 4)
	assert.Equal(t, 2, resp.Meta.GoogleEvents)
	assert.Equal(t, 1, resp.Meta.GoogleTasks)
	assert.Equal(t, 1, resp.Meta.ClioEntries)
	assert.Equal(t, 0, resp.Meta.Failed)

	// Ascending by start time regardless of source.
	for i := 1; i < len(resp.Items); i++ {
		prev, err := time.Parse(time.RFC3339, resp.Items[i-1].DateTime)
		require.NoError(t, err)
		next, err := time.Parse(time.RFC3339, resp.Items[i].DateTime)
		require.NoError(t, err)
		assert.False(t, next.Before(prev))
	}
	assert.Equal(t, "gcal-e2", resp.Items[0].ID)
	assert.Equal(t, "clio-7", resp.Items[3].ID)

	assert.Equal(t, "calendar", resp.Items[0].Source)
	assert.Equal(t, "clio", resp.Items[3].Source)
}

func TestWeekFeed_OrdersByInstantAcrossOffsets(t *testing.T) {
	googleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/calendars/primary/events":
			// 01:00+09:00 on Sep 2 is 16:00Z on Sep 1
			w.Write([]byte(`{"items":[
				{"id":"e1","summary":"Tokyo call","start":{"dateTime":"2026-09-02T01:00:00+09:00"},"end":{"dateTime":"2026-09-02T02:00:00+09:00"}}
			]}`))
		case "/lists/@default/tasks":
			w.Write([]byte(`{"items":[]}`))
		}
	}))
	t.Cleanup(googleSrv.Close)

	clioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":7,"start_at":"2026-09-01T20:00:00Z","end_at":"2026-09-01T21:00:00Z","summary":"Filing deadline"}
		]}`))
	}))
	t.Cleanup(clioSrv.Close)

	googleClient := google.NewClient()
	googleClient.SetBaseURLs(googleSrv.URL, googleSrv.URL, googleSrv.URL)
	googleClient.SetHTTPClient(googleSrv.Client())
	clioClient := clio.NewClient(clioSrv.URL)
	clioClient.SetHTTPClient(clioSrv.Client())

	start, end := weekWindow()
	resp, err := NewService(googleClient, clioClient).WeekFeed(context.Background(), "gtok", "ctok", start, end)
	require.NoError(t, err)

	// The Google event's local-time string sorts after the Clio entry's
	// even though its instant comes first.
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "gcal-e1", resp.Items[0].ID)
	assert.Equal(t, "clio-7", resp.Items[1].ID)
}

func TestWeekFeed_TypesNormalization(t *testing.T) {
	f := newFixture(t)
	start, end := weekWindow()

	resp, err := f.service.WeekFeed(context.Background(), "gtok", "ctok", start, end)
	require.NoError(t, err)

	byID := map[string]Item{}
	for _, item := range resp.Items {
		byID[item.ID] = item
	}

	assert.Equal(t, "Meeting", byID["gcal-e1"].Type)
	assert.Equal(t, []string{"Pat"}, byID["gcal-e1"].Attendees)
	assert.Equal(t, "Event", byID["gcal-e2"].Type)
	assert.Equal(t, "Task", byID["gtask-t1"].Type)
	assert.Equal(t, "tasks", byID["gtask-t1"].Source)
	assert.Equal(t, "Court Date", byID["clio-7"].Type)
	assert.Equal(t, "Courtroom 4B", byID["clio-7"].Location)
}

func TestWeekFeed_PartialResultWhenSourceFails(t *testing.T) {
	f := newFixture(t)
	f.clioStatus = http.StatusInternalServerError
	start, end := weekWindow()

	resp, err := f.service.WeekFeed(context.Background(), "gtok", "ctok", start, end)
	require.NoError(t, err)

	assert.Len(t, resp.Items, 3)
	assert.Equal(t, 1, resp.Meta.Failed)
	assert.Equal(t, 0, resp.Meta.ClioEntries)
}

func TestWeekFeed_SkipsClioWithoutToken(t *testing.T) {
	f := newFixture(t)
	f.clioStatus = http.StatusInternalServerError // would fail if called
	start, end := weekWindow()

	resp, err := f.service.WeekFeed(context.Background(), "gtok", "", start, end)
	require.NoError(t, err)

	assert.Len(t, resp.Items, 3)
	assert.Equal(t, 0, resp.Meta.Failed)
}
