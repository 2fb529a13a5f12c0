package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/counseldesk/backend/internal/auth"
	"github.com/counseldesk/backend/internal/chat"
	"github.com/counseldesk/backend/internal/clio"
	"github.com/counseldesk/backend/internal/config"
	"github.com/counseldesk/backend/internal/dashboard"
	"github.com/counseldesk/backend/internal/feed"
	"github.com/counseldesk/backend/internal/google"
	"github.com/counseldesk/backend/internal/logger"
	"github.com/counseldesk/backend/internal/metrics"
	"github.com/counseldesk/backend/internal/middleware"
	"github.com/counseldesk/backend/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitializeForTests()
}

type testEnv struct {
	router   *gin.Engine
	sessions *session.Manager
	clioSrv  *httptest.Server
	clioMux  *http.ServeMux
	gglSrv   *httptest.Server
	gglMux   *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		clioMux: http.NewServeMux(),
		gglMux:  http.NewServeMux(),
	}
	env.clioSrv = httptest.NewServer(env.clioMux)
	t.Cleanup(env.clioSrv.Close)
	env.gglSrv = httptest.NewServer(env.gglMux)
	t.Cleanup(env.gglSrv.Close)

	cfg := &config.Config{
		Environment:   "test",
		FrontendURL:   "http://localhost:3000",
		SessionSecret: []byte("test-secret"),
		Clio: config.ClioConfig{
			ClientID:     "cid",
			ClientSecret: "csecret",
			RedirectURI:  "http://localhost:3000/callback",
			APIBaseURL:   env.clioSrv.URL,
			TokenURL:     env.clioSrv.URL + "/oauth/token",
			AuthorizeURL: env.clioSrv.URL + "/oauth/authorize",
		},
	}

	env.sessions = session.NewManager(cfg.SessionSecret)

	googleClient := google.NewClient()
	googleClient.SetBaseURLs(env.gglSrv.URL, env.gglSrv.URL, env.gglSrv.URL)
	googleClient.SetHTTPClient(env.gglSrv.Client())

	clioClient := clio.NewClient(env.clioSrv.URL)
	clioClient.SetHTTPClient(env.clioSrv.Client())

	authService := auth.NewService(nil, cfg.Clio, env.sessions)
	authService.SetHTTPClient(env.clioSrv.Client())

	gemini := chat.NewGeminiClient("k")
	gemini.SetBaseURL(env.gglSrv.URL)
	gemini.SetHTTPClient(env.gglSrv.Client())

	h := NewHandlers(cfg, env.sessions, authService,
		googleClient, clioClient,
		feed.NewService(googleClient, clioClient),
		dashboard.NewService(clioClient),
		chat.NewService(googleClient, gemini))

	env.router = gin.New()
	RegisterRoutes(env.router, h, env.sessions)
	return env
}

func (env *testEnv) sessionToken(t *testing.T) string {
	t.Helper()
	signed, err := env.sessions.Issue(&session.Session{
		UserID:            "user-1",
		Email:             gofakeit.Email(),
		Name:              gofakeit.Name(),
		GoogleAccessToken: "gtok",
	})
	require.NoError(t, err)
	return signed
}

func (env *testEnv) request(t *testing.T, method, path, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func withSession(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func withClioToken(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set(middleware.ClioTokenHeader, token)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/calendar", "/api/matters", "/api/tasks", "/api/kpis", "/api/emails", "/api/notifications", "/api/auth/me"} {
		w := env.request(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := env.request(t, http.MethodPost, "/api/chat", `{"query":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClioProxy_MissingTokenIs401(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/clio", `{"endpoint":"matters"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error": "Access token is required"}`, w.Body.String())
}

func TestClioProxy_MissingEndpointIs400(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/clio", `{"accessToken":"tok"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClioProxy_RelaysUpstreamStatusAndBody(t *testing.T) {
	env := newTestEnv(t)
	env.clioMux.HandleFunc("/matters", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"no access"}}`))
	})

	w := env.request(t, http.MethodPost, "/api/clio", `{"accessToken":"tok","endpoint":"matters"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":{"message":"no access"}}`, w.Body.String())
}

func TestClioTokenExchange(t *testing.T) {
	env := newTestEnv(t)
	env.clioMux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "abc", r.PostForm.Get("code"))
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600}`))
	})

	w := env.request(t, http.MethodGet, "/api/clio/token?code=abc", "")
	require.Equal(t, http.StatusOK, w.Code)

	var tokens map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	assert.Equal(t, "at", tokens["access_token"])
}

func TestClioTokenExchange_MissingCode(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/api/clio/token", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClioTokenExchange_RelaysProviderRejection(t *testing.T) {
	env := newTestEnv(t)
	env.clioMux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
	})

	w := env.request(t, http.MethodGet, "/api/clio/token?code=stale", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_grant")
}

func TestCalendar_RequiresDateRange(t *testing.T) {
	env := newTestEnv(t)
	token := env.sessionToken(t)

	w := env.request(t, http.MethodGet, "/api/calendar", "", withSession(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodGet, "/api/calendar?startDate=2026-09-07&endDate=2026-09-01", "", withSession(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendar_PartialResultsOnSourceFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gglMux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"e1","summary":"Hearing","start":{"dateTime":"2026-09-02T10:00:00Z"},"end":{"dateTime":"2026-09-02T11:00:00Z"}}]}`))
	})
	env.gglMux.HandleFunc("/lists/@default/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	})
	env.clioMux.HandleFunc("/calendar_entries.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"down"}}`))
	})

	token := env.sessionToken(t)
	w := env.request(t, http.MethodGet, "/api/calendar?startDate=2026-09-01&endDate=2026-09-07", "",
		withSession(token), withClioToken("ctok"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp feed.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.Meta.Failed)
}

func TestMatters_RequiresClioToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.sessionToken(t)

	counter := metrics.Get().ErrorsTotal.WithLabelValues("UNAUTHORIZED", "/api/matters")
	before := testutil.ToFloat64(counter)

	w := env.request(t, http.MethodGet, "/api/matters", "", withSession(token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMatters_ReturnsPageWithTotal(t *testing.T) {
	env := newTestEnv(t)
	env.clioMux.HandleFunc("/matters", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") == "1" {
			w.Write([]byte(`{"data":[{"id":1}],"meta":{"records":22}}`))
			return
		}
		w.Write([]byte(`{"data":[{"id":1,"display_number":"00001-Smith"}],"meta":{"records":22}}`))
	})

	token := env.sessionToken(t)
	w := env.request(t, http.MethodGet, "/api/matters?page=1", "", withSession(token), withClioToken("ctok"))
	require.Equal(t, http.StatusOK, w.Code)

	var page dashboard.Page[clio.Matter]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 22, page.TotalCount)
	assert.Equal(t, 15, page.PerPage)
	require.Len(t, page.Data, 1)
}

func TestTasks_IncompleteFanOutConcatenated(t *testing.T) {
	env := newTestEnv(t)
	env.clioMux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") == "1" {
			w.Write([]byte(`{"data":[{"id":1}],"meta":{"records":1}}`))
			return
		}
		switch q.Get("status") {
		case "pending":
			w.Write([]byte(`{"data":[{"id":1,"name":"A","status":"pending"},{"id":2,"name":"B","status":"pending"}],"meta":{"records":2}}`))
		case "in_progress":
			w.Write([]byte(`{"data":[{"id":3,"name":"C","status":"in_progress"}],"meta":{"records":1}}`))
		case "in_review":
			w.Write([]byte(`{"data":[],"meta":{"records":0}}`))
		}
	})

	token := env.sessionToken(t)
	w := env.request(t, http.MethodGet, "/api/tasks?status=incomplete", "", withSession(token), withClioToken("ctok"))
	require.Equal(t, http.StatusOK, w.Code)

	var page dashboard.Page[clio.Task]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 3)
	assert.Equal(t, int64(1), page.Data[0].ID)
	assert.Equal(t, int64(2), page.Data[1].ID)
	assert.Equal(t, int64(3), page.Data[2].ID)
}

func TestEmails_ListAndMutate(t *testing.T) {
	env := newTestEnv(t)
	env.gglMux.HandleFunc("/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		w.Write([]byte(`{"messages":[{"id":"m1","threadId":"t1"}]}`))
	})
	env.gglMux.HandleFunc("/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"m1","threadId":"t1","labelIds":["INBOX","UNREAD"],"snippet":"hello","internalDate":"1756720800000","payload":{"mimeType":"text/plain","headers":[{"name":"From","value":"Pat <pat@firm.com>"},{"name":"Subject","value":"Hi"}],"body":{"size":5,"data":"aGVsbG8"}}}`))
	})

	var modified map[string]interface{}
	env.gglMux.HandleFunc("/users/me/messages/m1/modify", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&modified))
		w.Write([]byte(`{"id":"m1"}`))
	})

	token := env.sessionToken(t)

	w := env.request(t, http.MethodGet, "/api/emails", "", withSession(token))
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Emails []google.EmailSummary `json:"emails"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Emails, 1)
	assert.Equal(t, "Pat", listResp.Emails[0].Sender)
	assert.Equal(t, "pat@firm.com", listResp.Emails[0].SenderEmail)
	assert.True(t, listResp.Emails[0].IsUnread)
	assert.Equal(t, "hello", listResp.Emails[0].FullBody)
	assert.Equal(t, "google", listResp.Emails[0].EmailClient)

	// the wire keys are part of the dashboard contract
	for _, key := range []string{`"sender"`, `"fullBody"`, `"emailClient"`} {
		assert.Contains(t, w.Body.String(), key)
	}

	w = env.request(t, http.MethodPost, "/api/emails/read", `{"messageId":"m1"}`, withSession(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"UNREAD"}, modified["removeLabelIds"])

	w = env.request(t, http.MethodPost, "/api/emails/archive", `{"messageId":"m1"}`, withSession(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"INBOX"}, modified["removeLabelIds"])

	w = env.request(t, http.MethodPost, "/api/emails/read", `{}`, withSession(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_RequiresQuery(t *testing.T) {
	env := newTestEnv(t)
	token := env.sessionToken(t)

	w := env.request(t, http.MethodPost, "/api/chat", `{}`, withSession(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotifications_InvalidSinceIs400(t *testing.T) {
	env := newTestEnv(t)
	token := env.sessionToken(t)

	w := env.request(t, http.MethodGet, "/api/notifications?since=yesterday", "",
		withSession(token), withClioToken("ctok"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionExpiry(t *testing.T) {
	env := newTestEnv(t)
	expired := session.NewManagerWithTTL([]byte("test-secret"), -time.Minute)
	signed, err := expired.Issue(&session.Session{UserID: "user-1"})
	require.NoError(t, err)

	w := env.request(t, http.MethodGet, "/api/auth/me", "", withSession(signed))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
