package clio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apierrors "github.com/counseldesk/backend/internal/errors"
	"github.com/counseldesk/backend/internal/metrics"
	"github.com/counseldesk/backend/internal/telemetry"
)

// Fixed page sizes used by the dashboard list views.
const (
	MattersPerPage = 15
	TasksPerPage   = 6
)

// StatusIncomplete is a derived task status: the union of the three
// underlying open statuses, fetched with a parallel fan-out.
const StatusIncomplete = "incomplete"

// incompleteStatuses are the upstream statuses behind StatusIncomplete,
// in the order their results are concatenated.
var incompleteStatuses = []string{"pending", "in_progress", "in_review"}

// Client is a thin wrapper over the Clio v4 REST API. Every method
// takes the caller's access token explicitly; the client holds no
// credentials of its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Clio API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{
			ServiceName: "clio",
			Timeout:     15 * time.Second,
		}),
	}
}

// SetHTTPClient overrides the HTTP client, used by tests
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Meta is the list-response metadata envelope
type Meta struct {
	Records int `json:"records"`
}

// Response is a raw relay of an upstream response, used by the proxy route
type Response struct {
	Status int
	Body   []byte
}

// NamedRef is the {id, name} sub-object Clio embeds for relations
type NamedRef struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Matter is a legal case/engagement record
type Matter struct {
	ID                  int64     `json:"id"`
	DisplayNumber       string    `json:"display_number,omitempty"`
	Description         string    `json:"description,omitempty"`
	Status              string    `json:"status,omitempty"`
	OpenDate            string    `json:"open_date,omitempty"`
	LastActivityDate    string    `json:"last_activity_date,omitempty"`
	Client              *NamedRef `json:"client,omitempty"`
	PracticeArea        *NamedRef `json:"practice_area,omitempty"`
	ResponsibleAttorney *NamedRef `json:"responsible_attorney,omitempty"`
	BillingMethod       string    `json:"billing_method,omitempty"`
	CreatedAt           string    `json:"created_at,omitempty"`
	UpdatedAt           string    `json:"updated_at,omitempty"`
	MaildropAddress     string    `json:"maildrop_address,omitempty"`
}

// Task is a provider-defined task record
type Task struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	DueAt       string    `json:"due_at,omitempty"`
	CompletedAt string    `json:"completed_at,omitempty"`
	CreatedAt   string    `json:"created_at,omitempty"`
	TaskType    *NamedRef `json:"task_type,omitempty"`
	Assignee    *NamedRef `json:"assignee,omitempty"`
	Matter      *struct {
		DisplayNumber string `json:"display_number,omitempty"`
	} `json:"matter,omitempty"`
}

// TaskType is a task category
type TaskType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CalendarEntry is a Clio calendar event
type CalendarEntry struct {
	ID                     int64      `json:"id"`
	StartAt                string     `json:"start_at,omitempty"`
	EndAt                  string     `json:"end_at,omitempty"`
	Summary                string     `json:"summary,omitempty"`
	Description            string     `json:"description,omitempty"`
	Location               *NamedRef  `json:"location,omitempty"`
	Attendees              []NamedRef `json:"attendees,omitempty"`
	CalendarEntryEventType *NamedRef  `json:"calendar_entry_event_type,omitempty"`
}

// User is the authenticated Clio user
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// ListParams are the common list-endpoint parameters
type ListParams struct {
	Limit  int
	Offset int
	Status string // empty or "All" means unfiltered
	Order  string // e.g. "id(asc)", "open_date(desc)"
}

// TaskListParams extends ListParams with task-specific filters
type TaskListParams struct {
	ListParams
	TaskTypeID string
}

// Do forwards an arbitrary request to the Clio API and relays the raw
// response. This backs the generic proxy route: the endpoint, method,
// and body come from the caller, the status and JSON go back verbatim.
func (c *Client) Do(ctx context.Context, token, method, endpoint string, body interface{}) (*Response, error) {
	if method == "" {
		method = http.MethodGet
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, apierrors.InternalError("failed to encode request body")
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, reqBody)
	if err != nil {
		return nil, apierrors.BadRequest("invalid endpoint")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("clio", 0, time.Since(started))
		return nil, apierrors.Upstream("clio", 0, "request failed")
	}
	defer resp.Body.Close()
	metrics.RecordUpstream("clio", resp.StatusCode, time.Since(started))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierrors.Upstream("clio", resp.StatusCode, "failed to read response")
	}

	return &Response{Status: resp.StatusCode, Body: respBody}, nil
}

// get performs a GET and decodes a 2xx response into out. Non-2xx
// responses become an upstream error carrying the provider's status
// and error payload.
func (c *Client) get(ctx context.Context, token, endpoint string, out interface{}) error {
	resp, err := c.Do(ctx, token, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	if resp.Status < 200 || resp.Status >= 300 {
		return apierrors.Upstream("clio", resp.Status, providerMessage(resp.Body)).WithDetails(resp.Body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return apierrors.Upstream("clio", resp.Status, "unexpected response format")
	}
	return nil
}

// DecodeList decodes a relayed list response. Non-2xx responses become
// upstream errors carrying the provider's status and payload.
func DecodeList[T any](resp *Response) ([]T, error) {
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, apierrors.Upstream("clio", resp.Status, providerMessage(resp.Body)).WithDetails(resp.Body)
	}
	var result struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, apierrors.Upstream("clio", resp.Status, "unexpected response format")
	}
	return result.Data, nil
}

// providerMessage extracts Clio's error message from its payload
func providerMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return "clio request failed"
}

// listQuery builds the common limit/offset/fields/status/order query string
func listQuery(params ListParams, fields string) url.Values {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", params.Limit))
	q.Set("offset", fmt.Sprintf("%d", params.Offset))
	q.Set("fields", fields)
	if params.Status != "" && params.Status != "All" {
		q.Set("status", params.Status)
	}
	if params.Order != "" && params.Order != "Default" {
		q.Set("order", params.Order)
	}
	return q
}

const matterFields = "id,display_number,description,status,open_date,last_activity_date,client{id,name},practice_area{name}"

// ListMatters fetches one page of matters
func (c *Client) ListMatters(ctx context.Context, token string, params ListParams) ([]Matter, error) {
	if params.Limit == 0 {
		params.Limit = MattersPerPage
	}
	q := listQuery(params, matterFields)

	var result struct {
		Data []Matter `json:"data"`
		Meta Meta     `json:"meta"`
	}
	if err := c.get(ctx, token, "matters?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetMatter fetches full details for a single matter
func (c *Client) GetMatter(ctx context.Context, token string, matterID int64) (*Matter, error) {
	fields := "id,display_number,description,status,open_date,client{id,name},practice_area{name},responsible_attorney{name},billing_method,created_at,updated_at,maildrop_address"
	var result struct {
		Data Matter `json:"data"`
	}
	endpoint := fmt.Sprintf("matters/%d?fields=%s", matterID, url.QueryEscape(fields))
	if err := c.get(ctx, token, endpoint, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

const taskFields = "id,name,status,priority,due_at,created_at,task_type{name},assignee{name}"

// ListTasks fetches one page of tasks. The derived status
// StatusIncomplete fans out one request per underlying open status,
// all with the caller's limit/offset, and concatenates the results in
// status order. The combined list is NOT re-sorted by the requested
// order; pages of a fan-out are per-status pages, not a merged page.
func (c *Client) ListTasks(ctx context.Context, token string, params TaskListParams) ([]Task, error) {
	if params.Limit == 0 {
		params.Limit = TasksPerPage
	}

	if params.Status != StatusIncomplete {
		return c.listTasksOnce(ctx, token, params)
	}

	// Fan out the three open statuses in parallel.
	type statusResult struct {
		index int
		tasks []Task
		err   error
	}
	resultsChan := make(chan statusResult, len(incompleteStatuses))

	for i, status := range incompleteStatuses {
		go func(index int, status string) {
			p := params
			p.Status = status
			tasks, err := c.listTasksOnce(ctx, token, p)
			resultsChan <- statusResult{index: index, tasks: tasks, err: err}
		}(i, status)
	}

	byStatus := make([][]Task, len(incompleteStatuses))
	for range incompleteStatuses {
		result := <-resultsChan
		if result.err != nil {
			return nil, result.err
		}
		byStatus[result.index] = result.tasks
	}

	var combined []Task
	for _, tasks := range byStatus {
		combined = append(combined, tasks...)
	}
	return combined, nil
}

// listTasksOnce fetches a single task page for one concrete status
func (c *Client) listTasksOnce(ctx context.Context, token string, params TaskListParams) ([]Task, error) {
	q := listQuery(params.ListParams, taskFields)
	if params.TaskTypeID != "" {
		q.Set("task_type_id", params.TaskTypeID)
	}

	var result struct {
		Data []Task `json:"data"`
		Meta Meta   `json:"meta"`
	}
	if err := c.get(ctx, token, "tasks?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetTask fetches full details for a single task
func (c *Client) GetTask(ctx context.Context, token string, taskID int64) (*Task, error) {
	fields := "id,name,description,due_at,completed_at,status,priority,task_type{name},matter{display_number}"
	var result struct {
		Data Task `json:"data"`
	}
	endpoint := fmt.Sprintf("tasks/%d?fields=%s", taskID, url.QueryEscape(fields))
	if err := c.get(ctx, token, endpoint, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// ListTaskTypes fetches all task categories
func (c *Client) ListTaskTypes(ctx context.Context, token string) ([]TaskType, error) {
	var result struct {
		Data []TaskType `json:"data"`
	}
	if err := c.get(ctx, token, "task_types?fields=id,name", &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

const calendarEntryFields = "id,start_at,end_at,summary,description,location{name},attendees{name},calendar_entry_event_type{name}"

// ListCalendarEntries fetches calendar entries in [startDate, endDate]
func (c *Client) ListCalendarEntries(ctx context.Context, token, startDate, endDate string) ([]CalendarEntry, error) {
	q := url.Values{}
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	q.Set("fields", calendarEntryFields)

	var result struct {
		Data []CalendarEntry `json:"data"`
	}
	if err := c.get(ctx, token, "calendar_entries.json?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// CurrentUser fetches the authenticated Clio user
func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var result struct {
		Data User `json:"data"`
	}
	if err := c.get(ctx, token, "users/who_am_i?fields=id,name", &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// Count returns how many records match a query without fetching them.
// Clio has no count endpoint, so this asks for a single id and reads
// meta.records — the one place that trick lives.
func (c *Client) Count(ctx context.Context, token, resource string, params url.Values) (int, error) {
	q := url.Values{}
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	q.Set("limit", "1")
	q.Set("fields", "id")

	var result struct {
		Meta Meta `json:"meta"`
	}
	if err := c.get(ctx, token, resource+"?"+q.Encode(), &result); err != nil {
		return 0, err
	}
	return result.Meta.Records, nil
}
