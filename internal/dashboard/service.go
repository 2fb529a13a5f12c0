package dashboard

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/counseldesk/backend/internal/clio"
	"github.com/counseldesk/backend/internal/logger"
	"go.uber.org/zap"
)

// Staleness thresholds for the matter-activity metrics.
const (
	followupAfter  = 30 * 24 * time.Hour
	untouchedAfter = 60 * 24 * time.Hour
	inactiveAfter  = 90 * 24 * time.Hour
)

// activitySampleSize is how many matters the activity-derived metrics
// inspect. A full scan is too expensive for a dashboard load.
const activitySampleSize = 100

// Service aggregates case-management data into dashboard views
type Service struct {
	clioClient *clio.Client
	now        func() time.Time
}

// NewService creates a new dashboard service
func NewService(clioClient *clio.Client) *Service {
	return &Service{
		clioClient: clioClient,
		now:        time.Now,
	}
}

// SetNow overrides the clock, used by tests
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// countMetric is one KPI backed by a single count query
type countMetric struct {
	name     string
	resource string
	params   func(now time.Time) url.Values
}

func staticParams(pairs ...string) func(time.Time) url.Values {
	return func(time.Time) url.Values {
		q := url.Values{}
		for i := 0; i+1 < len(pairs); i += 2 {
			q.Set(pairs[i], pairs[i+1])
		}
		return q
	}
}

var countMetrics = []countMetric{
	{"pending_matters", "matters", staticParams("status", "Pending")},
	{"bills_awaiting_payment", "bills", staticParams("state", "awaiting_payment")},
	{"outstanding_balances", "bills/outstanding_balances.json", staticParams()},
	{"dockets_to_review", "tasks", staticParams("query", "docket", "complete", "false")},
	{"outstanding_tasks", "tasks", staticParams("complete", "false")},
	{"past_due_tasks", "tasks", func(now time.Time) url.Values {
		q := url.Values{}
		q.Set("complete", "false")
		q.Set("due_at_to", now.Format("2006-01-02"))
		return q
	}},
	{"negative_balance_cases", "bills", staticParams("state", "past_due")},
	{"replenishment_needed", "trust_requests", staticParams("state", "pending")},
}

// KPIs fetches every dashboard metric in parallel. A failing metric is
// logged and reported as 0 so one bad query never blanks the whole
// card row. The four activity metrics share a single sampled matter
// fetch instead of count queries.
func (s *Service) KPIs(ctx context.Context, token string) map[string]int {
	now := s.now()

	metrics := make(map[string]int, len(countMetrics)+4)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, metric := range countMetrics {
		wg.Add(1)
		go func(metric countMetric) {
			defer wg.Done()
			count, err := s.clioClient.Count(ctx, token, metric.resource, metric.params(now))
			if err != nil {
				logger.Log.Warn("KPI count failed",
					zap.String("metric", metric.name),
					zap.Error(err))
				count = 0
			}
			mu.Lock()
			metrics[metric.name] = count
			mu.Unlock()
		}(metric)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		derived := s.activityMetrics(ctx, token, now)
		mu.Lock()
		for name, count := range derived {
			metrics[name] = count
		}
		mu.Unlock()
	}()

	wg.Wait()
	return metrics
}

// activityMetrics derives the staleness counts from one sampled fetch
// of open matters ordered by last activity.
func (s *Service) activityMetrics(ctx context.Context, token string, now time.Time) map[string]int {
	derived := map[string]int{
		"clients_due_for_followup": 0,
		"untouched_cases":          0,
		"inactive_matters":         0,
		"inactive_clients":         0,
	}

	matters, err := s.clioClient.ListMatters(ctx, token, clio.ListParams{
		Limit:  activitySampleSize,
		Status: "open",
		Order:  "last_activity_date(asc)",
	})
	if err != nil {
		logger.Log.Warn("KPI activity fetch failed", zap.Error(err))
		return derived
	}

	inactiveClients := map[int64]bool{}
	for _, matter := range matters {
		if matter.LastActivityDate == "" {
			continue
		}
		lastActivity, err := time.Parse("2006-01-02", matter.LastActivityDate)
		if err != nil {
			continue
		}
		age := now.Sub(lastActivity)

		if age > followupAfter {
			derived["clients_due_for_followup"]++
		}
		if age > untouchedAfter {
			derived["untouched_cases"]++
		}
		if age > inactiveAfter {
			derived["inactive_matters"]++
			if matter.Client != nil && matter.Client.ID != 0 {
				inactiveClients[matter.Client.ID] = true
			}
		}
	}
	derived["inactive_clients"] = len(inactiveClients)
	return derived
}

// Page is one page of a dashboard list plus its total
type Page[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
}

// MattersPage fetches one page of matters and the matching total in
// parallel. The two calls are independent, so the total can drift from
// the page when records change between them; a fresh load heals it.
func (s *Service) MattersPage(ctx context.Context, token string, page int, status, order string) (*Page[clio.Matter], error) {
	offset := (page - 1) * clio.MattersPerPage

	var (
		wg       sync.WaitGroup
		matters  []clio.Matter
		total    int
		listErr  error
		countErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		matters, listErr = s.clioClient.ListMatters(ctx, token, clio.ListParams{
			Limit:  clio.MattersPerPage,
			Offset: offset,
			Status: status,
			Order:  order,
		})
	}()
	go func() {
		defer wg.Done()
		params := url.Values{}
		if status != "" && status != "All" {
			params.Set("status", status)
		}
		total, countErr = s.clioClient.Count(ctx, token, "matters", params)
	}()
	wg.Wait()

	if listErr != nil {
		return nil, listErr
	}
	if countErr != nil {
		logger.Log.Warn("Matters count failed", zap.Error(countErr))
		total = len(matters)
	}

	return &Page[clio.Matter]{
		Data:       matters,
		TotalCount: total,
		Page:       page,
		PerPage:    clio.MattersPerPage,
	}, nil
}

// TaskFilters narrow the tasks page
type TaskFilters struct {
	Status     string
	Order      string
	Priority   string
	TaskTypeID string
}

// TasksPage fetches one page of tasks plus the matching total. The
// priority filter is applied after the fetch; the provider API has no
// priority parameter, so a filtered page can come back short.
func (s *Service) TasksPage(ctx context.Context, token string, page int, filters TaskFilters) (*Page[clio.Task], error) {
	offset := (page - 1) * clio.TasksPerPage

	var (
		wg       sync.WaitGroup
		tasks    []clio.Task
		total    int
		listErr  error
		countErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		tasks, listErr = s.clioClient.ListTasks(ctx, token, clio.TaskListParams{
			ListParams: clio.ListParams{
				Limit:  clio.TasksPerPage,
				Offset: offset,
				Status: filters.Status,
				Order:  filters.Order,
			},
			TaskTypeID: filters.TaskTypeID,
		})
	}()
	go func() {
		defer wg.Done()
		total, countErr = s.tasksCount(ctx, token, filters)
	}()
	wg.Wait()

	if listErr != nil {
		return nil, listErr
	}
	if countErr != nil {
		logger.Log.Warn("Tasks count failed", zap.Error(countErr))
		total = len(tasks)
	}

	if filters.Priority != "" && filters.Priority != "All" {
		filtered := make([]clio.Task, 0, len(tasks))
		for _, task := range tasks {
			if task.Priority == filters.Priority {
				filtered = append(filtered, task)
			}
		}
		tasks = filtered
	}

	return &Page[clio.Task]{
		Data:       tasks,
		TotalCount: total,
		Page:       page,
		PerPage:    clio.TasksPerPage,
	}, nil
}

// tasksCount totals the tasks matching the filters. The derived
// incomplete status sums one count per underlying status.
func (s *Service) tasksCount(ctx context.Context, token string, filters TaskFilters) (int, error) {
	statuses := []string{filters.Status}
	if filters.Status == clio.StatusIncomplete {
		statuses = []string{"pending", "in_progress", "in_review"}
	}

	type countResult struct {
		count int
		err   error
	}
	resultsChan := make(chan countResult, len(statuses))

	for _, status := range statuses {
		go func(status string) {
			params := url.Values{}
			if status != "" && status != "All" {
				params.Set("status", status)
			}
			if filters.TaskTypeID != "" {
				params.Set("task_type_id", filters.TaskTypeID)
			}
			count, err := s.clioClient.Count(ctx, token, "tasks", params)
			resultsChan <- countResult{count: count, err: err}
		}(status)
	}

	total := 0
	for range statuses {
		result := <-resultsChan
		if result.err != nil {
			return 0, result.err
		}
		total += result.count
	}
	return total, nil
}

// Notification is a recent change in the user's practice
type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // "matter", "task", "event"
	Title     string `json:"title"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Notifications fetches everything created since the caller's last
// visit, newest first. Sources fan out in parallel and a failing
// source is logged and skipped.
func (s *Service) Notifications(ctx context.Context, token string, since time.Time) []Notification {
	type sourceResult struct {
		items  []Notification
		source string
		err    error
	}
	resultsChan := make(chan sourceResult, 3)

	go func() {
		items, err := s.newMatters(ctx, token, since)
		resultsChan <- sourceResult{items: items, source: "matters", err: err}
	}()
	go func() {
		items, err := s.newTasks(ctx, token, since)
		resultsChan <- sourceResult{items: items, source: "tasks", err: err}
	}()
	go func() {
		items, err := s.upcomingEntries(ctx, token, since)
		resultsChan <- sourceResult{items: items, source: "calendar", err: err}
	}()

	notifications := make([]Notification, 0, 16)
	for i := 0; i < 3; i++ {
		result := <-resultsChan
		if result.err != nil {
			logger.Log.Warn("Notification source failed",
				zap.String("source", result.source),
				zap.Error(result.err))
			continue
		}
		notifications = append(notifications, result.items...)
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt > notifications[j].CreatedAt
	})
	return notifications
}

func (s *Service) newMatters(ctx context.Context, token string, since time.Time) ([]Notification, error) {
	resp, err := s.clioClient.Do(ctx, token, "GET",
		"matters?"+sinceQuery("created_since", since, "id,display_number,description,created_at"), nil)
	if err != nil {
		return nil, err
	}
	matters, err := clio.DecodeList[clio.Matter](resp)
	if err != nil {
		return nil, err
	}

	items := make([]Notification, 0, len(matters))
	for _, matter := range matters {
		items = append(items, Notification{
			ID:        "matter-" + strconv.FormatInt(matter.ID, 10),
			Type:      "matter",
			Title:     "New matter " + matter.DisplayNumber,
			Detail:    matter.Description,
			CreatedAt: matter.CreatedAt,
		})
	}
	return items, nil
}

func (s *Service) newTasks(ctx context.Context, token string, since time.Time) ([]Notification, error) {
	resp, err := s.clioClient.Do(ctx, token, "GET",
		"tasks?"+sinceQuery("created_since", since, "id,name,status,created_at"), nil)
	if err != nil {
		return nil, err
	}
	tasks, err := clio.DecodeList[clio.Task](resp)
	if err != nil {
		return nil, err
	}

	items := make([]Notification, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, Notification{
			ID:        "task-" + strconv.FormatInt(task.ID, 10),
			Type:      "task",
			Title:     "New task: " + task.Name,
			CreatedAt: task.CreatedAt,
		})
	}
	return items, nil
}

func (s *Service) upcomingEntries(ctx context.Context, token string, since time.Time) ([]Notification, error) {
	entries, err := s.clioClient.ListCalendarEntries(ctx, token,
		since.Format("2006-01-02"), s.now().AddDate(0, 0, 7).Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	items := make([]Notification, 0, len(entries))
	for _, entry := range entries {
		items = append(items, Notification{
			ID:        "event-" + strconv.FormatInt(entry.ID, 10),
			Type:      "event",
			Title:     entry.Summary,
			Detail:    entry.Description,
			CreatedAt: entry.StartAt,
		})
	}
	return items, nil
}

func sinceQuery(param string, since time.Time, fields string) string {
	q := url.Values{}
	q.Set(param, since.Format(time.RFC3339))
	q.Set("fields", fields)
	q.Set("limit", "25")
	return q.Encode()
}
