package google

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Task is a Google Tasks item
type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Notes  string `json:"notes,omitempty"`
	Status string `json:"status,omitempty"`
	Due    string `json:"due,omitempty"`
}

// Tasks fetches incomplete tasks from the default task list whose due
// date falls in [dueMin, dueMax]. Tasks without a due date are dropped
// because the feed has nowhere to place them.
func (c *Client) Tasks(ctx context.Context, token string, dueMin, dueMax time.Time) ([]Task, error) {
	q := url.Values{}
	q.Set("dueMin", dueMin.Format(time.RFC3339))
	q.Set("dueMax", dueMax.Format(time.RFC3339))
	q.Set("showCompleted", "false")
	q.Set("maxResults", "100")

	var result struct {
		Items []Task `json:"items"`
	}
	endpoint := c.tasksURL + "/lists/@default/tasks?" + q.Encode()
	if err := c.doJSON(ctx, token, http.MethodGet, endpoint, nil, "", &result); err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(result.Items))
	for _, task := range result.Items {
		if task.Due == "" {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// DueTime resolves a task's due timestamp
func (t Task) DueTime() (time.Time, bool) {
	if t.Due == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, t.Due)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
