package handlers

import (
	"net/http"
	"time"

	"github.com/counseldesk/backend/internal/dashboard"
	"github.com/counseldesk/backend/internal/middleware"
	"github.com/counseldesk/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// requireClioToken pulls the provider token off the request or fails
// with a 401. Every dashboard view is backed by case-management data.
func requireClioToken(c *gin.Context) (string, bool) {
	token := middleware.ClioToken(c)
	if token == "" {
		util.RespondUnauthorized(c, "case management account not connected")
		return "", false
	}
	return token, true
}

// Matters returns one page of matters with the total count
func (h *Handlers) Matters(c *gin.Context) {
	token, ok := requireClioToken(c)
	if !ok {
		return
	}

	page := util.ParsePage(c.Query("page"))
	result, err := h.dashboard.MattersPage(c.Request.Context(), token, page,
		c.Query("status"), c.Query("order"))
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MatterDetails returns full details for one matter
func (h *Handlers) MatterDetails(c *gin.Context) {
	token, ok := requireClioToken(c)
	if !ok {
		return
	}

	matterID := util.ParseInt(c.Param("id"), 0)
	if matterID <= 0 {
		util.RespondBadRequest(c, "invalid matter id")
		return
	}

	matter, err := h.clio.GetMatter(c.Request.Context(), token, int64(matterID))
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": matter})
}

// Tasks returns one page of tasks with the total count
func (h *Handlers) Tasks(c *gin.Context) {
	token, ok := requireClioToken(c)
	if !ok {
		return
	}

	page := util.ParsePage(c.Query("page"))
	result, err := h.dashboard.TasksPage(c.Request.Context(), token, page, dashboard.TaskFilters{
		Status:     c.Query("status"),
		Order:      c.Query("order"),
		Priority:   c.Query("priority"),
		TaskTypeID: c.Query("task_type_id"),
	})
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// TaskDetails returns full details for one task
func (h *Handlers) TaskDetails(c *gin.Context) {
	token, ok := requireClioToken(c)
	if !ok {
		return
	}

	taskID := util.ParseInt(c.Param("id"), 0)
	if taskID <= 0 {
		util.RespondBadRequest(c, "invalid task id")
		return
	}

	task, err := h.clio.GetTask(c.Request.Context(), token, int64(taskID))
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": task})
}

// TaskTypes returns the provider's task categories
func (h *Handlers) TaskTypes(c *gin.Context) {
	token, ok := requireClioToken(c)
	if !ok {
		return
	}

	types, err := h.clio.ListTaskTypes(c.Request.Context(), token)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": types})
}

// KPIs returns every dashboard metric; failed metrics read as 0
func (h *Handlers) KPIs(c *gin.Context) {
	token, ok := requireClioToken(c)
	if !ok {
		return
	}

	metrics := h.dashboard.KPIs(c.Request.Context(), token)
	c.JSON(http.StatusOK, gin.H{"metrics": metrics})
}

// Notifications returns changes since the caller's last visit. The
// browser owns the last-visit timestamp; absent, the window defaults
// to the past 24 hours.
func (h *Handlers) Notifications(c *gin.Context) {
	token, ok := requireClioToken(c)
	if !ok {
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if sinceParam := c.Query("since"); sinceParam != "" {
		parsed, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			util.RespondBadRequest(c, "since must be RFC 3339")
			return
		}
		since = parsed
	}

	items := h.dashboard.Notifications(c.Request.Context(), token, since)
	c.JSON(http.StatusOK, gin.H{"notifications": items, "since": since.Format(time.RFC3339)})
}
