package handlers

import (
	"net/http"
	"time"

	"github.com/counseldesk/backend/internal/middleware"
	"github.com/counseldesk/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// Calendar returns the unified week feed. Google data comes from the
// session's token, case-management data from the X-Clio-Token header
// when present.
func (h *Handlers) Calendar(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		util.RespondUnauthorized(c)
		return
	}

	startDate := c.Query("startDate")
	endDate := c.Query("endDate")
	if startDate == "" || endDate == "" {
		util.RespondBadRequest(c, "startDate and endDate are required")
		return
	}

	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		util.RespondBadRequest(c, "startDate must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		util.RespondBadRequest(c, "endDate must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		util.RespondBadRequest(c, "endDate must not precede startDate")
		return
	}

	resp, err := h.feed.WeekFeed(c.Request.Context(),
		sess.GoogleAccessToken, middleware.ClioToken(c),
		start, end.AddDate(0, 0, 1))
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
