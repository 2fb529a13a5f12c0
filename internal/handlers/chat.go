package handlers

import (
	"net/http"

	"github.com/counseldesk/backend/internal/middleware"
	"github.com/counseldesk/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// ChatRequest is the body for the assistant endpoint
type ChatRequest struct {
	Query string `json:"query"`
}

// Chat answers a practice question with the user's calendar and unread
// inbox as context. Cancelling the request cancels the generation.
func (h *Handlers) Chat(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		util.RespondUnauthorized(c)
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		util.RespondBadRequest(c, "query is required")
		return
	}

	answer, err := h.chat.Answer(c.Request.Context(), sess.GoogleAccessToken, sess.Name, req.Query)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": answer})
}
