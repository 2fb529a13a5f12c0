package handlers

import (
	"net/http"

	"github.com/counseldesk/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// ClioProxyRequest is the body of the generic proxy route. The browser
// holds the provider token and sends it with every call.
type ClioProxyRequest struct {
	AccessToken string      `json:"accessToken"`
	Endpoint    string      `json:"endpoint"`
	Method      string      `json:"method"`
	Body        interface{} `json:"body"`
}

// ClioProxy forwards an arbitrary request to the case-management API
// and relays the upstream status and JSON verbatim.
func (h *Handlers) ClioProxy(c *gin.Context) {
	var req ClioProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	if req.AccessToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token is required"})
		return
	}
	if req.Endpoint == "" {
		util.RespondBadRequest(c, "endpoint is required")
		return
	}

	resp, err := h.clio.Do(c.Request.Context(), req.AccessToken, req.Method, req.Endpoint, req.Body)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	if resp.Status == http.StatusNoContent || len(resp.Body) == 0 {
		c.Status(resp.Status)
		return
	}
	c.Data(resp.Status, "application/json", resp.Body)
}

// ClioTokenExchange swaps an authorization code for the provider token
// pair. The tokens go back to the browser and are never stored here.
func (h *Handlers) ClioTokenExchange(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		util.RespondBadRequest(c, "code is required")
		return
	}

	tokens, err := h.auth.ExchangeClioCode(c.Request.Context(), code)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}
