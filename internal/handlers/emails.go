package handlers

import (
	"net/http"

	"github.com/counseldesk/backend/internal/google"
	"github.com/counseldesk/backend/internal/middleware"
	"github.com/counseldesk/backend/internal/util"
	"github.com/gin-gonic/gin"
)

const defaultEmailLimit = 5

// Emails returns the most recent primary-inbox messages, hydrated
func (h *Handlers) Emails(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		util.RespondUnauthorized(c)
		return
	}

	limit := util.ParseInt(c.Query("limit"), defaultEmailLimit)
	if limit < 1 || limit > 50 {
		limit = defaultEmailLimit
	}

	emails, err := h.google.RecentEmails(c.Request.Context(), sess.GoogleAccessToken, limit)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"emails": emails})
}

// MarkEmailRead removes the UNREAD label
func (h *Handlers) MarkEmailRead(c *gin.Context) {
	h.modifyEmail(c, nil, []string{"UNREAD"})
}

// MarkEmailUnread restores the UNREAD label
func (h *Handlers) MarkEmailUnread(c *gin.Context) {
	h.modifyEmail(c, []string{"UNREAD"}, nil)
}

// ArchiveEmail removes the message from the inbox
func (h *Handlers) ArchiveEmail(c *gin.Context) {
	h.modifyEmail(c, nil, []string{"INBOX"})
}

// EmailActionRequest names the message a mutation applies to
type EmailActionRequest struct {
	MessageID string `json:"messageId"`
}

// modifyEmail applies a label mutation and reports the final state.
// The mutation is synchronous: the response reflects what Gmail
// actually did, so the dashboard never shows a state the provider
// rejected.
func (h *Handlers) modifyEmail(c *gin.Context, addLabels, removeLabels []string) {
	sess := middleware.GetSession(c)
	if sess == nil {
		util.RespondUnauthorized(c)
		return
	}

	var req EmailActionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MessageID == "" {
		util.RespondBadRequest(c, "messageId is required")
		return
	}

	if err := h.google.ModifyMessage(c.Request.Context(), sess.GoogleAccessToken, req.MessageID, addLabels, removeLabels); err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": req.MessageID, "status": "ok"})
}

// ReplyRequest is the body for replying to a message
type ReplyRequest struct {
	MessageID string `json:"messageId"`
	Body      string `json:"body"`
}

// ReplyEmail sends a threaded reply to the original sender
func (h *Handlers) ReplyEmail(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		util.RespondUnauthorized(c)
		return
	}

	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MessageID == "" || req.Body == "" {
		util.RespondBadRequest(c, "messageId and body are required")
		return
	}

	original, err := h.google.GetMessageMetadata(c.Request.Context(), sess.GoogleAccessToken, req.MessageID)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	originalID := original.Header("Message-ID")
	references := original.Header("References")
	if references == "" {
		references = originalID
	} else if originalID != "" {
		references = references + " " + originalID
	}

	_, fromEmail := google.ParseAddress(original.Header("From"))
	raw := google.Compose{
		To:         fromEmail,
		Subject:    google.ReplySubject(original.Header("Subject")),
		InReplyTo:  originalID,
		References: references,
		Body:       req.Body,
	}.RFC822()

	if err := h.google.SendMessage(c.Request.Context(), sess.GoogleAccessToken, raw, original.ThreadID); err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// ForwardRequest is the body for forwarding a message
type ForwardRequest struct {
	MessageID string `json:"messageId"`
	To        string `json:"to"`
	Body      string `json:"body"`
}

// ForwardEmail sends the original message on to a new recipient,
// with an optional note on top.
func (h *Handlers) ForwardEmail(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		util.RespondUnauthorized(c)
		return
	}

	var req ForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MessageID == "" || req.To == "" {
		util.RespondBadRequest(c, "messageId and to are required")
		return
	}

	original, err := h.google.GetMessage(c.Request.Context(), sess.GoogleAccessToken, req.MessageID)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	body := req.Body
	if originalBody := google.ExtractBody(original.Payload); originalBody != "" {
		body += "<br><br>---------- Forwarded message ----------<br>" + originalBody
	}

	raw := google.Compose{
		To:      req.To,
		Subject: google.ForwardSubject(original.Header("Subject")),
		Body:    body,
	}.RFC822()

	if err := h.google.SendMessage(c.Request.Context(), sess.GoogleAccessToken, raw, ""); err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
