package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/domain"
	"github.com/maestro-run/maestro/internal/mail"
	"github.com/maestro-run/maestro/internal/platform/apperr"
)

// MailHandler exposes the Mail Service over REST.
type MailHandler struct {
	service *mail.Service
}

// NewMailHandler constructs a MailHandler.
func NewMailHandler(service *mail.Service) *MailHandler {
	return &MailHandler{service: service}
}

type sendMailRequest struct {
	ProjectID      string              `json:"projectId"`
	FromSessionID  string              `json:"fromSessionId"`
	ToSessionID    string              `json:"toSessionId"`
	ToTeamMemberID string              `json:"toTeamMemberId"`
	Scope          string              `json:"scope"`
	ReplyToMailID  string              `json:"replyToMailId"`
	Type           string              `json:"type"`
	Subject        string              `json:"subject"`
	Body           string              `json:"body"`
	Priority       domain.MailPriority `json:"priority"`
}

// Send handles POST /api/mail.
func (h *MailHandler) Send(c *gin.Context) {
	var req sendMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}

	list, err := h.service.Send(c.Request.Context(), mail.SendInput{
		ProjectID:      req.ProjectID,
		FromSessionID:  req.FromSessionID,
		ToSessionID:    req.ToSessionID,
		ToTeamMemberID: req.ToTeamMemberID,
		Scope:          req.Scope,
		ReplyToMailID:  req.ReplyToMailID,
		Type:           req.Type,
		Subject:        req.Subject,
		Body:           req.Body,
		Priority:       req.Priority,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

// Inbox handles GET /api/mail/inbox?sessionId=&projectId=.
func (h *MailHandler) Inbox(c *gin.Context) {
	list, err := h.service.Inbox(c.Request.Context(), c.Query("projectId"), c.Query("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Thread handles GET /api/mail/thread/:threadId.
func (h *MailHandler) Thread(c *gin.Context) {
	list, err := h.service.Thread(c.Request.Context(), c.Param("threadId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Wait handles GET /api/mail/wait?sessionId=&projectId=&since=&timeout=.
func (h *MailHandler) Wait(c *gin.Context) {
	sessionID := c.Query("sessionId")
	projectID := c.Query("projectId")

	since := time.Time{}
	if v := c.Query("since"); v != "" {
		if millis, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.UnixMilli(millis)
		}
	}

	timeout := mail.DefaultWaitTimeout
	if v := c.Query("timeout"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}

	list, err := h.service.WaitForMail(c.Request.Context(), projectID, sessionID, since, timeout)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
