package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mag7qa/internal/pkg/errcode"
	"github.com/xxxsen/mag7qa/internal/pkg/response"
	"github.com/xxxsen/mag7qa/internal/service"
)

type SessionHandler struct {
	qa *service.QAService
}

func NewSessionHandler(qa *service.QAService) *SessionHandler {
	return &SessionHandler{qa: qa}
}

type askRequest struct {
	Query      string `json:"query"`
	K          int    `json:"k"`
	SnippetLen int    `json:"snippet_len"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	info := h.qa.CreateSession(c.Request.Context(), getUserID(c))
	response.Success(c, info)
}

func (h *SessionHandler) List(c *gin.Context) {
	response.Success(c, h.qa.ListSessions(c.Request.Context(), getUserID(c)))
}

func (h *SessionHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Query == "" {
		response.Error(c, errcode.ErrInvalid, "query required")
		return
	}
	answer, err := h.qa.Ask(c.Request.Context(), getUserID(c), c.Param("id"), service.AskInput{
		Query:      req.Query,
		K:          req.K,
		SnippetLen: req.SnippetLen,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}

func (h *SessionHandler) History(c *gin.Context) {
	turns, err := h.qa.History(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"turns": turns})
}

func (h *SessionHandler) Logs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, errcode.ErrInvalid, "invalid limit")
			return
		}
		limit = n
	}
	items, err := h.qa.Logs(c.Request.Context(), getUserID(c), c.Param("id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"logs": items})
}

func (h *SessionHandler) Reset(c *gin.Context) {
	if err := h.qa.Reset(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.qa.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
