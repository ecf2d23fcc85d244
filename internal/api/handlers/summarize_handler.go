package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vidbrief/vidbrief/internal/services"
	"github.com/vidbrief/vidbrief/internal/utils"
)

type SummarizeHandler struct {
	svc services.SummarizeService
}

func NewSummarizeHandler(svc services.SummarizeService) *SummarizeHandler {
	return &SummarizeHandler{svc: svc}
}

// Submit accepts a summarize request and returns 202 with the task id.
// Results arrive via polling the status endpoint.
func (h *SummarizeHandler) Submit(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SummarizeHandler.Submit", "invalid request body", err))
		return
	}

	taskID, err := h.svc.Submit(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": taskID,
		"status":  "pending",
	})
}

func (h *SummarizeHandler) Status(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	task, err := h.svc.Status(c.Request.Context(), userID, c.Param("task_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *SummarizeHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit := 0
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := h.svc.History(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summaries": rows,
		"count":     len(rows),
	})
}

func (h *SummarizeHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	a, err := h.svc.Get(c.Request.Context(), userID, c.Param("summary_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}
