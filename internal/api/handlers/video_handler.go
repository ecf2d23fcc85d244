package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vidbrief/vidbrief/internal/services"
	"github.com/vidbrief/vidbrief/internal/utils"
)

// maxUploadBytes caps multipart uploads at 500 MiB.
const maxUploadBytes = 500 << 20

type VideoHandler struct {
	svc services.VideoService
}

func NewVideoHandler(svc services.VideoService) *VideoHandler {
	return &VideoHandler{svc: svc}
}

func (h *VideoHandler) Upload(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "VideoHandler.Upload", "multipart field 'file' is required", err))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "VideoHandler.Upload", "failed to read upload", err))
		return
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	v, err := h.svc.Upload(c.Request.Context(), userID, fh.Filename, contentType, f)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, v)
}

func (h *VideoHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.svc.List(c.Request.Context(), userID, 0)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"videos": rows,
		"count":  len(rows),
	})
}
