package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/cozee/docchat/internal/pkg/errcode"
	"github.com/cozee/docchat/internal/pkg/response"
	"github.com/cozee/docchat/internal/service"
)

type ShareHandler struct {
	shares *service.ShareService
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

type createShareRequest struct {
	ResourceID string `json:"resource_id"`
}

func (h *ShareHandler) Create(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ResourceID == "" {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	share, err := h.shares.Create(c.Request.Context(), getUserID(c), req.ResourceID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, share)
}

func (h *ShareHandler) List(c *gin.Context) {
	shares, err := h.shares.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"shares": shares})
}

func (h *ShareHandler) Delete(c *gin.Context) {
	if err := h.shares.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Resolve is the unauthenticated lookup behind share links. It exposes
// only the shared resource's public fields.
func (h *ShareHandler) Resolve(c *gin.Context) {
	res, err := h.shares.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"resource_id": res.ID,
		"kind":        res.Kind,
		"title":       res.Title,
	})
}
