package handler

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cozee/docchat/internal/pkg/errcode"
	"github.com/cozee/docchat/internal/pkg/response"
	"github.com/cozee/docchat/internal/service"
)

type ResourceHandler struct {
	resources *service.ResourceService
}

func NewResourceHandler(resources *service.ResourceService) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

// Upload accepts a multipart document and kicks off background ingestion.
// The response carries the resource id the client polls via Status.
func (h *ResourceHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size > service.MaxUploadBytes {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(file.Filename)))
	}

	res, err := h.resources.UploadDocument(c.Request.Context(), getUserID(c), file.Filename, contentType, file.Size, opened)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

type addURLRequest struct {
	URL string `json:"url"`
}

func (h *ResourceHandler) AddURL(c *gin.Context) {
	var req addURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	res, err := h.resources.AddURL(c.Request.Context(), getUserID(c), req.URL)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

type createBatchRequest struct {
	Title     string   `json:"title"`
	MemberIDs []string `json:"member_ids"`
}

func (h *ResourceHandler) CreateBatch(c *gin.Context) {
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	res, err := h.resources.CreateBatch(c.Request.Context(), getUserID(c), strings.TrimSpace(req.Title), req.MemberIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *ResourceHandler) List(c *gin.Context) {
	resources, err := h.resources.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"resources": resources})
}

func (h *ResourceHandler) Get(c *gin.Context) {
	res, err := h.resources.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *ResourceHandler) Delete(c *gin.Context) {
	if err := h.resources.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Status reports ingestion progress for polling clients.
func (h *ResourceHandler) Status(c *gin.Context) {
	status, err := h.resources.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}
