package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/cozee/docchat/internal/pkg/errcode"
	"github.com/cozee/docchat/internal/pkg/response"
	"github.com/cozee/docchat/internal/service"
)

type ChatHandler struct {
	chats *service.ChatService
}

func NewChatHandler(chats *service.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

type createChatRequest struct {
	ResourceID string `json:"resource_id"`
	ShareToken string `json:"share_token"`
	Title      string `json:"title"`
}

func (h *ChatHandler) Create(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ResourceID == "" {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	chat, err := h.chats.Create(c.Request.Context(), getUserID(c), req.ResourceID, req.ShareToken, req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, chat)
}

func (h *ChatHandler) List(c *gin.Context) {
	resourceID := c.Query("resource_id")
	if resourceID == "" {
		response.Error(c, errcode.ErrInvalid, "resource_id is required")
		return
	}
	chats, err := h.chats.List(c.Request.Context(), getUserID(c), resourceID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chats": chats})
}

func (h *ChatHandler) Get(c *gin.Context) {
	chat, err := h.chats.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, chat)
}

type renameChatRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) Rename(c *gin.Context) {
	var req renameChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.chats.Rename(c.Request.Context(), getUserID(c), c.Param("id"), req.Title); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ChatHandler) Delete(c *gin.Context) {
	if err := h.chats.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	msg, err := h.chats.SendMessage(c.Request.Context(), getUserID(c), c.Param("id"), req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, msg)
}

// SendMessageStream forwards completion tokens as server-sent events and
// closes with a "done" event carrying the persisted message id. Errors
// after the stream opened are reported as an "error" event since the
// status line is already gone.
func (h *ChatHandler) SendMessageStream(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	msg, err := h.chats.SendMessageStream(c.Request.Context(), getUserID(c), c.Param("id"), req.Content, func(token string) error {
		c.SSEvent("message", token)
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		c.SSEvent("error", err.Error())
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", gin.H{"id": msg.ID})
	c.Writer.Flush()
}
