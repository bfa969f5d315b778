package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Frame struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Frame{Code: 0, Message: "ok", Data: data})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Frame{Code: code, Message: message})
}
