package handler

import (
	"channel_chat_server/internal/dto/respond"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health 存活检查
// GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	HandleSuccess(c, respond.HealthRespond{Status: "OK", Message: "Server is running"})
}
