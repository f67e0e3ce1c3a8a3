package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status    string `json:"status"`
	Accounts  bool   `json:"accounts"`
	Snapshots bool   `json:"snapshots"`
}

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service and which optional features are enabled
// @Tags         health
// @Produce      json
// @Success      200  {object}  healthResponse
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:    "healthy",
		Accounts:  h.accounts != nil,
		Snapshots: h.snapshots != nil,
	})
}
