package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary Team health snapshot and trend
// @Tags team
// @Produce json
// @Success 200 {object} service.TeamHealth
// @Router /api/team/health [get]
func (h *Handler) TeamHealth(c *gin.Context) {
	res, err := h.Team.TeamHealth(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to load team health")
		return
	}
	c.JSON(http.StatusOK, res)
}
