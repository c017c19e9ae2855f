package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulseai/backend/internal/models"
)

// @Summary List insights
// @Tags insights
// @Produce json
// @Param level query string false "team or individual"
// @Success 200 {object} map[string]any
// @Router /api/insights [get]
func (h *Handler) InsightsList(c *gin.Context) {
	items, err := h.Insights.List(c.Request.Context(), c.Query("level"))
	if err != nil {
		h.respondError(c, err, "Failed to list insights")
		return
	}
	if items == nil {
		items = []models.Insight{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Generate team insights
// @Description Summarises the latest predictions and asks the ML service for narrative insights.
// @Tags insights
// @Produce json
// @Success 201 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/insights/team/generate [post]
func (h *Handler) InsightsGenerate(c *gin.Context) {
	items, err := h.Insights.GenerateTeamInsights(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Insight generation failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": items})
}
