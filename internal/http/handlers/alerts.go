package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulseai/backend/internal/models"
	"github.com/pulseai/backend/internal/service"
)

// @Summary List alerts
// @Tags alerts
// @Produce json
// @Param status query string false "active, dismissed or resolved"
// @Param employeeId query int false "Employee ID"
// @Success 200 {object} map[string]any
// @Router /api/alerts [get]
func (h *Handler) AlertsList(c *gin.Context) {
	employeeID, ok := optionalQueryID(c, "employeeId")
	if !ok {
		return
	}
	var id int64
	if employeeID != nil {
		id = *employeeID
	}
	items, err := h.Alerts.List(c.Request.Context(), c.Query("status"), id)
	if err != nil {
		h.respondError(c, err, "Failed to list alerts")
		return
	}
	if items == nil {
		items = []models.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Raise a manual alert
// @Tags alerts
// @Accept json
// @Produce json
// @Param body body service.AlertInput true "alert"
// @Success 201 {object} models.Alert
// @Router /api/alerts [post]
func (h *Handler) AlertCreate(c *gin.Context) {
	var req service.AlertInput
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.Alerts.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Employee")
		return
	}
	c.JSON(http.StatusCreated, a)
}

// @Summary Resolve an alert
// @Tags alerts
// @Produce json
// @Param id path int true "Alert ID"
// @Success 200 {object} models.Alert
// @Failure 409 {object} map[string]any
// @Router /api/alerts/{id}/resolve [post]
func (h *Handler) AlertResolve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.Alerts.Resolve(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Alert")
		return
	}
	c.JSON(http.StatusOK, a)
}
