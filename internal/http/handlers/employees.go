package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulseai/backend/internal/service"
)

// @Summary List employees
// @Tags employees
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/employees [get]
func (h *Handler) EmployeesList(c *gin.Context) {
	items, err := h.Employees.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list employees")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Create employee
// @Tags employees
// @Accept json
// @Produce json
// @Param body body service.EmployeeInput true "employee"
// @Success 201 {object} models.Employee
// @Failure 400 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/employees [post]
func (h *Handler) EmployeeCreate(c *gin.Context) {
	var req service.EmployeeInput
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.Employees.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Employee")
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) EmployeeDetails(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	e, err := h.Employees.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Employee")
		return
	}
	c.JSON(http.StatusOK, e)
}
