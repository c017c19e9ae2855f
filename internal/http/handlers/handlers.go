package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/ml"
	"github.com/pulseai/backend/internal/service"
)

type Handler struct {
	Store       db.Repository
	Employees   *service.EmployeeService
	Metrics     *service.MetricService
	Predictions *service.PredictionService
	Team        *service.TeamService
	Alerts      *service.AlertService
	Insights    *service.InsightService
	Logger      zerolog.Logger
}

// @Summary Liveness and store connectivity
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// respondError maps domain errors onto the error envelope.
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	var (
		verr     *service.ValidationError
		upstream *ml.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), gin.H{"field": verr.Field})
	case errors.Is(err, db.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", message+": not found", err.Error())
	case errors.Is(err, db.ErrDuplicate):
		writeError(c, http.StatusConflict, "CONFLICT", message+": already exists", err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(c, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	case errors.As(err, &upstream):
		h.Logger.Error().Err(err).Str("endpoint", upstream.Endpoint).Int("upstream_status", upstream.StatusCode).Msg("ml service call failed")
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "ML service request failed", upstream.Body)
	default:
		h.Logger.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, err.Error())
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	return true
}

// pathID reads a positive integer path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", name+" must be a positive integer", gin.H{"field": name})
		return 0, false
	}
	return id, true
}

// optionalQueryID returns nil when the parameter is absent.
func optionalQueryID(c *gin.Context, name string) (*int64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", name+" must be a positive integer", gin.H{"field": name})
		return nil, false
	}
	return &id, true
}

func queryBool(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}
