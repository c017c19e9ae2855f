package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pulseai/backend/internal/models"
	"github.com/pulseai/backend/internal/service"
)

const maxCSVUpload = 10 << 20

// @Summary Submit weekly metrics
// @Description Accepts a single object or an array. Each stored row refreshes the
// @Description employee's health score for that week.
// @Tags metrics
// @Accept json
// @Produce json
// @Param body body service.WeeklyMetricInput true "weekly metric (object or array)"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/metrics/weekly [post]
func (h *Handler) WeeklyMetricsCreate(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	inputs, err := decodeOneOrMany(raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}

	saved, err := h.Metrics.CreateWeeklyMetrics(c.Request.Context(), inputs)
	if err != nil {
		h.respondError(c, err, "Weekly metric")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": saved})
}

func decodeOneOrMany(raw []byte) ([]service.WeeklyMetricInput, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var many []service.WeeklyMetricInput
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one service.WeeklyMetricInput
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, err
	}
	return []service.WeeklyMetricInput{one}, nil
}

// @Summary List weekly metrics
// @Tags metrics
// @Produce json
// @Param employeeId query int true "Employee ID"
// @Success 200 {object} map[string]any
// @Router /api/metrics/weekly [get]
func (h *Handler) WeeklyMetricsList(c *gin.Context) {
	id, ok := optionalQueryID(c, "employeeId")
	if !ok {
		return
	}
	if id == nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "employeeId is required", gin.H{"field": "employeeId"})
		return
	}
	items, err := h.Metrics.List(c.Request.Context(), *id)
	if err != nil {
		h.respondError(c, err, "Failed to list weekly metrics")
		return
	}
	if items == nil {
		items = []models.WeeklyMetric{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Import weekly metrics from CSV
// @Description JSON body {csv, weekStart, createMissingEmployees} or a multipart upload
// @Description with a "file" part and the same fields as form values.
// @Tags metrics
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} service.ImportResult
// @Failure 400 {object} map[string]any
// @Router /api/metrics/weekly/import-csv [post]
func (h *Handler) WeeklyMetricsImportCSV(c *gin.Context) {
	var req service.ImportRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if !readMultipartImport(c, &req) {
			return
		}
	} else if !bindJSON(c, &req) {
		return
	}

	res, err := h.Metrics.ImportCSV(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "CSV import failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

func readMultipartImport(c *gin.Context, req *service.ImportRequest) bool {
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file is required", nil)
		return false
	}
	if !validateExt(fh.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file must be .csv", nil)
		return false
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read upload", err.Error())
		return false
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, maxCSVUpload))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read upload", err.Error())
		return false
	}

	req.CSV = string(body)
	req.WeekStart = c.PostForm("weekStart")
	if v := strings.TrimSpace(c.PostForm("createMissingEmployees")); v != "" {
		create, err := strconv.ParseBool(v)
		if err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "createMissingEmployees must be a boolean", gin.H{"field": "createMissingEmployees"})
			return false
		}
		req.CreateMissingEmployees = &create
	}
	return true
}

func validateExt(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// @Summary Health score history
// @Tags metrics
// @Produce json
// @Param employeeId path int true "Employee ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/health-scores/{employeeId} [get]
func (h *Handler) HealthScoresList(c *gin.Context) {
	id, ok := pathID(c, "employeeId")
	if !ok {
		return
	}
	items, err := h.Metrics.HealthScores(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Employee")
		return
	}
	if items == nil {
		items = []models.HealthScore{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Recompute all health scores
// @Tags team
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/team/health/recompute [post]
func (h *Handler) HealthScoresRecompute(c *gin.Context) {
	updated, err := h.Metrics.RecomputeAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Recompute failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
