package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulseai/backend/internal/models"
)

// @Summary Run batch prediction
// @Description Predicts for every employee, or one when employeeId is given. Fresh
// @Description predictions are reused and employees with fewer than four weeks are skipped.
// @Tags ml
// @Produce json
// @Param employeeId query int false "Employee ID"
// @Success 200 {object} service.RunSummary
// @Failure 404 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/ml/predict [post]
func (h *Handler) Predict(c *gin.Context) {
	id, ok := optionalQueryID(c, "employeeId")
	if !ok {
		return
	}
	h.runPrediction(c, id)
}

// @Summary Run prediction for one employee
// @Tags ml
// @Produce json
// @Param employeeId path int true "Employee ID"
// @Success 200 {object} service.RunSummary
// @Router /api/ml/predict/{employeeId} [post]
func (h *Handler) PredictEmployee(c *gin.Context) {
	id, ok := pathID(c, "employeeId")
	if !ok {
		return
	}
	h.runPrediction(c, &id)
}

func (h *Handler) runPrediction(c *gin.Context, employeeID *int64) {
	summary, err := h.Predictions.Run(c.Request.Context(), employeeID)
	if err != nil {
		h.respondError(c, err, "Prediction failed")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Latest prediction per employee
// @Tags ml
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/ml/predictions [get]
func (h *Handler) PredictionsLatest(c *gin.Context) {
	items, err := h.Predictions.LatestAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list predictions")
		return
	}
	if items == nil {
		items = []models.MlPrediction{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Latest prediction for one employee
// @Tags ml
// @Produce json
// @Param employeeId path int true "Employee ID"
// @Param autoPredict query bool false "Run the pipeline when nothing is stored"
// @Success 200 {object} models.MlPrediction
// @Failure 404 {object} map[string]any
// @Router /api/ml/predictions/{employeeId} [get]
func (h *Handler) PredictionDetails(c *gin.Context) {
	id, ok := pathID(c, "employeeId")
	if !ok {
		return
	}
	p, err := h.Predictions.Latest(c.Request.Context(), id, queryBool(c, "autoPredict"))
	if err != nil {
		h.respondError(c, err, "Prediction")
		return
	}
	c.JSON(http.StatusOK, p)
}
