package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/pulseai/backend/internal/cache"
	"github.com/pulseai/backend/internal/config"
	"github.com/pulseai/backend/internal/db"
	"github.com/pulseai/backend/internal/http/handlers"
	"github.com/pulseai/backend/internal/http/middleware"
	"github.com/pulseai/backend/internal/ml"
	"github.com/pulseai/backend/internal/service"

	_ "github.com/pulseai/backend/docs"
)

// Deps are the long-lived collaborators the services are built from. Cache may be nil.
type Deps struct {
	Store db.Repository
	ML    ml.Adapter
	Cache *cache.PredictionCache
}

// NewHandler wires the services for one store and ML adapter.
func NewHandler(cfg config.Config, deps Deps, logger zerolog.Logger) *handlers.Handler {
	validate := service.NewValidator()
	alerts := &service.AlertService{Store: deps.Store, Validator: validate, Logger: logger}
	return &handlers.Handler{
		Store:     deps.Store,
		Employees: &service.EmployeeService{Store: deps.Store, Validator: validate},
		Metrics: &service.MetricService{
			Store:      deps.Store,
			Validator:  validate,
			Normalizer: service.Normalizer{FractionThreshold: cfg.FractionThreshold},
			Logger:     logger,
		},
		Predictions: &service.PredictionService{
			Store:          deps.Store,
			ML:             deps.ML,
			Cache:          deps.Cache,
			Gate:           service.NewCacheGate(cfg.PredictionTTL()),
			Alerts:         alerts,
			Logger:         logger,
			DedupeInflight: cfg.PredictDedupeInflight,
		},
		Team:     &service.TeamService{Store: deps.Store, TrendDays: cfg.TrendDays},
		Alerts:   alerts,
		Insights: &service.InsightService{Store: deps.Store, ML: deps.ML, Logger: logger},
		Logger:   logger,
	}
}

func Router(cfg config.Config, deps Deps, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = 10 << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := NewHandler(cfg, deps, logger)

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		api.GET("/employees", h.EmployeesList)
		api.POST("/employees", h.EmployeeCreate)
		api.GET("/employees/:id", h.EmployeeDetails)

		api.GET("/metrics/weekly", h.WeeklyMetricsList)
		api.POST("/metrics/weekly", h.WeeklyMetricsCreate)
		api.GET("/health-scores/:employeeId", h.HealthScoresList)

		api.POST("/ml/predict", h.Predict)
		api.POST("/ml/predict/:employeeId", h.PredictEmployee)
		api.GET("/ml/predictions", h.PredictionsLatest)
		api.GET("/ml/predictions/:employeeId", h.PredictionDetails)

		api.GET("/team/health", h.TeamHealth)

		api.GET("/alerts", h.AlertsList)
		api.POST("/alerts", h.AlertCreate)
		api.POST("/alerts/:id/resolve", h.AlertResolve)

		api.GET("/insights", h.InsightsList)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/metrics/weekly/import-csv", h.WeeklyMetricsImportCSV)
		admin.POST("/team/health/recompute", h.HealthScoresRecompute)
		admin.POST("/insights/team/generate", h.InsightsGenerate)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
