// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "PulseAI Backend",
    "description": "Employee pulse analytics: weekly metrics, health scores, ML predictions, team health, alerts and insights",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/healthz": {"get": {"tags": ["health"], "summary": "Liveness and store connectivity"}},
    "/api/employees": {
      "get": {"tags": ["employees"], "summary": "List employees"},
      "post": {"tags": ["employees"], "summary": "Create employee"}
    },
    "/api/employees/{id}": {"get": {"tags": ["employees"], "summary": "Get employee"}},
    "/api/metrics/weekly": {
      "get": {"tags": ["metrics"], "summary": "List weekly metrics"},
      "post": {"tags": ["metrics"], "summary": "Submit weekly metrics"}
    },
    "/api/metrics/weekly/import-csv": {"post": {"tags": ["metrics"], "summary": "Import weekly metrics from CSV"}},
    "/api/health-scores/{employeeId}": {"get": {"tags": ["metrics"], "summary": "Health score history"}},
    "/api/ml/predict": {"post": {"tags": ["ml"], "summary": "Run batch prediction"}},
    "/api/ml/predict/{employeeId}": {"post": {"tags": ["ml"], "summary": "Run prediction for one employee"}},
    "/api/ml/predictions": {"get": {"tags": ["ml"], "summary": "Latest prediction per employee"}},
    "/api/ml/predictions/{employeeId}": {"get": {"tags": ["ml"], "summary": "Latest prediction for one employee"}},
    "/api/team/health": {"get": {"tags": ["team"], "summary": "Team health snapshot and trend"}},
    "/api/team/health/recompute": {"post": {"tags": ["team"], "summary": "Recompute all health scores"}},
    "/api/alerts": {
      "get": {"tags": ["alerts"], "summary": "List alerts"},
      "post": {"tags": ["alerts"], "summary": "Raise a manual alert"}
    },
    "/api/alerts/{id}/resolve": {"post": {"tags": ["alerts"], "summary": "Resolve an alert"}},
    "/api/insights": {"get": {"tags": ["insights"], "summary": "List insights"}},
    "/api/insights/team/generate": {"post": {"tags": ["insights"], "summary": "Generate team insights"}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
