package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pulseai/backend/internal/metrics"
)

const (
	predictBatchPath = "/predict/batch"
	teamInsightsPath = "/insights/team"
	maxErrorBody     = 64 << 10
)

type HTTPAdapter struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPAdapter(baseURL string, timeout time.Duration) *HTTPAdapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAdapter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (h *HTTPAdapter) PredictBatch(ctx context.Context, payload BatchPredictRequest) (BatchPredictResponse, error) {
	var r BatchPredictResponse
	if err := h.post(ctx, predictBatchPath, payload, &r); err != nil {
		return BatchPredictResponse{}, err
	}
	return r, nil
}

func (h *HTTPAdapter) TeamInsights(ctx context.Context, payload TeamInsightsRequest) (TeamInsightsResponse, error) {
	var r TeamInsightsResponse
	if err := h.post(ctx, teamInsightsPath, payload, &r); err != nil {
		return TeamInsightsResponse{}, err
	}
	return r, nil
}

func (h *HTTPAdapter) post(ctx context.Context, path string, payload any, out any) error {
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 30 * time.Second}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		metrics.ObserveMLRequest(path, "error", time.Since(start))
		return &UpstreamError{Endpoint: path, Body: err.Error()}
	}
	defer resp.Body.Close()
	metrics.ObserveMLRequest(path, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Endpoint: path, StatusCode: resp.StatusCode, Body: "invalid response: " + err.Error()}
	}
	return nil
}
