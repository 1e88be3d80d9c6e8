package submission

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "go-skin-inspector/internal/errors"
	"go-skin-inspector/internal/logger"
	"go-skin-inspector/pkg/models"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"
)

// maxResponseSize bounds the metrics body read from the service
const maxResponseSize = 1 << 20

// Client posts encoded frames to the analysis endpoint
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a client for url. The http.Client carries no timeout;
// callers bound each call through its context.
func NewClient(url string) *Client {
	return &Client{url: url, httpClient: &http.Client{}}
}

// NewClientWithHTTP lets tests and callers supply their own transport
func NewClientWithHTTP(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{url: url, httpClient: httpClient}
}

func (c *Client) URL() string { return c.url }

// Analyze sends one POST with {"image": dataURI} and returns the numeric
// fields of the JSON object it gets back. It never retries.
func (c *Client) Analyze(ctx context.Context, dataURI string) (models.MetricsRecord, error) {
	body, err := sonic.Marshal(models.AnalyzeRequest{Image: dataURI})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode analysis request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewAnalysisFailedError("invalid analysis endpoint", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewAnalysisFailedError("analysis request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, apperrors.NewAnalysisFailedError("failed to read analysis response", err)
	}

	logger.WithFields(logrus.Fields{
		"url":         c.url,
		"status_code": resp.StatusCode,
		"duration":    time.Since(start).String(),
		"bytes":       len(data),
	}).Debug("Analysis response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewAnalysisFailedError("Analysis failed",
			fmt.Errorf("status code %d", resp.StatusCode))
	}

	return decodeMetrics(data)
}

// decodeMetrics keeps the numeric members of a JSON object
func decodeMetrics(data []byte) (models.MetricsRecord, error) {
	var raw map[string]interface{}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.NewAnalysisFailedError("malformed analysis response", err)
	}
	if raw == nil {
		return nil, apperrors.NewAnalysisFailedError("malformed analysis response",
			fmt.Errorf("expected a JSON object"))
	}

	rec := make(models.MetricsRecord, len(raw))
	for name, value := range raw {
		if v, ok := value.(float64); ok {
			rec[name] = v
		}
	}
	return rec, nil
}
