// Package inference talks to the external model inference service.
//
// The service exposes three endpoints: /predict_batch and /predict_single
// take JSON, /train_model takes a multipart CSV upload. Every call is bounded
// by a fixed timeout and never retried here; resubmission is up to the caller.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/JaeTrim/Traffic-AI/internal/metrics"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/rs/zerolog"
)

const (
	endpointBatch  = "predict_batch"
	endpointSingle = "predict_single"
	endpointTrain  = "train_model"

	userAgent = "Traffic-AI"

	// Upper bound on error bodies read back from the service
	maxErrorBody = 64 << 10
)

// Client is an HTTP client for the inference service. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeouts   config.InferenceConfig
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// NewClient creates a client from configuration. m may be nil.
func NewClient(cfg config.InferenceConfig, m *metrics.Metrics, log zerolog.Logger) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		// Per-call deadlines come from the request context
		httpClient: &http.Client{Transport: transport},
		timeouts:   cfg,
		metrics:    m,
		log:        log.With().Str("component", "inference").Logger(),
	}
}

type batchRequest struct {
	ModelID           string              `json:"modelId"`
	Predictions       []models.OrderedRow `json:"predictions"`
	ApplyLogTransform bool                `json:"applyLogTransform"`
}

type batchResponse struct {
	Results []struct {
		Result *float64 `json:"result"`
	} `json:"results"`
}

type singleRequest struct {
	ModelID      string            `json:"modelId"`
	Inputs       models.OrderedRow `json:"inputs"`
	LogTransform bool              `json:"logTransform"`
}

type singleResponse struct {
	Result *float64 `json:"result"`
}

type trainResponse struct {
	Results json.RawMessage `json:"results"`
}

// PredictBatch sends every row in one call and returns one result per row,
// in row order. Row keys are sent in the order they appear in each row.
func (c *Client) PredictBatch(ctx context.Context, artifact string, rows []models.OrderedRow, applyLog bool) ([]float64, error) {
	body, err := json.Marshal(batchRequest{
		ModelID:           artifact,
		Predictions:       rows,
		ApplyLogTransform: applyLog,
	})
	if err != nil {
		return nil, fmt.Errorf("encode batch request: %w", err)
	}

	var resp batchResponse
	if err := c.do(ctx, endpointBatch, c.timeouts.BatchTimeout, "application/json", body, &resp); err != nil {
		return nil, err
	}

	results := make([]float64, len(resp.Results))
	for i, r := range resp.Results {
		if r.Result == nil {
			return nil, apperrors.New(apperrors.KindUpstreamContractViolation,
				fmt.Sprintf("Inference service returned no result for row %d", i+1))
		}
		results[i] = *r.Result
	}

	c.log.Info().
		Str("model", artifact).
		Int("rows", len(rows)).
		Int("results", len(results)).
		Msg("Batch prediction completed")

	return results, nil
}

// PredictSingle predicts one row
func (c *Client) PredictSingle(ctx context.Context, artifact string, row models.OrderedRow, logTransform bool) (float64, error) {
	body, err := json.Marshal(singleRequest{
		ModelID:      artifact,
		Inputs:       row,
		LogTransform: logTransform,
	})
	if err != nil {
		return 0, fmt.Errorf("encode single request: %w", err)
	}

	var resp singleResponse
	if err := c.do(ctx, endpointSingle, c.timeouts.SingleTimeout, "application/json", body, &resp); err != nil {
		return 0, err
	}
	if resp.Result == nil {
		return 0, apperrors.New(apperrors.KindUpstreamContractViolation,
			"Inference service response is missing a result")
	}

	return *resp.Result, nil
}

// Train uploads a training dataset and returns the service's results verbatim
func (c *Client) Train(ctx context.Context, req *models.TrainRequest) (json.RawMessage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	name := req.FileName
	if name == "" {
		name = "training.csv"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, req.CSV); err != nil {
		return nil, apperrors.Wrap(apperrors.KindClientInput, "Failed to read training file", err)
	}
	if err := mw.WriteField("epochs", strconv.Itoa(req.Epochs)); err != nil {
		return nil, err
	}
	if err := mw.WriteField("kfolds", strconv.Itoa(req.KFolds)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var resp trainResponse
	if err := c.do(ctx, endpointTrain, c.timeouts.TrainTimeout, mw.FormDataContentType(), buf.Bytes(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return json.RawMessage("null"), nil
	}
	return resp.Results, nil
}

// do posts body to the endpoint under timeout and decodes a 2xx response into out
func (c *Client) do(ctx context.Context, endpoint string, timeout time.Duration, contentType string, body []byte, out interface{}) (err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	outcome := "ok"
	defer func() {
		if err != nil {
			outcome = apperrors.KindOf(err).String()
		}
		c.metrics.ObserveUpstream(endpoint, outcome, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("endpoint", endpoint).Dur("elapsed", time.Since(start)).Msg("Inference service unreachable")
		return apperrors.Wrap(apperrors.KindUpstreamUnavailable, "No response from inference service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upstreamErr := decodeUpstreamError(resp)
		c.log.Error().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("message", upstreamErr.Message).
			Msg("Inference service returned an error")
		return upstreamErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return apperrors.Wrap(apperrors.KindUpstreamUnavailable, "No response from inference service", err)
		}
		return apperrors.Wrap(apperrors.KindUpstreamContractViolation, "Invalid response from inference service", err)
	}
	return nil
}

// decodeUpstreamError extracts the service's detail or error message from a
// non-2xx response. Client errors keep the upstream status, anything else is
// reported as a bad gateway.
func decodeUpstreamError(resp *http.Response) *apperrors.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := "Error from inference service"
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if m := rawMessage(payload.Detail); m != "" {
			message = m
		} else if m := rawMessage(payload.Error); m != "" {
			message = m
		}
	}

	e := apperrors.WithDetails(apperrors.KindUpstream, message, map[string]int{
		"upstreamStatus": resp.StatusCode,
	})
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		e.Status = resp.StatusCode
	}
	return e
}

// rawMessage renders a JSON string as-is and any other JSON value compactly
func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
