// Package apiclient talks to the external loan prediction service.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"loanpredictor/internal/logger"
	"loanpredictor/internal/models"
)

const (
	PredictPath = "/predict"
	ExplorePath = "/explore_loans"

	// maxResponseBytes caps how much of a response body is read
	maxResponseBytes = 1 << 20
)

// Recorder receives one observation per request
type Recorder interface {
	ObserveRequest(endpoint, outcome string, d time.Duration)
}

// Client performs single-attempt requests against the prediction service.
// It keeps no per-call state and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
	recorder   Recorder
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New creates a client for baseURL. A zero timeout leaves the transport default.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.NewNoOp(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client posts to
func (c *Client) BaseURL() string {
	return c.baseURL
}

type predictResponse struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

type exploreResponse struct {
	Loans []models.LoanOffer `json:"loans"`
	Error string             `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Predict submits the application to the predict endpoint
func (c *Client) Predict(ctx context.Context, app *models.LoanApplication) (*models.PredictionResult, error) {
	start := time.Now()

	var payload predictResponse
	status, err := c.post(ctx, PredictPath, app, &payload)
	if err == nil && payload.Error != "" {
		err = &RequestError{Status: status, Message: payload.Error}
	}

	var result *models.PredictionResult
	if err == nil {
		verdict, perr := models.ParseVerdict(payload.Prediction)
		if perr != nil {
			c.log.Warn("unexpected prediction payload", map[string]interface{}{
				"prediction": payload.Prediction,
			})
			err = &RequestError{Status: status, Message: MsgUnexpected}
		} else {
			result = &models.PredictionResult{Verdict: verdict, Confidence: payload.Confidence}
		}
	}

	c.observe(PredictPath, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExploreLoans asks the service for offers matching the application. A
// response without offers is an empty, successful result.
func (c *Client) ExploreLoans(ctx context.Context, app *models.LoanApplication) ([]models.LoanOffer, error) {
	start := time.Now()

	var payload exploreResponse
	status, err := c.post(ctx, ExplorePath, app, &payload)
	if err == nil && payload.Error != "" {
		err = &RequestError{Status: status, Message: payload.Error}
	}

	c.observe(ExplorePath, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	if payload.Loans == nil {
		return []models.LoanOffer{}, nil
	}
	return payload.Loans, nil
}

// post sends app as JSON to path and decodes a 2xx body into out. It
// returns the HTTP status when a response was received.
func (c *Client) post(ctx context.Context, path string, app *models.LoanApplication, out interface{}) (int, error) {
	if app == nil {
		return 0, &models.MalformedInputError{Field: "payload", Reason: "no application"}
	}

	body, err := json.Marshal(app)
	if err != nil {
		return 0, &models.MalformedInputError{Field: "payload", Reason: err.Error()}
	}
	if err := checkPayload(body); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.Debug("sending request", map[string]interface{}{"url": req.URL.String()})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &NetworkError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, &NetworkError{Op: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &RequestError{
			Status:  resp.StatusCode,
			Message: errorMessage(data, resp.StatusCode),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.log.Warn("could not decode response", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return resp.StatusCode, &RequestError{Status: resp.StatusCode, Message: MsgUnexpected}
	}

	return resp.StatusCode, nil
}

// errorMessage extracts the service's message from a failure body
func errorMessage(data []byte, status int) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fmt.Sprintf("Server error: %d", status)
}

func (c *Client) observe(path string, err error, d time.Duration) {
	outcome := outcomeOf(err)
	fields := map[string]interface{}{
		"endpoint":    path,
		"outcome":     outcome,
		"duration_ms": d.Milliseconds(),
	}
	if err != nil {
		c.log.WithError(err).Warn("prediction service request failed", fields)
	} else {
		c.log.Info("prediction service request completed", fields)
	}
	if c.recorder != nil {
		c.recorder.ObserveRequest(path, outcome, d)
	}
}

func outcomeOf(err error) string {
	var reqErr *RequestError
	var netErr *NetworkError
	var malformed *models.MalformedInputError

	switch {
	case err == nil:
		return "success"
	case errors.As(err, &reqErr):
		return "request_error"
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &malformed):
		return "malformed_input"
	}
	return "error"
}
