package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/curbsideops/dispatch-backend/pkg/config"
	pkgerrors "github.com/curbsideops/dispatch-backend/pkg/errors"
)

const (
	defaultBaseURL            = "https://api.routeflow.io/v2"
	errorBodyReadLimit  int64 = 2048
	defaultHTTPTimeout        = 10 * time.Second
)

var errAPIKeyRequired = errors.New("routing provider api key is required")

// Client wraps the route-optimization provider's HTTP API: routes-for-day
// queries, the driver event feed, and planning run control.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured provider base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the provider client from configuration.
func NewClient(cfg config.RoutingConfig, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(cfg.APIKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	if trimmed := strings.TrimSpace(cfg.BaseURL); trimmed != "" {
		client.baseURL = trimmed
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// RouteStop is one ordered visit on a provider-computed route.
type RouteStop struct {
	StopID        string    `json:"stop_id"`
	Address       string    `json:"address"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	DistanceKM    float64   `json:"distance_km"`
	TravelMinutes float64   `json:"travel_minutes"`
}

// DriverRoute is the per-driver route for a date.
type DriverRoute struct {
	DriverRef     string      `json:"driver_ref"`
	Day           string      `json:"day"`
	Stops         []RouteStop `json:"stops"`
	TotalKM       float64     `json:"total_km"`
	TotalMinutes  float64     `json:"total_minutes"`
	ZoneHint      string      `json:"zone_hint"`
	VehicleRef    string      `json:"vehicle_ref"`
	StopCount     int         `json:"stop_count"`
	EstimatedLoad float64     `json:"estimated_load"`
}

// DriverEvent is one telemetry event from the provider feed.
type DriverEvent struct {
	Kind       string    `json:"kind"`
	DriverRef  string    `json:"driver_ref"`
	StopRef    string    `json:"stop_ref,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Tag        string    `json:"tag"`
}

// EventBatch is the feed page returned for a cursor.
type EventBatch struct {
	Events []DriverEvent `json:"events"`
	Cursor string        `json:"cursor"`
}

// PlanParams configures an optimization run submission.
type PlanParams struct {
	Date       string `json:"date"`
	Balancing  string `json:"balancing,omitempty"`
	BalanceBy  string `json:"balance_by,omitempty"`
	SeedMode   string `json:"seed_mode,omitempty"`
	Clustering bool   `json:"clustering,omitempty"`
}

// PlanProgress is the poll response for a run.
type PlanProgress struct {
	RunID   string `json:"run_id"`
	Percent int    `json:"percent"`
	State   string `json:"state"`
	Code    string `json:"code,omitempty"`
}

// RoutesForDay returns the provider's computed routes for a calendar date
// (YYYY-MM-DD), one entry per driver with stops in visit order.
func (c *Client) RoutesForDay(ctx context.Context, date string) ([]DriverRoute, error) {
	if strings.TrimSpace(date) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date is required")
	}

	endpoint := fmt.Sprintf("/routes?%s", url.Values{"date": {date}}.Encode())
	var payload struct {
		Routes []DriverRoute `json:"routes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Routes, nil
}

// PollEvents fetches the next page of driver events after the given cursor.
// The returned cursor must be persisted and replayed on the next call.
func (c *Client) PollEvents(ctx context.Context, cursor string) (*EventBatch, error) {
	endpoint := fmt.Sprintf("/events?%s", url.Values{"cursor": {cursor}}.Encode())
	var batch EventBatch
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &batch); err != nil {
		return nil, err
	}
	if batch.Cursor == "" {
		batch.Cursor = cursor
	}
	return &batch, nil
}

// StartPlan submits an optimization run and returns the provider run id.
func (c *Client) StartPlan(ctx context.Context, params PlanParams) (string, error) {
	if strings.TrimSpace(params.Date) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "plan date is required")
	}
	var payload struct {
		RunID string `json:"run_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/plans", params, &payload); err != nil {
		return "", err
	}
	if payload.RunID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "provider returned empty run id")
	}
	return payload.RunID, nil
}

// PlanStatus returns progress for a previously started run.
func (c *Client) PlanStatus(ctx context.Context, runID string) (*PlanProgress, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "run id is required")
	}
	var progress PlanProgress
	if err := c.doJSON(ctx, http.MethodGet, "/plans/"+url.PathEscape(runID), nil, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// StopPlan requests cancellation of a run. The request is best effort: the
// run may still finish if cancellation loses the race.
func (c *Client) StopPlan(ctx context.Context, runID string) error {
	if strings.TrimSpace(runID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "run id is required")
	}
	return c.doJSON(ctx, http.MethodPost, "/plans/"+url.PathEscape(runID)+"/stop", nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, dest any) error {
	if c == nil || c.httpClient == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "routing client not initialized")
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode provider request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build provider request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "routing provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.New(pkgerrors.CodeDependency, "routing provider error").WithDetails(map[string]any{
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(snippet)),
		})
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode provider response")
	}
	return nil
}
