package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"threatmosaic/application/ports"
	"threatmosaic/pkg/common"
	apperrors "threatmosaic/pkg/errors"
	"threatmosaic/pkg/ratelimit"
)

// DefaultBaseURL is the built-in API origin, overridable via configuration
const DefaultBaseURL = "http://localhost:5001/api"

const requestTimeout = 15 * time.Second

// Per-endpoint burst ceiling. Generous for normal use; it exists to absorb
// pathological input like a held-down double-click on the same node.
const (
	burstCapacity = 20
	burstRefill   = 100 * time.Millisecond
)

// Client talks to the remote graph backend over HTTP/JSON. It implements
// ports.GraphAPI. All calls run through a circuit breaker so a flapping
// backend stops being hammered while the user keeps a responsive UI.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// compile-time interface check
var _ ports.GraphAPI = (*Client)(nil)

// NewClient creates an API client for the given base URL. An empty baseURL
// selects the built-in default.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: ratelimit.New(burstCapacity, burstRefill),
		logger:  logger.Named("api"),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-api",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

// ThreatScenarios implements ports.GraphAPI
func (c *Client) ThreatScenarios(ctx context.Context) ([]ports.ThreatScenarioRecord, error) {
	var out []ports.ThreatScenarioRecord
	if err := c.get(ctx, "/threat_scenarios", nil, &out); err != nil {
		return nil, apperrors.NewNetworkError("initial load", err)
	}
	return out, nil
}

// Search implements ports.GraphAPI
func (c *Client) Search(ctx context.Context, query string, types []string) ([]ports.SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	for _, t := range types {
		params.Add("type", t)
	}

	var out []ports.SearchResult
	if err := c.get(ctx, "/search", params, &out); err != nil {
		return nil, apperrors.NewNetworkError("search", err)
	}
	return out, nil
}

// RelatedNodes implements ports.GraphAPI
func (c *Client) RelatedNodes(ctx context.Context, nodeID string) (ports.Neighborhood, error) {
	params := url.Values{}
	params.Set("nodeId", nodeID)

	var out ports.Neighborhood
	if err := c.get(ctx, "/related_nodes", params, &out); err != nil {
		return ports.Neighborhood{}, apperrors.NewNetworkError("expand", err)
	}
	return out, nil
}

// CreateThreatScenario implements ports.GraphAPI
func (c *Client) CreateThreatScenario(ctx context.Context, name, description string) (ports.CreatedThreatScenario, error) {
	body := map[string]string{
		"name":        name,
		"description": description,
	}

	var out ports.CreatedThreatScenario
	if err := c.post(ctx, "/threat_scenarios", body, &out); err != nil {
		return ports.CreatedThreatScenario{}, apperrors.NewNetworkError("create threat scenario", err)
	}
	return out, nil
}

// CreateRelationship implements ports.GraphAPI
func (c *Client) CreateRelationship(ctx context.Context, sourceID, targetID, relationship string) error {
	body := map[string]string{
		"sourceId":     sourceID,
		"targetId":     targetID,
		"relationship": relationship,
	}

	if err := c.post(ctx, "/create_relationship", body, nil); err != nil {
		return apperrors.NewNetworkError("create relationship", err)
	}
	return nil
}

// get issues a GET request and decodes the JSON response into out
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	return c.do(req, out)
}

// post issues a POST request with a JSON body and decodes the response into
// out when out is non-nil
func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if !c.limiter.Allow(req.URL.Path) {
		return apperrors.NewUnavailableError("graph API").
			WithDetails(map[string]interface{}{"reason": "rate limited", "path": req.URL.Path})
	}

	requestID, ok := common.GetRequestID(req.Context())
	if !ok {
		requestID = uuid.New().String()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Read a bounded slice of the body for the error message
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, req.URL.Path, bytes.TrimSpace(snippet))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return nil, nil
	})

	c.logger.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("requestID", requestID),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return apperrors.NewUnavailableError("graph API").WithCause(err)
	}
	return err
}
