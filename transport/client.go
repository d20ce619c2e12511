// Package transport implements the Lightdash REST API client used by
// the catalog, query, and SQL runner layers. It owns authentication,
// request throttling, and the response envelope; callers above it only
// see domain types and domain errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"lightdash-go/domain"
)

const (
	defaultTimeout = 30 * time.Second

	// Throttle defaults sized for the Lightdash Cloud rate limits.
	defaultRequestsPerSecond = 10
	defaultBurst             = 20
)

// Options tunes a Client beyond the required connection settings.
type Options struct {
	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client

	// Limiter overrides the default request throttle.
	Limiter *rate.Limiter

	// Logger receives request-level debug logging. Defaults to
	// slog.Default.
	Logger *slog.Logger

	// InvalidateCache asks the server to bypass its result cache on
	// query submission.
	InvalidateCache bool
}

// Client is an authenticated HTTP client for one Lightdash project.
// It is safe for concurrent use.
type Client struct {
	baseURL     string
	token       string
	projectUUID string

	httpClient      *http.Client
	limiter         *rate.Limiter
	logger          *slog.Logger
	invalidateCache bool
}

// NewClient creates a client for the given instance URL, personal
// access token, and project UUID. A trailing slash on the instance URL
// is tolerated.
func NewClient(instanceURL, accessToken, projectUUID string, opts ...Options) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(instanceURL, "/"),
		token:       accessToken,
		projectUUID: projectUUID,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurst),
		logger:      slog.Default(),
	}
	if len(opts) > 0 {
		opt := opts[0]
		if opt.HTTPClient != nil {
			c.httpClient = opt.HTTPClient
		}
		if opt.Limiter != nil {
			c.limiter = opt.Limiter
		}
		if opt.Logger != nil {
			c.logger = opt.Logger
		}
		c.invalidateCache = opt.InvalidateCache
	}
	return c
}

// BaseURL returns the normalized instance URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ProjectUUID returns the project this client is bound to.
func (c *Client) ProjectUUID() string { return c.projectUUID }

// envelope is the standard Lightdash response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Results json.RawMessage `json:"results"`
	Error   *apiErrorBody   `json:"error"`
}

type apiErrorBody struct {
	Name       string `json:"name"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// do issues one API request and decodes the response envelope into
// out. A nil out discards the results.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	raw, err := c.doRaw(ctx, method, path, params, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s results: %w", method, path, err)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, params url.Values, body any) (json.RawMessage, error) {
	resp, err := c.send(ctx, method, path, params, body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, apiError(resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(data)))
		}
		return nil, fmt.Errorf("decode %s %s envelope: %w", method, path, err)
	}
	if env.Status == "error" || resp.StatusCode >= 400 {
		if env.Error != nil {
			code := env.Error.StatusCode
			if code == 0 {
				code = resp.StatusCode
			}
			return nil, apiError(code, env.Error.Name, env.Error.Message)
		}
		return nil, apiError(resp.StatusCode, http.StatusText(resp.StatusCode), "request failed")
	}
	return env.Results, nil
}

func (c *Client) send(ctx context.Context, method, path string, params url.Values, body any, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle %s %s: %w", method, path, err)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "ApiKey "+c.token)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.DebugContext(ctx, "api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))
	return resp, nil
}

func apiError(statusCode int, name, message string) error {
	return domain.ErrAPI(name, statusCode, "%s", message)
}

func pageParams(page, pageSize int) url.Values {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	return params
}
