/*
 * Fluxo - Pterodactyl Panel Client
 * Copyright (c) 2025 Fluxo Platform
 * All rights reserved.
 */

package pterodactyl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fluxohost/fluxo/internal/errors"
	"github.com/fluxohost/fluxo/internal/metrics"
)

// DefaultTimeout bounds every panel call; there is no retry and no other
// cancellation mechanism.
const DefaultTimeout = 15 * time.Second

// apiNamespace is the Pterodactyl application API root
const apiNamespace = "/api/application/"

// Client performs authenticated calls against a Pterodactyl-style panel
// application API. It injects the bearer token, negotiates JSON, and fails
// with a typed unreachable_remote error on transport failures and non-2xx
// responses. It performs no retries and no interpretation of response
// bodies beyond JSON decoding.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient constructs a panel client. The base URL is normalized by
// stripping trailing slashes so endpoint concatenation is unambiguous.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: NormalizeBaseURL(baseURL),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// NormalizeBaseURL strips surrounding whitespace and trailing slashes
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

// BaseURL returns the normalized panel base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET against an application API endpoint and decodes the
// JSON response into out when out is non-nil.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

// Post issues a POST with a JSON body against an application API endpoint
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	url := c.baseURL + apiNamespace + strings.TrimPrefix(endpoint, "/")

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeInternal, "panel_request",
				"failed to encode request body")
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "panel_request",
			fmt.Sprintf("failed to build request for %s", endpoint))
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.ObservePanelRequest(method, "transport_error", time.Since(start))
		return errors.WrapUnreachableError(err, "panel_request",
			fmt.Sprintf("panel request %s %s failed", method, endpoint))
	}
	defer resp.Body.Close()

	metrics.ObservePanelRequest(method, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.NewUnreachableError("panel_request",
			fmt.Sprintf("panel returned HTTP %d for %s %s: %s",
				resp.StatusCode, method, endpoint, strings.TrimSpace(string(detail))))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WrapUnreachableError(err, "panel_request",
			fmt.Sprintf("failed to decode panel response for %s %s", method, endpoint))
	}

	return nil
}

// listEnvelope is the pagination envelope the application API wraps list
// responses in: {"data": [{"attributes": {...}}, ...]}
type listEnvelope struct {
	Data []struct {
		Attributes json.RawMessage `json:"attributes"`
	} `json:"data"`
}

// objectEnvelope wraps single-resource responses: {"attributes": {...}}
type objectEnvelope struct {
	Attributes json.RawMessage `json:"attributes"`
}

// getList fetches a list endpoint and unwraps the attributes of each entry
func (c *Client) getList(ctx context.Context, endpoint string) ([]json.RawMessage, error) {
	var envelope listEnvelope
	if err := c.Get(ctx, endpoint, &envelope); err != nil {
		return nil, err
	}
	attrs := make([]json.RawMessage, 0, len(envelope.Data))
	for _, entry := range envelope.Data {
		attrs = append(attrs, entry.Attributes)
	}
	return attrs, nil
}

// locationAttributes mirrors the panel's location resource
type locationAttributes struct {
	ID    int64  `json:"id"`
	Short string `json:"short"`
	Long  string `json:"long"`
}

// nestAttributes mirrors the panel's nest resource
type nestAttributes struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// eggAttributes mirrors the panel's egg resource, optionally including its
// startup variables when requested with ?include=variables
type eggAttributes struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DockerImage   string `json:"docker_image"`
	Startup       string `json:"startup"`
	Relationships struct {
		Variables struct {
			Data []struct {
				Attributes struct {
					EnvVariable  string `json:"env_variable"`
					DefaultValue string `json:"default_value"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"variables"`
	} `json:"relationships"`
}

// serverAttributes mirrors the panel's server resource as returned by the
// create-server endpoint
type serverAttributes struct {
	ID         int64  `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// ListLocations fetches all locations
func (c *Client) ListLocations(ctx context.Context) ([]locationAttributes, error) {
	raws, err := c.getList(ctx, "locations")
	if err != nil {
		return nil, err
	}
	locations := make([]locationAttributes, 0, len(raws))
	for _, raw := range raws {
		var loc locationAttributes
		if err := json.Unmarshal(raw, &loc); err != nil {
			return nil, errors.WrapUnreachableError(err, "panel_request",
				"failed to decode location attributes")
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// ListNests fetches all nests
func (c *Client) ListNests(ctx context.Context) ([]nestAttributes, error) {
	raws, err := c.getList(ctx, "nests")
	if err != nil {
		return nil, err
	}
	nests := make([]nestAttributes, 0, len(raws))
	for _, raw := range raws {
		var nest nestAttributes
		if err := json.Unmarshal(raw, &nest); err != nil {
			return nil, errors.WrapUnreachableError(err, "panel_request",
				"failed to decode nest attributes")
		}
		nests = append(nests, nest)
	}
	return nests, nil
}

// ListEggs fetches the eggs belonging to a nest
func (c *Client) ListEggs(ctx context.Context, nestID string) ([]eggAttributes, error) {
	raws, err := c.getList(ctx, fmt.Sprintf("nests/%s/eggs", nestID))
	if err != nil {
		return nil, err
	}
	eggs := make([]eggAttributes, 0, len(raws))
	for _, raw := range raws {
		var egg eggAttributes
		if err := json.Unmarshal(raw, &egg); err != nil {
			return nil, errors.WrapUnreachableError(err, "panel_request",
				"failed to decode egg attributes")
		}
		eggs = append(eggs, egg)
	}
	return eggs, nil
}

// GetEgg fetches a single egg with its startup variables
func (c *Client) GetEgg(ctx context.Context, nestID, eggID string) (eggAttributes, error) {
	var envelope objectEnvelope
	endpoint := fmt.Sprintf("nests/%s/eggs/%s?include=variables", nestID, eggID)
	if err := c.Get(ctx, endpoint, &envelope); err != nil {
		return eggAttributes{}, err
	}
	var egg eggAttributes
	if err := json.Unmarshal(envelope.Attributes, &egg); err != nil {
		return eggAttributes{}, errors.WrapUnreachableError(err, "panel_request",
			"failed to decode egg attributes")
	}
	return egg, nil
}

// createServerRequest is the create-server wire payload the panel expects
type createServerRequest struct {
	Name          string            `json:"name"`
	User          int64             `json:"user"`
	Egg           int64             `json:"egg"`
	DockerImage   string            `json:"docker_image"`
	Startup       string            `json:"startup"`
	Environment   map[string]string `json:"environment"`
	Limits        serverLimits      `json:"limits"`
	FeatureLimits featureLimits     `json:"feature_limits"`
	Deploy        deploySettings    `json:"deploy"`
}

type serverLimits struct {
	Memory int `json:"memory"`
	Swap   int `json:"swap"`
	Disk   int `json:"disk"`
	IO     int `json:"io"`
	CPU    int `json:"cpu"`
}

type featureLimits struct {
	Databases   int `json:"databases"`
	Backups     int `json:"backups"`
	Allocations int `json:"allocations"`
}

type deploySettings struct {
	Locations   []int64  `json:"locations"`
	DedicatedIP bool     `json:"dedicated_ip"`
	PortRange   []string `json:"port_range"`
}

// CreateServer creates a server on the panel and returns its attributes
func (c *Client) CreateServer(ctx context.Context, req createServerRequest) (serverAttributes, error) {
	var envelope objectEnvelope
	if err := c.Post(ctx, "servers", req, &envelope); err != nil {
		return serverAttributes{}, err
	}
	var server serverAttributes
	if err := json.Unmarshal(envelope.Attributes, &server); err != nil {
		return serverAttributes{}, errors.WrapUnreachableError(err, "panel_request",
			"failed to decode server attributes")
	}
	return server, nil
}
