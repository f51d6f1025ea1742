// Package places provides a thin client for the Google Places nearby-search
// JSON API.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Client performs place-search operations.
type Client interface {
	Nearby(ctx context.Context, req NearbyRequest) (*NearbyResponse, error)
}

// NearbyRequest scopes a keyword search to a circle around a point.
type NearbyRequest struct {
	Keyword      string
	Lat, Lng     float64
	RadiusMeters int
}

// NearbyResponse is the decoded provider response. An empty Results slice is
// a successful response, not an error.
type NearbyResponse struct {
	Results []Result `json:"results"`
	Status  string   `json:"status"`
}

// Result is one place returned by the provider.
type Result struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Vicinity string `json:"vicinity"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Types            []string `json:"types"`
}

// Provider status values other than OK and ZERO_RESULTS.
const (
	statusRequestDenied  = "REQUEST_DENIED"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusInvalidRequest = "INVALID_REQUEST"
)

// StatusError reports a non-OK provider status.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("places: provider status %s", e.Status)
	}
	return fmt.Sprintf("places: provider status %s: %s", e.Status, e.Message)
}

// IsQuotaExceeded reports whether err is a provider quota rejection.
func IsQuotaExceeded(err error) bool {
	var se *StatusError
	return eris.As(err, &se) && se.Status == statusOverQueryLimit
}

// IsRequestDenied reports whether err is a credential/permission rejection.
func IsRequestDenied(err error) bool {
	var se *StatusError
	return eris.As(err, &se) && se.Status == statusRequestDenied
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a place-search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Nearby(ctx context.Context, req NearbyRequest) (*NearbyResponse, error) {
	params := url.Values{
		"keyword":  {req.Keyword},
		"location": {fmt.Sprintf("%f,%f", req.Lat, req.Lng)},
		"radius":   {fmt.Sprintf("%d", req.RadiusMeters)},
		"key":      {c.apiKey},
	}

	reqURL := c.baseURL + "/nearbysearch/json?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var decoded struct {
		NearbyResponse
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}

	switch decoded.Status {
	case "OK":
		return &decoded.NearbyResponse, nil
	case "ZERO_RESULTS":
		// Successful empty response.
		return &NearbyResponse{Status: decoded.Status}, nil
	default:
		return nil, eris.Wrap(&StatusError{Status: decoded.Status, Message: decoded.ErrorMessage}, "places: nearby search")
	}
}
