package live

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CredentialSource supplies API credentials and can refresh them after the
// upstream rejects a pair. The static source just hands the same pair back.
type CredentialSource interface {
	Credentials() (appID, apiKey string)
	Refresh()
}

// StaticCredentials is a CredentialSource backed by fixed values
type StaticCredentials struct {
	AppID  string
	APIKey string
}

func (s *StaticCredentials) Credentials() (string, string) { return s.AppID, s.APIKey }
func (s *StaticCredentials) Refresh()                      {}

// Client calls the OC Transpo live-trips API
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      CredentialSource
	backoff    func(attempt int) time.Duration
}

// NewClient creates a live-trips client for the given endpoint
func NewClient(baseURL string, creds CredentialSource) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		creds:      creds,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1+2*attempt) * time.Second
		},
	}
}

const maxAttempts = 5

// FetchTrips fetches the next trips for every route serving a stop. Retries
// are local: 401 refreshes credentials, 429 honours Retry-After, 5xx backs
// off linearly. Any other status falls through to response classification,
// which yields ErrNoSuchStop, ErrNoRoutesAtStop or BadResponseError.
func (c *Client) FetchTrips(ctx context.Context, stopCode string) (*BusStopResponse, error) {
	var body []byte

	for attempt := 0; attempt < maxAttempts; attempt++ {
		appID, apiKey := c.creds.Credentials()
		q := url.Values{}
		q.Set("appID", appID)
		q.Set("apiKey", apiKey)
		q.Set("stopNo", stopCode)
		q.Set("format", "json")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch trips: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			log.Printf("live-trips: credentials rejected, refreshing (attempt %d)", attempt+1)
			c.creds.Refresh()
			continue

		case resp.StatusCode == http.StatusTooManyRequests:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			wait := retryAfter(resp, c.backoff(attempt))
			log.Printf("live-trips: throttled, sleeping %v", wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode >= 500:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			wait := c.backoff(attempt)
			log.Printf("live-trips: upstream returned %d, retrying in %v", resp.StatusCode, wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return ParseResponse(body)
	}

	return nil, fmt.Errorf("live-trips upstream unavailable after %d attempts", maxAttempts)
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
