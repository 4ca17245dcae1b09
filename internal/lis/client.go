package lis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/billtrack/internal/worker"
)

// ErrUnexpectedStatus is wrapped by errors for non-2xx upstream responses
var ErrUnexpectedStatus = errors.New("unexpected status")

// ErrResponseTooLarge is returned when a response body exceeds Options.MaxBytes
var ErrResponseTooLarge = errors.New("response too large")

const (
	legislationListPath = "/Legislation/api/GetLegislationListAsync"
	eventHistoryPath    = "/LegislationEvent/api/GetLegislationEventHistoryAsync"
	votesPath           = "/Vote/api/GetVoteAsync"
)

// Client calls the upstream Legislative Information System API
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	MaxBytes   int64
	HTTPProxy  string
	HTTPSProxy string
	Limiter    *worker.Limiter // nil disables rate limiting
}

// NewClient creates a new Client
func NewClient(opts Options) *Client {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 50_000_000
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: proxyFunc(opts.HTTPProxy, opts.HTTPSProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
		limiter:   opts.Limiter,
	}
}

// GetLegislationList returns every bill in the session with its latest status
func (c *Client) GetLegislationList(ctx context.Context, sessionCode string) ([]Legislation, error) {
	body, err := c.get(ctx, legislationListPath, url.Values{"sessionCode": {sessionCode}})
	if err != nil {
		return nil, err
	}

	var resp legislationListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode legislation list: %w", err)
	}
	return resp.Legislations, nil
}

// GetEventHistory returns the raw event history for one bill
func (c *Client) GetEventHistory(ctx context.Context, legislationID string) ([]Event, error) {
	body, err := c.get(ctx, eventHistoryPath, url.Values{"legislationID": {legislationID}})
	if err != nil {
		return nil, err
	}

	var resp eventHistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode event history %s: %w", legislationID, err)
	}
	return resp.LegislationEvents, nil
}

// GetVotesRaw returns the undecoded vote list for the session, so callers
// can hash it before deciding whether to parse.
func (c *Client) GetVotesRaw(ctx context.Context, sessionCode string) ([]byte, error) {
	return c.get(ctx, votesPath, url.Values{"sessionCode": {sessionCode}})
}

// ParseVotes decodes a raw vote list response
func ParseVotes(body []byte) ([]Vote, error) {
	var resp voteListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode votes: %w", err)
	}
	return resp.Votes, nil
}

// LegislationIDString formats an upstream id for use as a map key or query value
func LegislationIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	rawURL := c.baseURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrResponseTooLarge, path, c.maxBytes)
	}

	return body, nil
}
