// Package ergast fetches historical motorsport data from an
// Ergast-compatible REST API (limit/offset pagination over an MRData
// envelope).
package ergast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"pitwall-backend/lib/restyutil"
	"pitwall-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("ergast")

type Config struct {
	BaseUrl    string  `json:"base_url"`
	TimeoutSec float64 `json:"timeout_sec"`
	MaxRetries int     `json:"max_retries"`
	BackoffSec float64 `json:"backoff_sec"`
	PageLimit  int     `json:"page_limit"`
}

func DefaultConfig() Config {
	return Config{
		BaseUrl:    "https://api.jolpi.ca/ergast/f1",
		TimeoutSec: 30,
		MaxRetries: 3,
		BackoffSec: 1.5,
		PageLimit:  1000,
	}
}

// FetchError is a network or HTTP failure that survived all retry
// attempts. It carries the request url and parameters so failures are
// attributable to a concrete key.
type FetchError struct {
	Url    string
	Params url.Values
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf(
		"request failed after retries: url=%s params=%s: %s",
		e.Url, e.Params.Encode(), e.Err,
	)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Client struct {
	config Config
	http   *resty.Client
}

func NewClient(config Config) *Client {
	// MaxRetries is the total attempt budget; anything below one
	// attempt would make every request fail without an underlying error
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}

	client := resty.New()
	client.SetBaseURL(config.BaseUrl)
	client.SetTimeout(time.Duration(config.TimeoutSec * float64(time.Second)))

	telemetry.InstrumentResty(client, "ergast/http")

	return &Client{config: config, http: client}
}

// SetInstrumentOutput dumps every HTTP exchange the client makes to the
// given output. Intended for debugging, `output` can be nil.
func (c *Client) SetInstrumentOutput(output restyutil.InstrumentOutput) {
	restyutil.InstrumentClient(c.http, output)
}

// getJson performs a GET request and returns the raw response body.
// Any transport error or non-2xx status is retried up to MaxRetries
// times with a linearly increasing delay; once attempts are exhausted
// the last error is wrapped in a *FetchError.
func (c *Client) getJson(ctx context.Context, path string, params url.Values) ([]byte, error) {
	backoff := time.Duration(c.config.BackoffSec * float64(time.Second))

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff * time.Duration(attempt-1)):
			}
		}

		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(params).
			Get(path)
		if err != nil {
			lastErr = err
			continue
		}
		if !res.IsSuccess() {
			lastErr = fmt.Errorf("unexpected status %s", res.Status())
			continue
		}
		return res.Body(), nil
	}

	return nil, &FetchError{
		Url:    fmt.Sprintf("%s/%s", c.config.BaseUrl, path),
		Params: params,
		Err:    lastErr,
	}
}

type pageEnvelope struct {
	MRData struct {
		Total     string `json:"total"`
		Limit     string `json:"limit"`
		Offset    string `json:"offset"`
		RaceTable struct {
			Races []json.RawMessage `json:"Races"`
		} `json:"RaceTable"`
	} `json:"MRData"`
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// FetchPages walks limit/offset pagination for a race-shaped endpoint
// until the collection is exhausted, returning the concatenation of
// every page's race entries.
//
// The server may silently cap the requested page size, so the next
// offset is always computed from the limit and offset the server
// reports, never from the requested ones. An empty page terminates the
// walk regardless of the reported total.
func (c *Client) FetchPages(ctx context.Context, path string, extra url.Values) ([]json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "FetchPages")
	defer span.End()

	offset := 0
	limit := c.config.PageLimit

	var all []json.RawMessage
	for {
		params := url.Values{}
		for k, v := range extra {
			params[k] = v
		}
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))

		body, err := c.getJson(ctx, path, params)
		if err != nil {
			span.SetStatus(codes.Error, "failed to fetch page")
			return nil, err
		}

		var env pageEnvelope
		err = json.Unmarshal(body, &env)
		if err != nil {
			span.SetStatus(codes.Error, "failed to decode page")
			return nil, fmt.Errorf("decode page at offset %d of %q: %w", offset, path, err)
		}

		races := env.MRData.RaceTable.Races
		if len(races) == 0 {
			break
		}
		all = append(all, races...)

		total := atoiOr(env.MRData.Total, 0)
		returnedLimit := atoiOr(env.MRData.Limit, limit)
		returnedOffset := atoiOr(env.MRData.Offset, offset)
		// a server reporting a non-positive limit alongside a
		// non-empty page would pin the offset in place forever;
		// advance by the page size actually received instead
		if returnedLimit <= 0 {
			returnedLimit = len(races)
		}

		slog.DebugContext(
			ctx, "fetched page",
			"path", path,
			"offset", returnedOffset,
			"limit", returnedLimit,
			"total", total,
		)

		offset = returnedOffset + returnedLimit
		if offset >= total {
			break
		}
	}

	return all, nil
}

// FetchOne fetches a single payload without pagination handling,
// for endpoints known to return their full collection in one page.
// It is subject to the same retry policy as FetchPages.
func (c *Client) FetchOne(ctx context.Context, path string, extra url.Values) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "FetchOne")
	defer span.End()

	params := url.Values{}
	for k, v := range extra {
		params[k] = v
	}
	if params.Get("limit") == "" {
		params.Set("limit", strconv.Itoa(c.config.PageLimit))
	}
	if params.Get("offset") == "" {
		params.Set("offset", "0")
	}

	body, err := c.getJson(ctx, path, params)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}
	return json.RawMessage(body), nil
}
