/*
Copyright © 2026 T. McArthur

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package extract fetches raw intraday records from the quote API. Records
// come back untyped; everything downstream treats them as untrusted.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tmcarthur/barloader/internal/model"
)

// DefaultTimeout bounds one quote API call. A timeout is a recoverable
// per-symbol failure, never a process hang.
const DefaultTimeout = 25 * time.Second

// APIError classifies one failed quote API call for the diagnostics log.
type APIError struct {
	URL        string
	Kind       string // "HTTPError", "Timeout" or "RequestException"
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Client calls the historical-chart endpoint of the quote provider.
type Client struct {
	rc     *resty.Client
	apiKey string
}

// NewClient builds a client for the given base URL, e.g.
// https://financialmodelingprep.com/api/v3/historical-chart/5min.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{rc: rc, apiKey: apiKey}
}

// Bars fetches the raw 5-minute records for one symbol between fromDay and
// toDay (inclusive, YYYY-MM-DD). The error, when non-nil, is an *APIError.
func (c *Client) Bars(ctx context.Context, symbol, fromDay, toDay string) ([]model.RawRecord, error) {
	reqURL := c.rc.BaseURL + "/" + url.PathEscape(symbol)

	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"from":     fromDay,
			"to":       toDay,
			"extended": "true",
			"apikey":   c.apiKey,
		}).
		Get("/" + url.PathEscape(symbol))
	if err != nil {
		return nil, classify(reqURL, err)
	}
	if resp.IsError() {
		return nil, &APIError{
			URL:        reqURL,
			Kind:       "HTTPError",
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("quote api returned %s: %s", resp.Status(), strings.TrimSpace(resp.String())),
		}
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, nil
	}

	var records []model.RawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &APIError{
			URL:  reqURL,
			Kind: "RequestException",
			Err:  fmt.Errorf("failed to decode quote api response: %w", err),
		}
	}
	return records, nil
}

func classify(reqURL string, err error) *APIError {
	kind := "RequestException"

	var ne interface{ Timeout() bool }
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		kind = "Timeout"
	case errors.As(err, &ne) && ne.Timeout():
		kind = "Timeout"
	}

	return &APIError{URL: reqURL, Kind: kind, Err: err}
}
