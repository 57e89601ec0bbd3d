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

package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBarsDecodesRawRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/AAPL" {
			t.Errorf("path = %q", got)
		}
		q := r.URL.Query()
		if q.Get("from") != "2026-01-26" || q.Get("to") != "2026-01-26" || q.Get("apikey") != "test-key" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"date":"2026-01-26 10:05:00","open":1.0,"high":2.0,"low":0.5,"close":1.5,"volume":100},
			{"date":"","open":"oops"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", time.Second)
	records, err := c.Bars(context.Background(), "AAPL", "2026-01-26", "2026-01-26")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0]["close"] != 1.5 {
		t.Errorf("close = %v", records[0]["close"])
	}
	// Malformed records must pass through untouched for the validator.
	if records[1]["open"] != "oops" {
		t.Errorf("open = %v", records[1]["open"])
	}
}

func TestBarsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)
	records, err := c.Bars(context.Background(), "AAPL", "2026-01-26", "2026-01-26")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestBarsClassifiesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "limit exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)
	_, err := c.Bars(context.Background(), "AAPL", "2026-01-26", "2026-01-26")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Kind != "HTTPError" || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("got kind %q status %d", apiErr.Kind, apiErr.StatusCode)
	}
}

func TestBarsClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 20*time.Millisecond)
	_, err := c.Bars(context.Background(), "AAPL", "2026-01-26", "2026-01-26")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Kind != "Timeout" {
		t.Errorf("kind = %q, want Timeout", apiErr.Kind)
	}
}

func TestBarsClassifiesConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "k", time.Second)
	_, err := c.Bars(context.Background(), "AAPL", "2026-01-26", "2026-01-26")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Kind != "RequestException" {
		t.Errorf("kind = %q, want RequestException", apiErr.Kind)
	}
	if apiErr.StatusCode != 0 {
		t.Errorf("status = %d, want 0", apiErr.StatusCode)
	}
}
