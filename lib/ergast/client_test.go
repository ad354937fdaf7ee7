package ergast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"pitwall-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func testConfig(baseUrl string) Config {
	return Config{
		BaseUrl:    baseUrl,
		TimeoutSec: 5,
		MaxRetries: 3,
		BackoffSec: 0,
		PageLimit:  1000,
	}
}

// servePage renders an MRData page of race entries, capping the
// requested limit the way the real API does.
func servePage(w http.ResponseWriter, r *http.Request, items []string, serverLimit int) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	end := offset + serverLimit
	if end > len(items) {
		end = len(items)
	}
	page := []string{}
	if offset < len(items) {
		page = items[offset:end]
	}

	fmt.Fprintf(
		w,
		`{"MRData": {"total": "%d", "limit": "%d", "offset": "%d", "RaceTable": {"Races": [%s]}}}`,
		len(items), serverLimit, offset, joinJson(page),
	)
}

func joinJson(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item
	}
	return out
}

func raceItems(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"season": "2020", "round": "%d"}`, i+1)
	}
	return items
}

func TestFetchPagesHonorsServerReportedLimit(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ergast")
	defer cleanup()

	items := raceItems(5)
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// the requested limit of 1000 is silently capped to 2
		servePage(w, r, items, 2)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	races, err := client.FetchPages(context.Background(), "2020.json", nil)
	require.NoError(t, err)

	// ceil(5 / 2) pages, every item exactly once
	require.Equal(t, 3, requests)
	require.Len(t, races, 5)

	var last struct {
		Round string `json:"round"`
	}
	require.NoError(t, json.Unmarshal(races[4], &last))
	require.Equal(t, "5", last.Round)
}

func TestFetchPagesStopsOnEmptyPage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ergast")
	defer cleanup()

	items := raceItems(2)
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if offset >= len(items) {
			// report an inconsistent total alongside an empty page
			fmt.Fprint(w, `{"MRData": {"total": "100", "limit": "2", "offset": "2", "RaceTable": {"Races": []}}}`)
			return
		}
		fmt.Fprintf(
			w,
			`{"MRData": {"total": "100", "limit": "2", "offset": "0", "RaceTable": {"Races": [%s]}}}`,
			joinJson(items),
		)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	races, err := client.FetchPages(context.Background(), "2020.json", nil)
	require.NoError(t, err)
	require.Len(t, races, 2)
	require.Equal(t, 2, requests)
}

func TestRetryCountIsExact(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ergast")
	defer cleanup()

	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.FetchPages(context.Background(), "drivers.json", nil)
	require.Error(t, err)
	require.Equal(t, 3, attempts)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Contains(t, fetchErr.Url, "drivers.json")
	require.Equal(t, "1000", fetchErr.Params.Get("limit"))
}

func TestRetryBudgetClampsToOneAttempt(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ergast")
	defer cleanup()

	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	config := testConfig(srv.URL)
	config.MaxRetries = 0
	client := NewClient(config)

	_, err := client.FetchPages(context.Background(), "drivers.json", nil)
	require.Error(t, err)
	require.Equal(t, 1, attempts)

	// the failure carries a real underlying error even with a
	// degenerate attempt budget
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Error(t, fetchErr.Err)
	require.Contains(t, fetchErr.Error(), "500")
}

func TestFetchPagesZeroReportedLimitStillTerminates(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ergast")
	defer cleanup()

	items := raceItems(4)
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		end := offset + 2
		if end > len(items) {
			end = len(items)
		}
		page := []string{}
		if offset < len(items) {
			page = items[offset:end]
		}
		// the reported limit is broken but the pages are real
		fmt.Fprintf(
			w,
			`{"MRData": {"total": "%d", "limit": "0", "offset": "%d", "RaceTable": {"Races": [%s]}}}`,
			len(items), offset, joinJson(page),
		)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	races, err := client.FetchPages(context.Background(), "2020.json", nil)
	require.NoError(t, err)
	require.Len(t, races, 4)
	require.Equal(t, 2, requests)
}

func TestFetchOne(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ergast")
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1000", r.URL.Query().Get("limit"))
		require.Equal(t, "0", r.URL.Query().Get("offset"))
		fmt.Fprint(w, `{"MRData": {"total": "1", "DriverTable": {"Drivers": [{"driverId": "alonso"}]}}}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	payload, err := client.FetchOne(context.Background(), "drivers.json", nil)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(payload, &doc))
	require.Contains(t, doc, "MRData")
}

func TestFetchOneRetriesTransientFailures(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ergast")
	defer cleanup()

	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"MRData": {"total": "0", "CircuitTable": {"Circuits": []}}}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.FetchOne(context.Background(), "circuits.json", nil)
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}
