// File path: internal/recordstore/http_test.go
package recordstore

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestClient points an HTTPClient at a httptest server standing in for
// the authoritative record store.
func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(parsed.Host)
	require.NoError(t, err)

	client, err := New(context.Background(), Config{
		Scheme:  "http",
		Host:    host,
		Port:    port,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func healthyMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestCreateRecord(t *testing.T) {
	mux := healthyMux()
	var gotAuth string
	var gotFields Fields
	mux.HandleFunc("/api/v1/projects/A1/records", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotFields))
		writeBody(w, http.StatusCreated, CreateResult{ID: "R1", CreatedAt: "2026-08-01T10:00:00Z"})
	})

	client := newTestClient(t, mux)
	require.True(t, client.Available())

	result, err := client.Create(context.Background(), "A1", Fields{
		Category: "procedures",
		Content:  "calibrated",
		Tags:     TagList([]string{"x", "y"}),
	})
	require.NoError(t, err)
	require.Equal(t, "R1", result.ID)
	require.Equal(t, "2026-08-01T10:00:00Z", result.CreatedAt)
	require.Equal(t, "Bearer test-key", gotAuth)
	require.NotNil(t, gotFields.Tags)
	require.Equal(t, []string{"x", "y"}, *gotFields.Tags)
}

func TestCreateRejectsEmptyID(t *testing.T) {
	mux := healthyMux()
	mux.HandleFunc("/api/v1/projects/A1/records", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusCreated, CreateResult{})
	})

	client := newTestClient(t, mux)
	_, err := client.Create(context.Background(), "A1", Fields{Category: "c", Content: "x"})
	require.Error(t, err)
	require.False(t, client.Available())
}

func TestCreateServerErrorMarksUnavailable(t *testing.T) {
	mux := healthyMux()
	mux.HandleFunc("/api/v1/projects/A1/records", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	client := newTestClient(t, mux)
	_, err := client.Create(context.Background(), "A1", Fields{Category: "c", Content: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
	require.False(t, client.Available())
}

func TestUpdateRecord(t *testing.T) {
	mux := healthyMux()
	var gotMethod string
	mux.HandleFunc("/api/v1/records/R1", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, mux)
	err := client.Update(context.Background(), "R1", Fields{Content: "new"})
	require.NoError(t, err)
	require.Equal(t, http.MethodPatch, gotMethod)
	require.True(t, client.Available())
}

func TestUpdateMissingRecord(t *testing.T) {
	client := newTestClient(t, healthyMux())
	err := client.Update(context.Background(), "ghost", Fields{Content: "x"})
	require.Error(t, err)
	// A 404 is a record-level miss, not a store outage.
	require.True(t, client.Available())
}

func TestDeleteTreatsMissingAsDeleted(t *testing.T) {
	mux := healthyMux()
	deleted := false
	mux.HandleFunc("/api/v1/records/R1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux)
	require.NoError(t, client.Delete(context.Background(), "R1"))
	require.True(t, deleted)
	// The server never registered this record; the 404 still reads as done.
	require.NoError(t, client.Delete(context.Background(), "already-gone"))
}

func TestUnreachableStoreStaysUnavailable(t *testing.T) {
	client, err := New(context.Background(), Config{
		Scheme:  "http",
		Host:    "127.0.0.1",
		Port:    "1", // nothing listens here
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	defer client.Close()
	require.False(t, client.Available())

	_, err = client.Create(context.Background(), "A1", Fields{Category: "c", Content: "x"})
	require.Error(t, err)
}

func writeBody(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
