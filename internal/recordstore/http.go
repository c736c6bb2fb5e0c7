// File path: internal/recordstore/http.go
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jcarrick/logbook/internal/common"
)

var (
	errNotFound = errors.New("resource not found")
	errConflict = errors.New("resource conflict")
)

// HTTPClient talks to the authoritative record store over its JSON API.
type HTTPClient struct {
	httpClient *http.Client
	transport  *http.Transport

	baseURL   string
	apiKey    string
	available bool

	cfg Config

	mu sync.RWMutex
}

// NewFromEnv constructs a client from environment configuration.
func NewFromEnv(ctx context.Context) (*HTTPClient, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// New constructs a client using the provided configuration. The client is
// returned even when the initial health probe fails; it stays in an
// unavailable state and later calls re-probe.
func New(ctx context.Context, cfg Config) (*HTTPClient, error) {
	baseURL := fmt.Sprintf("%s://%s:%s/api/v1", cfg.Scheme, cfg.Host, cfg.Port)
	logger := common.Logger()
	logger.Info(
		"recordstore: initializing client",
		"host", cfg.Host,
		"port", cfg.Port,
		"timeout", cfg.Timeout,
	)

	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPMaxIdlePerHost,
		MaxConnsPerHost:     cfg.HTTPMaxConnsPerHost,
		IdleConnTimeout:     cfg.HTTPIdleConnTimeout,
	}

	client := &HTTPClient{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:  transport,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		cfg:        cfg,
	}

	if err := client.ensureReady(ctx); err != nil {
		logger.Warn("recordstore: initialization probe failed", "error", err)
		return client, nil
	}
	logger.Info("recordstore: connection established")
	return client, nil
}

// Available reports whether the last probe or call saw the store healthy.
func (c *HTTPClient) Available() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

func (c *HTTPClient) setAvailable(ok bool) {
	c.mu.Lock()
	c.available = ok
	c.mu.Unlock()
}

func (c *HTTPClient) ensureReady(ctx context.Context) error {
	if c == nil {
		return errors.New("recordstore client not configured")
	}
	if c.Available() {
		return nil
	}
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = c.health(ctx)
		if err == nil {
			c.setAvailable(true)
			return nil
		}
		select {
		case <-ctx.Done():
			c.setAvailable(false)
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
		}
	}
	c.setAvailable(false)
	return err
}

// Create submits a record under the given authoritative project reference
// and returns the assigned identifier and creation timestamp.
func (c *HTTPClient) Create(ctx context.Context, projectRef string, fields Fields) (*CreateResult, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	projectRef = strings.TrimSpace(projectRef)
	if projectRef == "" {
		return nil, errors.New("project reference required")
	}
	endpoint := fmt.Sprintf("%s/projects/%s/records", c.baseURL, url.PathEscape(projectRef))
	var resp CreateResult
	if err := c.doRequest(ctx, http.MethodPost, endpoint, fields, &resp); err != nil {
		c.setAvailable(false)
		return nil, err
	}
	if strings.TrimSpace(resp.ID) == "" {
		c.setAvailable(false)
		return nil, errors.New("recordstore create returned no id")
	}
	return &resp, nil
}

// Update patches an existing authoritative record in place.
func (c *HTTPClient) Update(ctx context.Context, id string, fields Fields) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return errors.New("record id required")
	}
	endpoint := fmt.Sprintf("%s/records/%s", c.baseURL, url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodPatch, endpoint, fields, nil); err != nil {
		if !errors.Is(err, errNotFound) {
			c.setAvailable(false)
		}
		return err
	}
	return nil
}

// Delete removes an authoritative record. A record that is already gone is
// treated as deleted.
func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return errors.New("record id required")
	}
	endpoint := fmt.Sprintf("%s/records/%s", c.baseURL, url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		if errors.Is(err, errNotFound) {
			return nil
		}
		c.setAvailable(false)
		return err
	}
	return nil
}

func (c *HTTPClient) health(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/health", c.baseURL)
	return c.doRequest(ctx, http.MethodGet, endpoint, nil, nil)
}

func (c *HTTPClient) doRequest(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	if c == nil {
		return errors.New("recordstore client not configured")
	}
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode == http.StatusConflict {
		return errConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("recordstore %s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	return decoder.Decode(out)
}

// Close releases pooled resources associated with the client.
func (c *HTTPClient) Close() error {
	if c == nil {
		return nil
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
