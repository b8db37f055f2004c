//go:build functional

// Package functional runs the shopping list server over real TCP and drives
// it through its REST and websocket interfaces.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/shoplist/internal/app"
	"github.com/vyrodovalexey/shoplist/internal/auth"
	"github.com/vyrodovalexey/shoplist/internal/config"
	"github.com/vyrodovalexey/shoplist/internal/server"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost    = "TEST_SERVER_HOST"
	EnvTestTimeout       = "TEST_TIMEOUT"
	EnvTestMetricsEnable = "TEST_METRICS_ENABLED"
)

// Default test configuration values.
const (
	DefaultTestHost         = "127.0.0.1"
	DefaultTestTimeout      = 30 * time.Second
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWebSocketTimeout = 10 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
	DefaultDestination      = "+15550001111"

	// TestAPIKey is accepted by servers started WithAPIKey.
	TestAPIKey = "functional-key"
)

// TestConfig holds test configuration loaded from environment.
type TestConfig struct {
	Host           string
	Timeout        time.Duration
	MetricsEnabled bool
}

// LoadTestConfig loads test configuration from environment variables.
func LoadTestConfig() *TestConfig {
	cfg := &TestConfig{
		Host:    DefaultTestHost,
		Timeout: DefaultTestTimeout,
	}

	if host := os.Getenv(EnvTestServerHost); host != "" {
		cfg.Host = host
	}

	if timeoutStr := os.Getenv(EnvTestTimeout); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}

	if metricsStr := os.Getenv(EnvTestMetricsEnable); metricsStr != "" {
		if enabled, err := strconv.ParseBool(metricsStr); err == nil {
			cfg.MetricsEnabled = enabled
		}
	}

	return cfg
}

// ServerOption adjusts the server configuration before start.
type ServerOption func(*config.Config)

// WithAPIKey protects the API with TestAPIKey.
func WithAPIKey() ServerOption {
	return func(cfg *config.Config) {
		cfg.AuthMode = string(auth.AuthMethodAPIKey)
		cfg.APIKeys = TestAPIKey + ":functional"
	}
}

// WithoutDestination leaves the WhatsApp destination unset.
func WithoutDestination() ServerOption {
	return func(cfg *config.Config) {
		cfg.WhatsAppTo = ""
	}
}

// TestServer wraps a running server backed by a fresh SQLite database.
type TestServer struct {
	Server  *server.Server
	App     *app.App
	Config  *config.Config
	BaseURL string
	WSURL   string

	t       *testing.T
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan error
	started bool
}

// NewTestServer creates a test server on a free port.
func NewTestServer(t *testing.T, opts ...ServerOption) *TestServer {
	t.Helper()

	testCfg := LoadTestConfig()

	listener, err := net.Listen("tcp", testCfg.Host+":0")
	if err != nil {
		t.Fatalf("Failed to find available port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()

	cfg := &config.Config{
		ServerPort:      port,
		LogLevel:        "error",
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  testCfg.MetricsEnabled,
		AuthMode:        string(auth.AuthMethodNone),
		StoreDriver:     config.StoreSQLite,
		SQLitePath:      filepath.Join(t.TempDir(), "shoplist.db"),
		CacheTTL:        config.DefaultCacheTTL,
		HistoryCacheTTL: config.DefaultHistoryCacheTTL,
		EditWindow:      config.DefaultEditWindow,
		HistoryLimit:    config.DefaultHistoryLimit,
		Notifier:        config.NotifierLog,
		WhatsAppTo:      DefaultDestination,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Invalid test config: %v", err)
	}

	logger := zap.NewNop()
	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("Failed to build application: %v", err)
	}

	authenticator, err := auth.New(cfg.AuthMode, cfg.BasicAuthUsers, cfg.APIKeys)
	if err != nil {
		t.Fatalf("Failed to build authenticator: %v", err)
	}

	ts := &TestServer{
		Server:  server.New(cfg, logger, application.Service, authenticator),
		App:     application,
		Config:  cfg,
		BaseURL: fmt.Sprintf("http://%s:%d", testCfg.Host, port),
		WSURL:   fmt.Sprintf("ws://%s:%d/ws", testCfg.Host, port),
		t:       t,
	}
	t.Cleanup(ts.Stop)
	return ts
}

// Start starts the server and waits until it answers /health.
func (ts *TestServer) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ts.cancel = cancel
	ts.done = make(chan error, 1)
	go func() {
		ts.done <- ts.Server.Run(ctx, DefaultShutdownTimeout)
	}()

	ts.waitForReady()
	ts.started = true
}

func (ts *TestServer) waitForReady() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.t.Fatalf("Server did not become ready within timeout")
		case err := <-ts.done:
			ts.t.Fatalf("Server exited before becoming ready: %v", err)
		case <-ticker.C:
			resp, err := http.Get(ts.BaseURL + "/health")
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
	}
}

// Stop shuts the server down and closes its store.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		ts.cancel()
		if err := <-ts.done; err != nil {
			ts.t.Logf("Server shutdown error: %v", err)
		}
		ts.started = false
	}
	_ = ts.App.Close()
}

// HTTPClient provides a configured HTTP client for tests.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	headers map[string]string
	t       *testing.T
}

// NewHTTPClient creates a new HTTP client for testing.
func NewHTTPClient(t *testing.T, baseURL string) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: DefaultRequestTimeout},
		baseURL: baseURL,
		headers: map[string]string{},
		t:       t,
	}
}

// WithHeader returns a copy of the client that sends header on every request.
func (c *HTTPClient) WithHeader(key, value string) *HTTPClient {
	headers := make(map[string]string, len(c.headers)+1)
	for k, v := range c.headers {
		headers[k] = v
	}
	headers[key] = value
	return &HTTPClient{client: c.client, baseURL: c.baseURL, headers: headers, t: c.t}
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do executes an HTTP request and returns the response.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			bodyReader = bytes.NewBufferString(v)
		default:
			jsonBody, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %w", err)
			}
			bodyReader = bytes.NewBuffer(jsonBody)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// MustGet performs a GET request and fails the test on transport errors.
func (c *HTTPClient) MustGet(path string) *Response {
	c.t.Helper()
	resp, err := c.Do(context.Background(), http.MethodGet, path, nil)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// MustPost performs a POST request and fails the test on transport errors.
func (c *HTTPClient) MustPost(path string, body any) *Response {
	c.t.Helper()
	resp, err := c.Do(context.Background(), http.MethodPost, path, body)
	if err != nil {
		c.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// APIResponse represents a generic API response structure.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DecodeData unmarshals the data field of a success envelope into T.
func DecodeData[T any](t *testing.T, resp *Response) T {
	t.Helper()

	var envelope APIResponse
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		t.Fatalf("Failed to parse API response: %v. Body: %s", err, resp.Body)
	}
	if !envelope.Success {
		t.Fatalf("Expected success=true. Error: %s", envelope.Error)
	}

	var out T
	if err := json.Unmarshal(envelope.Data, &out); err != nil {
		t.Fatalf("Failed to parse data: %v. Data: %s", err, envelope.Data)
	}
	return out
}

// DecodeError parses an error response.
func DecodeError(t *testing.T, resp *Response) ErrorResponse {
	t.Helper()

	var out ErrorResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		t.Fatalf("Failed to parse error response: %v. Body: %s", err, resp.Body)
	}
	return out
}

// AssertStatusCode asserts that the response has the expected status code.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
}

// LogTestStart logs the start of a test.
func LogTestStart(t *testing.T, testID, testName string) {
	t.Helper()
	t.Logf("Starting test %s: %s", testID, testName)
}
