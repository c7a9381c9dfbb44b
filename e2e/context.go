//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TestContext holds state shared by the steps of one scenario.
type TestContext struct {
	BaseURL          string
	AdminToken       string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	// run keeps emails unique so scenarios can be replayed against the same server.
	run      string
	tokens   map[string]string
	ids      map[string]string
	requests map[string]string
}

// NewTestContext reads BASE_URL and ADMIN_TOKEN from the environment.
func NewTestContext() *TestContext {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &TestContext{
		BaseURL:    baseURL,
		AdminToken: os.Getenv("ADMIN_TOKEN"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		run:        uuid.NewString()[:8],
		tokens:     map[string]string{},
		ids:        map[string]string{},
		requests:   map[string]string{},
	}
}

// Do sends a JSON request with an optional bearer token and keeps the response.
func (tc *TestContext) Do(method, path, token string, body any) error {
	return tc.DoWithHeaders(method, path, body, bearer(token))
}

// DoWithHeaders sends a JSON request with extra headers.
func (tc *TestContext) DoWithHeaders(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// POST sends an unauthenticated JSON POST.
func (tc *TestContext) POST(path string, body any) error {
	return tc.Do(http.MethodPost, path, "", body)
}

// GET sends a GET with the given headers.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.DoWithHeaders(http.MethodGet, path, nil, headers)
}

// GetResponseField reads a dotted path such as "user.id" from the JSON body.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
		if data, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
	}
	return data, nil
}

// ResponseContains reports whether the body mentions text or has it as a top-level key.
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}
	_, err := tc.GetResponseField(text)
	return err == nil
}

// Email returns the run-scoped address for an actor alias.
func (tc *TestContext) Email(alias string) string {
	return fmt.Sprintf("%s+%s@e2e.smartgn.local", alias, tc.run)
}

func (tc *TestContext) Token(alias string) string { return tc.tokens[alias] }
func (tc *TestContext) SetToken(alias, token string) { tc.tokens[alias] = token }
func (tc *TestContext) ID(alias string) string { return tc.ids[alias] }
func (tc *TestContext) SetID(alias, id string) { tc.ids[alias] = id }
func (tc *TestContext) RequestID(alias string) string { return tc.requests[alias] }
func (tc *TestContext) SetRequestID(alias, id string) { tc.requests[alias] = id }
func (tc *TestContext) GetAdminToken() string { return tc.AdminToken }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.LastResponseBody }

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func bearer(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}
