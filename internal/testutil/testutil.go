// Package testutil provides helpers for end-to-end tests of the web server.
package testutil

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// TestServer wraps httptest.Server with a browser-like client that keeps cookies
type TestServer struct {
	Server  *httptest.Server
	BaseURL string
	Client  *http.Client
	t       *testing.T
}

// ProjectRoot returns the directory holding go.mod
func ProjectRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("could not get caller info")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// TemplatesDir returns the real template directory
func TemplatesDir() string {
	return filepath.Join(ProjectRoot(), "web", "templates")
}

// StaticDir returns the real static asset directory
func StaticDir() string {
	return filepath.Join(ProjectRoot(), "web", "static")
}

// TestEnv returns LOAN_* variables for a server talking to apiURL with
// drafts under draftsDir
func TestEnv(apiURL, draftsDir string) map[string]string {
	return map[string]string{
		"LOAN_API_BASE_URL":       apiURL,
		"LOAN_DRAFTS_DIRECTORY":   draftsDir,
		"LOAN_PATHS_TEMPLATES":    TemplatesDir(),
		"LOAN_PATHS_STATIC":       StaticDir(),
		"LOAN_SERVER_LISTEN_ADDR": ":0",
		"LOAN_LOGGING_LEVEL":      "debug",
	}
}

// SetTestEnv applies env for the duration of the test
func SetTestEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

// NewTestServer starts router and a client with a cookie jar
func NewTestServer(t *testing.T, router http.Handler) *TestServer {
	t.Helper()

	server := httptest.NewServer(router)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}

	ts := &TestServer{
		Server:  server,
		BaseURL: server.URL,
		Client:  &http.Client{Jar: jar},
		t:       t,
	}
	t.Cleanup(ts.Close)
	return ts
}

func (ts *TestServer) do(req *http.Request) *http.Response {
	ts.t.Helper()
	resp, err := ts.Client.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s failed: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

func (ts *TestServer) newRequest(method, path string, body io.Reader) *http.Request {
	ts.t.Helper()
	req, err := http.NewRequest(method, ts.BaseURL+path, body)
	if err != nil {
		ts.t.Fatalf("build %s %s: %v", method, path, err)
	}
	return req
}

// GET performs a full-page GET request
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()
	return ts.do(ts.newRequest(http.MethodGet, path, nil))
}

// POSTForm posts form values like a browser without JavaScript
func (ts *TestServer) POSTForm(path string, form url.Values) *http.Response {
	ts.t.Helper()
	req := ts.newRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(req)
}

// Fragment posts form values as htmx does and gets back the view fragment
func (ts *TestServer) Fragment(path string, form url.Values) *http.Response {
	ts.t.Helper()
	req := ts.newRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	return ts.do(req)
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// ReadBody reads and returns the response body as a string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}
