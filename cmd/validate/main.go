// Package main is a smoke test for a running loan predictor server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"loanpredictor/internal/models"
)

type check struct {
	name        string
	method      string
	path        string
	form        url.Values
	fragment    bool
	status      int
	contentType string
	contains    []string
}

func sampleForm() url.Values {
	v := url.Values{}
	for k, val := range models.SampleSnapshot() {
		v.Set(k, val)
	}
	return v
}

func baseChecks() []check {
	return []check{
		{name: "form page", method: "GET", path: "/", contentType: "text/html", contains: []string{`data-state="form"`, "Check Eligibility"}},
		{name: "field validation", method: "GET", path: "/validate/cibil_score?value=100", fragment: true, contentType: "text/html", contains: []string{"Minimum value is 300"}},
		{name: "static assets", method: "GET", path: "/static/app.js", contentType: "javascript"},
		{name: "health", method: "GET", path: "/api/health", contentType: "application/json", contains: []string{`"status":"ok"`}},
		{name: "version", method: "GET", path: "/api/version", contentType: "application/json", contains: []string{`"version"`}},
		{name: "metrics", method: "GET", path: "/metrics", contentType: "text/plain", contains: []string{"loanpredictor_http_requests_total"}},
	}
}

// predictChecks walk one session through the flow and hit the prediction service
func predictChecks() []check {
	return []check{
		{name: "reset", method: "POST", path: "/reset", fragment: true, contentType: "text/html", contains: []string{`data-state="form"`}},
		{name: "predict", method: "POST", path: "/apply", form: sampleForm(), fragment: true, contentType: "text/html", contains: []string{"Confidence:"}},
		{name: "start over", method: "POST", path: "/reset", fragment: true, contentType: "text/html", contains: []string{`data-state="form"`}},
	}
}

type result struct {
	check    check
	status   int
	duration time.Duration
	err      error
}

func main() {
	base := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	predict := flag.Bool("predict", false, "Also submit the sample application to the prediction service")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Int("timeout", 30, "Request timeout in seconds")
	flag.Parse()

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Timeout: time.Duration(*timeout) * time.Second,
		Jar:     jar,
	}

	checks := baseChecks()
	if *predict {
		checks = append(checks, predictChecks()...)
	}

	fmt.Printf("Validating server at %s\n", *base)
	fmt.Printf("Running %d checks...\n\n", len(checks))

	var passed, failed int
	for _, c := range checks {
		r := run(client, *base, c)
		if r.err != nil {
			failed++
			fmt.Printf("FAIL %-18s %s %s\n", c.name, c.method, c.path)
			fmt.Printf("     %v\n", r.err)
			continue
		}
		passed++
		if *verbose {
			fmt.Printf("PASS %-18s %s %s (%d, %v)\n", c.name, c.method, c.path, r.status, r.duration.Round(time.Millisecond))
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func run(client *http.Client, baseURL string, c check) result {
	start := time.Now()

	var body io.Reader
	if c.form != nil || c.method == http.MethodPost {
		body = strings.NewReader(c.form.Encode())
	}
	req, err := http.NewRequest(c.method, baseURL+c.path, body)
	if err != nil {
		return result{check: c, err: fmt.Errorf("failed to create request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.fragment {
		req.Header.Set("HX-Request", "true")
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{check: c, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{check: c, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{check: c, status: resp.StatusCode, duration: time.Since(start)}

	want := c.status
	if want == 0 {
		want = http.StatusOK
	}
	if resp.StatusCode != want {
		r.err = fmt.Errorf("status %d, expected %d", resp.StatusCode, want)
		return r
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, c.contentType) {
		r.err = fmt.Errorf("wrong content type: got %q, expected %q", ct, c.contentType)
		return r
	}

	if strings.Contains(ct, "application/json") {
		var js interface{}
		if err := json.Unmarshal(data, &js); err != nil {
			r.err = fmt.Errorf("invalid JSON: %w", err)
			return r
		}
	}

	for _, needle := range c.contains {
		if !strings.Contains(string(data), needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}
