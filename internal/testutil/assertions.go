package testutil

import (
	"io"
	"net/http"
	"regexp"
	"strings"
	"testing"
)

// ResponseAssertion chains checks on one response. The body is read once, on
// the first check that needs it.
type ResponseAssertion struct {
	t    *testing.T
	resp *http.Response
	body *string
}

// AssertResponse starts a chain of checks on resp
func AssertResponse(t *testing.T, resp *http.Response) *ResponseAssertion {
	t.Helper()
	return &ResponseAssertion{t: t, resp: resp}
}

// Body returns the response body, reading and closing it on first use
func (ra *ResponseAssertion) Body() string {
	ra.t.Helper()
	if ra.body == nil {
		data, err := io.ReadAll(ra.resp.Body)
		ra.resp.Body.Close()
		if err != nil {
			ra.t.Fatalf("read body: %v", err)
		}
		s := string(data)
		ra.body = &s
	}
	return *ra.body
}

func (ra *ResponseAssertion) fail(format string, args ...interface{}) {
	ra.t.Helper()
	ra.t.Errorf(format+"\n--- body ---\n%s", append(args, excerpt(ra.Body()))...)
}

func (ra *ResponseAssertion) Status(code int) *ResponseAssertion {
	ra.t.Helper()
	if ra.resp.StatusCode != code {
		ra.fail("status = %d, want %d", ra.resp.StatusCode, code)
	}
	return ra
}

func (ra *ResponseAssertion) StatusOK() *ResponseAssertion {
	ra.t.Helper()
	return ra.Status(http.StatusOK)
}

// ContentType checks that Content-Type contains want
func (ra *ResponseAssertion) ContentType(want string) *ResponseAssertion {
	ra.t.Helper()
	if ct := ra.resp.Header.Get("Content-Type"); !strings.Contains(ct, want) {
		ra.t.Errorf("Content-Type = %q, want it to contain %q", ct, want)
	}
	return ra
}

func (ra *ResponseAssertion) ContentTypeHTML() *ResponseAssertion {
	ra.t.Helper()
	return ra.ContentType("text/html")
}

func (ra *ResponseAssertion) ContentTypeJSON() *ResponseAssertion {
	ra.t.Helper()
	return ra.ContentType("application/json")
}

func (ra *ResponseAssertion) Header(name, want string) *ResponseAssertion {
	ra.t.Helper()
	if got := ra.resp.Header.Get(name); got != want {
		ra.t.Errorf("header %s = %q, want %q", name, got, want)
	}
	return ra
}

// View checks which UI state the page or fragment shows
func (ra *ResponseAssertion) View(state string) *ResponseAssertion {
	ra.t.Helper()
	if !strings.Contains(ra.Body(), `data-state="`+state+`"`) {
		ra.fail("expected the %q view", state)
	}
	return ra
}

// Contains checks that every needle appears in the body
func (ra *ResponseAssertion) Contains(needles ...string) *ResponseAssertion {
	ra.t.Helper()
	for _, n := range needles {
		if !strings.Contains(ra.Body(), n) {
			ra.fail("body does not contain %q", n)
		}
	}
	return ra
}

// NotContains checks that no needle appears in the body
func (ra *ResponseAssertion) NotContains(needles ...string) *ResponseAssertion {
	ra.t.Helper()
	for _, n := range needles {
		if strings.Contains(ra.Body(), n) {
			ra.t.Errorf("body unexpectedly contains %q", n)
		}
	}
	return ra
}

// HasElement checks for an element with the given id attribute
func (ra *ResponseAssertion) HasElement(id string) *ResponseAssertion {
	ra.t.Helper()
	re := regexp.MustCompile(`id=["']` + regexp.QuoteMeta(id) + `["']`)
	if !re.MatchString(ra.Body()) {
		ra.fail("no element with id %q", id)
	}
	return ra
}

func excerpt(s string) string {
	const limit = 600
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
