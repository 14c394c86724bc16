package main

import (
	"bytes"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"loanpredictor/internal/config"
	"loanpredictor/internal/logger"
	"loanpredictor/internal/models"
	"loanpredictor/internal/services/offers"
	"loanpredictor/internal/testutil"
)

type testApp struct {
	ts        *testutil.TestServer
	api       *testutil.PredictionService
	draftsDir string
}

// setupTestServer starts the server against a fake prediction service
func setupTestServer(t *testing.T) *testApp {
	t.Helper()

	api := testutil.NewPredictionService(t)
	draftsDir := t.TempDir()
	testutil.SetTestEnv(t, testutil.TestEnv(api.URL(), draftsDir))

	return &testApp{
		ts:        startServer(t),
		api:       api,
		draftsDir: draftsDir,
	}
}

func startServer(t *testing.T) *testutil.TestServer {
	t.Helper()

	c, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if err := SetupDependencies(c, logger.NewTestLogger(t)); err != nil {
		t.Fatalf("Failed to setup dependencies: %v", err)
	}
	t.Cleanup(Shutdown)

	return testutil.NewTestServer(t, SetupRouter())
}

func sampleForm() url.Values {
	form := url.Values{}
	for k, v := range models.SampleSnapshot() {
		form.Set(k, v)
	}
	return form
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestServer(t)

	resp := app.ts.GET("/api/health")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"status":"ok"`, app.api.URL())
}

func TestVersionEndpoint(t *testing.T) {
	app := setupTestServer(t)

	resp := app.ts.GET("/api/version")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"version":`)
}

func TestIndexShowsForm(t *testing.T) {
	app := setupTestServer(t)

	resp := app.ts.GET("/")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeHTML().
		View("form").
		HasElement("loan-form").
		Contains("Check Eligibility", "CIBIL Score", "Fill with sample data")
}

func TestSamplePrefill(t *testing.T) {
	app := setupTestServer(t)

	resp := app.ts.GET("/?sample=true")
	testutil.AssertResponse(t, resp).
		StatusOK().
		View("form").
		Contains(`value="778"`, `value="29900000"`)

	predict, _ := app.api.Calls()
	if predict != 0 {
		t.Errorf("Prefill should not call the service, got %d predict calls", predict)
	}
}

func TestApplyApproved(t *testing.T) {
	app := setupTestServer(t)

	resp := app.ts.Fragment("/apply", sampleForm())
	testutil.AssertResponse(t, resp).
		StatusOK().
		View("result").
		Contains("Approved", "82%", "Explore Loan Options", "₹29,900,000").
		NotContains("<html")

	payload := app.api.LastPayload()
	if payload["cibil_score"] != float64(778) {
		t.Errorf("cibil_score = %v, want 778", payload["cibil_score"])
	}
	if payload["education"] != float64(1) || payload["self_employed"] != float64(0) {
		t.Errorf("Enum fields sent as %v/%v, want 1/0", payload["education"], payload["self_employed"])
	}
}

func TestApplyRejectedHidesExplore(t *testing.T) {
	app := setupTestServer(t)
	app.api.Respond(http.StatusOK, `{"prediction":"Rejected","confidence":0.35}`)

	resp := app.ts.Fragment("/apply", sampleForm())
	testutil.AssertResponse(t, resp).
		StatusOK().
		View("result").
		Contains("Rejected", "35%", "does not meet the approval criteria").
		NotContains("explore-btn")
}

func TestApplyInvalidFormSkipsService(t *testing.T) {
	app := setupTestServer(t)

	form := sampleForm()
	form.Set(models.FieldCreditScore, "")
	form.Set(models.FieldLoanTerm, "abc")

	resp := app.ts.Fragment("/apply", form)
	testutil.AssertResponse(t, resp).
		Status(http.StatusUnprocessableEntity).
		View("form").
		Contains("This field is required", "Please enter a valid number", `value="29900000"`)

	if predict, _ := app.api.Calls(); predict != 0 {
		t.Errorf("Invalid form reached the service %d times", predict)
	}
}

func TestApplyServerError(t *testing.T) {
	app := setupTestServer(t)
	app.api.Respond(http.StatusInternalServerError, ``)

	resp := app.ts.Fragment("/apply", sampleForm())
	testutil.AssertResponse(t, resp).
		StatusOK().
		View("error").
		Contains("Server error: 500", "Try Again").
		HasElement("dismiss-btn")
}

func TestApplyServiceMessage(t *testing.T) {
	app := setupTestServer(t)
	app.api.Respond(http.StatusTooManyRequests, `{"error":"Daily quota exceeded"}`)

	resp := app.ts.Fragment("/apply", sampleForm())
	testutil.AssertResponse(t, resp).
		View("error").
		Contains("Daily quota exceeded")

	// Try Again keeps what the user typed
	resp = app.ts.Fragment("/dismiss", nil)
	testutil.AssertResponse(t, resp).
		StatusOK().
		View("form").
		Contains(`value="778"`)
}

func TestPlainPostRedirectsToView(t *testing.T) {
	app := setupTestServer(t)

	// The client follows the 303 back to GET /
	resp := app.ts.POSTForm("/apply", sampleForm())
	testutil.AssertResponse(t, resp).
		StatusOK().
		View("result").
		Contains("<html", "82%")
}

func TestExploreEmptyShowsPlaceholder(t *testing.T) {
	app := setupTestServer(t)
	app.ts.Fragment("/apply", sampleForm()).Body.Close()

	resp := app.ts.Fragment("/explore", nil)
	testutil.AssertResponse(t, resp).
		StatusOK().
		View("recommendations").
		Contains(offers.PlaceholderMessage)
}

func TestExploreAndBack(t *testing.T) {
	app := setupTestServer(t)
	app.api.RespondExplore(http.StatusOK, `{"loans":[
		{"bank_name":"HDFC Bank","loan_type":"Home Loan","max_amount":"₹3,00,00,000","repayment_time":"30 years","interest_rate":"8.5%","rating":8,"reason":"Strong credit history"},
		{"loan_type":"Personal Loan","interest_rate":"See website","link":"https://example.com/rates"}
	]}`)

	app.ts.Fragment("/apply", sampleForm()).Body.Close()

	resp := app.ts.Fragment("/explore", nil)
	testutil.AssertResponse(t, resp).
		View("recommendations").
		Contains("HDFC Bank", "8/10", "Strong credit history", "Bank Name", `href="https://example.com/rates"`).
		NotContains(offers.PlaceholderMessage)

	resp = app.ts.Fragment("/back", nil)
	testutil.AssertResponse(t, resp).
		StatusOK().
		View("result").
		Contains("82%")

	predict, explore := app.api.Calls()
	if predict != 1 || explore != 1 {
		t.Errorf("Calls = %d predict, %d explore; want 1, 1", predict, explore)
	}
}

func TestExploreRejectedBySession(t *testing.T) {
	app := setupTestServer(t)

	resp := app.ts.Fragment("/explore", nil)
	testutil.AssertResponse(t, resp).
		Status(http.StatusConflict).
		View("form")

	if _, explore := app.api.Calls(); explore != 0 {
		t.Errorf("Explore without an approval reached the service")
	}
}

func TestExploreFailure(t *testing.T) {
	app := setupTestServer(t)
	app.api.RespondExplore(http.StatusBadGateway, `{"message":"Recommendation engine offline"}`)

	app.ts.Fragment("/apply", sampleForm()).Body.Close()

	resp := app.ts.Fragment("/explore", nil)
	testutil.AssertResponse(t, resp).
		View("error").
		Contains("Recommendation engine offline")
}

func TestResetReturnsEmptyForm(t *testing.T) {
	app := setupTestServer(t)
	app.ts.Fragment("/apply", sampleForm()).Body.Close()

	resp := app.ts.Fragment("/reset", nil)
	testutil.AssertResponse(t, resp).
		StatusOK().
		View("form").
		NotContains(`value="778"`)
}

func TestValidateField(t *testing.T) {
	app := setupTestServer(t)

	resp := app.ts.GET("/validate/cibil_score?value=abc")
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains("Please enter a valid number")

	resp = app.ts.GET("/validate/cibil_score?cibil_score=750")
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains("success").
		NotContains("error-message")
}

func TestDraftSavedAndRestored(t *testing.T) {
	app := setupTestServer(t)

	resp := app.ts.Fragment("/draft", sampleForm())
	testutil.AssertResponse(t, resp).Status(http.StatusNoContent)
	resp.Body.Close()

	entries, err := os.ReadDir(app.draftsDir)
	if err != nil {
		t.Fatalf("read drafts dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected one draft on disk, got %d", len(entries))
	}

	// A restarted server has no in-memory session but finds the draft
	restarted := startServer(t)
	restarted.Client.Jar = app.ts.Client.Jar

	resp = restarted.GET("/")
	testutil.AssertResponse(t, resp).
		StatusOK().
		View("form").
		Contains(`value="778"`)
}

func draftFiles(t *testing.T, dir string) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatalf("glob drafts: %v", err)
	}
	return paths
}

func TestEncryptedDraftsLockAndDecrypt(t *testing.T) {
	const passphrase = "correct horse battery"

	api := testutil.NewPredictionService(t)
	draftsDir := t.TempDir()
	testutil.SetTestEnv(t, testutil.TestEnv(api.URL(), draftsDir))
	t.Setenv("LOAN_DRAFTS_PASSPHRASE", passphrase)
	ts := startServer(t)

	resp := ts.Fragment("/draft", sampleForm())
	testutil.AssertResponse(t, resp).Status(http.StatusNoContent)
	resp.Body.Close()

	paths := draftFiles(t, draftsDir)
	if len(paths) != 1 {
		t.Fatalf("Expected one draft on disk, got %d", len(paths))
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("age-encryption.org")) {
		t.Fatalf("Draft is stored in plain text: %q", data)
	}

	s := store
	Shutdown()
	if s.IsUnlocked() {
		t.Error("Expected shutdown to drop the draft key")
	}

	if err := decryptDrafts(draftsDir, "wrong passphrase"); err == nil {
		t.Error("Expected decrypt with the wrong passphrase to fail")
	}
	if err := decryptDrafts(draftsDir, passphrase); err != nil {
		t.Fatalf("decryptDrafts failed: %v", err)
	}
	data, err = os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("778")) {
		t.Errorf("Decrypted draft = %q, want the saved form", data)
	}

	if err := decryptDrafts(draftsDir, passphrase); err == nil {
		t.Error("Expected decrypting a plain directory to fail")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupTestServer(t)
	app.ts.Fragment("/apply", sampleForm()).Body.Close()

	resp := app.ts.GET("/metrics")
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains("loanpredictor_api_requests_total", "loanpredictor_active_sessions 1")
}

func TestStaticFiles(t *testing.T) {
	app := setupTestServer(t)

	resp := app.ts.GET("/static/app.js")
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains("'online'", "'offline'", "dismiss-btn", "htmx:afterSwap", "window.scrollTo")
}
