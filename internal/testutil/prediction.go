package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// PredictionService is a stand-in for the external prediction API
type PredictionService struct {
	Server *httptest.Server

	mu           sync.Mutex
	predictCalls int
	exploreCalls int
	lastPayload  map[string]interface{}

	PredictStatus int
	PredictBody   string
	ExploreStatus int
	ExploreBody   string
}

// NewPredictionService starts a fake that approves everything with 0.82 confidence
func NewPredictionService(t *testing.T) *PredictionService {
	t.Helper()
	p := &PredictionService{
		PredictStatus: http.StatusOK,
		PredictBody:   `{"prediction":"Approved","confidence":0.82}`,
		ExploreStatus: http.StatusOK,
		ExploreBody:   `{"loans":[]}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		status, body := p.record(r, &p.predictCalls, func() (int, string) { return p.PredictStatus, p.PredictBody })
		writeJSON(w, status, body)
	})
	mux.HandleFunc("/explore_loans", func(w http.ResponseWriter, r *http.Request) {
		status, body := p.record(r, &p.exploreCalls, func() (int, string) { return p.ExploreStatus, p.ExploreBody })
		writeJSON(w, status, body)
	})

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

func (p *PredictionService) record(r *http.Request, counter *int, reply func() (int, string)) (int, string) {
	var payload map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	p.mu.Lock()
	defer p.mu.Unlock()
	*counter++
	p.lastPayload = payload
	return reply()
}

// Respond sets the predict reply
func (p *PredictionService) Respond(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PredictStatus, p.PredictBody = status, body
}

// RespondExplore sets the explore reply
func (p *PredictionService) RespondExplore(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ExploreStatus, p.ExploreBody = status, body
}

// Calls returns how many predict and explore requests arrived
func (p *PredictionService) Calls() (predict, explore int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.predictCalls, p.exploreCalls
}

// LastPayload returns the most recent decoded request body
func (p *PredictionService) LastPayload() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPayload
}

func (p *PredictionService) URL() string {
	return p.Server.URL
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
