// Package mockgov emulates the federal and statehouse provider APIs so the
// service can be exercised locally without real credentials or quota spend.
//
// The federal surface lives at /bill and the statehouse surface under
// /legiscan/, matching the adapters' expectations when pointed at one base
// URL. A configurable failure rate and latency make it usable for breaker
// and fallback rehearsals.
package mockgov

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Server serves synthetic provider payloads.
type Server struct {
	mu       sync.Mutex
	rng      *rand.Rand
	latency  time.Duration
	failRate float64
	apiKey   string

	federal []federalBill
	state   []stateBill
}

// Option configures a Server.
type Option func(*Server)

// WithLatency delays every response, emulating a slow provider.
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.latency = d
		}
	}
}

// WithFailRate makes the given fraction of calls fail with a 503.
func WithFailRate(rate float64) Option {
	return func(s *Server) {
		if rate >= 0 && rate <= 1 {
			s.failRate = rate
		}
	}
}

// WithAPIKey requires callers to present the given key.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithSeed fixes the failure-injection sequence.
func WithSeed(seed int64) Option {
	return func(s *Server) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// New builds a Server pre-seeded with a small synthetic docket.
func New(opts ...Option) *Server {
	s := &Server{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		federal: seedFederal(),
		state:   seedState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches both provider surfaces to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/bill", s.handleFederal)
	mux.HandleFunc("/legiscan/", s.handleState)
}

func (s *Server) delayAndMaybeFail() bool {
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	if s.failRate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.failRate
}

// federal wire shapes

type federalSponsor struct {
	BioguideID string `json:"bioguideId"`
	FullName   string `json:"fullName"`
	Party      string `json:"party"`
	Chamber    string `json:"chamber"`
}

type federalBill struct {
	Number           string         `json:"number"`
	Congress         int            `json:"congress"`
	Title            string         `json:"title"`
	Summary          string         `json:"summary"`
	Stage            string         `json:"stage"`
	Subjects         []string       `json:"subjects"`
	IntroducedDate   string         `json:"introducedDate"`
	LatestActionDate string         `json:"latestActionDate"`
	Sponsor          federalSponsor `json:"sponsor"`
}

type federalList struct {
	Bills      []federalBill `json:"bills"`
	Pagination struct {
		Count int `json:"count"`
	} `json:"pagination"`
}

func (s *Server) handleFederal(w http.ResponseWriter, r *http.Request) {
	if s.delayAndMaybeFail() {
		writeFederalError(w, http.StatusServiceUnavailable, "synthetic outage")
		return
	}
	if s.apiKey != "" && r.Header.Get("X-Api-Key") != s.apiKey {
		writeFederalError(w, http.StatusForbidden, "invalid api key")
		return
	}

	values := r.URL.Query()
	filtered := make([]federalBill, 0, len(s.federal))
	stages := splitList(values.Get("stage"))
	sponsors := splitList(values.Get("sponsorIds"))
	subject := strings.ToLower(values.Get("subject"))
	for _, bill := range s.federal {
		if len(stages) > 0 && !contains(stages, bill.Stage) {
			continue
		}
		if len(sponsors) > 0 && !contains(sponsors, bill.Sponsor.BioguideID) {
			continue
		}
		if subject != "" && !matchesSubject(bill.Title, bill.Subjects, subject) {
			continue
		}
		filtered = append(filtered, bill)
	}

	limit, offset := pageParams(values)
	var payload federalList
	payload.Bills = pageOf(filtered, limit, offset)
	payload.Pagination.Count = len(filtered)
	writeBody(w, http.StatusOK, payload)
}

func writeFederalError(w http.ResponseWriter, status int, msg string) {
	body := map[string]any{"error": map[string]string{"message": msg}}
	writeBody(w, status, body)
}

// statehouse wire shapes

type stateSponsor struct {
	PeopleID int    `json:"people_id"`
	Name     string `json:"name"`
	Party    string `json:"party"`
	Role     string `json:"role"`
}

type stateBill struct {
	BillID         int          `json:"bill_id"`
	Number         string       `json:"number"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Status         int          `json:"status"`
	StatusDate     string       `json:"status_date"`
	IntroducedDate string       `json:"introduced_date"`
	LastAction     string       `json:"last_action"`
	LastActionDate string       `json:"last_action_date"`
	Subjects       []string     `json:"subjects"`
	Sponsor        stateSponsor `json:"sponsor"`
}

type stateEnvelope struct {
	Status string `json:"status"`
	Alert  *struct {
		Message string `json:"message"`
	} `json:"alert,omitempty"`
	Bills []stateBill `json:"bills"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.delayAndMaybeFail() {
		http.Error(w, "synthetic outage", http.StatusServiceUnavailable)
		return
	}

	values := r.URL.Query()
	if s.apiKey != "" && values.Get("key") != s.apiKey {
		env := stateEnvelope{Status: "ERROR"}
		env.Alert = &struct {
			Message string `json:"message"`
		}{Message: "invalid api key"}
		writeBody(w, http.StatusOK, env)
		return
	}

	filtered := make([]stateBill, 0, len(s.state))
	statusCode, _ := strconv.Atoi(values.Get("status"))
	people := splitList(values.Get("people_ids"))
	search := strings.ToLower(values.Get("query"))
	for _, bill := range s.state {
		if statusCode > 0 && bill.Status != statusCode {
			continue
		}
		if len(people) > 0 && !contains(people, strconv.Itoa(bill.Sponsor.PeopleID)) {
			continue
		}
		if search != "" && !matchesSubject(bill.Title, bill.Subjects, search) {
			continue
		}
		filtered = append(filtered, bill)
	}

	limit, offset := pageParams(values)
	writeBody(w, http.StatusOK, stateEnvelope{
		Status: "OK",
		Bills:  pageOf(filtered, limit, offset),
	})
}

// helpers

func pageParams(values map[string][]string) (limit, offset int) {
	get := func(key string) int {
		if vs, ok := values[key]; ok && len(vs) > 0 {
			n, _ := strconv.Atoi(vs[0])
			return n
		}
		return 0
	}
	limit = get("limit")
	if limit <= 0 {
		limit = 20
	}
	offset = get("offset")
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func pageOf[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

func matchesSubject(title string, subjects []string, needle string) bool {
	if strings.Contains(strings.ToLower(title), needle) {
		return true
	}
	for _, s := range subjects {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
