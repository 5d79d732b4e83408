package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Service is an in-process fake of the Virtuoso REST API.
type Service struct {
	server *httptest.Server
	token  string

	mu           sync.Mutex
	goalProjects map[string]any
	triggers     map[string]map[string]any
	jobs         map[string][]JobState
	polls        map[string]int
	failures     []int
	calls        []Call
}

// NewService starts a fake service that accepts only "Bearer <token>".
// An empty token disables the authorization check. The server is closed
// when Close is called.
func NewService(token string) *Service {
	s := &Service{
		token:        token,
		goalProjects: make(map[string]any),
		triggers:     make(map[string]map[string]any),
		jobs:         make(map[string][]JobState),
		polls:        make(map[string]int),
	}
	s.server = httptest.NewServer(s.router())
	return s
}

// Close shuts the server down.
func (s *Service) Close() {
	s.server.Close()
}

// URL returns the API base URL, the equivalent of "https://api.virtuoso.qa/api".
func (s *Service) URL() string {
	return s.server.URL + "/api"
}

// Client returns an HTTP client configured for the server.
func (s *Service) Client() *http.Client {
	return s.server.Client()
}

// SetGoalProject makes GET /goals/{goalID} answer with the given projectId.
func (s *Service) SetGoalProject(goalID int64, projectID any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goalProjects[fmt.Sprint(goalID)] = projectID
}

// OnExecuteGoal sets the response body of POST /goals/{goalID}/execute.
func (s *Service) OnExecuteGoal(goalID int64, response map[string]any) {
	s.setTrigger(fmt.Sprintf("goal/%d", goalID), response)
}

// OnExecuteSnapshot sets the response body of POST /goals/{goalID}/snapshots/{snapshotID}/execute.
func (s *Service) OnExecuteSnapshot(goalID, snapshotID int64, response map[string]any) {
	s.setTrigger(fmt.Sprintf("snapshot/%d/%d", goalID, snapshotID), response)
}

// OnExecutePlan sets the response body of PUT /plans/executions/{planID}/execute.
func (s *Service) OnExecutePlan(planID int64, response map[string]any) {
	s.setTrigger(fmt.Sprintf("plan/%d", planID), response)
}

func (s *Service) setTrigger(key string, response map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers[key] = response
}

// ScriptJob sets the sequence of states returned for a job. The last state repeats.
func (s *Service) ScriptJob(jobID string, states ...JobState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = append([]JobState(nil), states...)
	s.polls[jobID] = 0
}

// FailNext makes the next requests answer with the given status codes, in
// order, before any routing happens.
func (s *Service) FailNext(codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, codes...)
}

// Calls returns a copy of every request received so far.
func (s *Service) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountCalls counts the requests with the given method whose path starts with prefix.
// The prefix is relative to URL(), e.g. "/goals/42".
func (s *Service) CountCalls(method, prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, call := range s.calls {
		if call.Method == method && strings.HasPrefix(call.Path, "/api"+prefix) {
			count++
		}
	}
	return count
}

// Polls returns how often the status of jobID has been served.
func (s *Service) Polls(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[jobID]
}

func (s *Service) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api", func(r chi.Router) {
		r.Get("/goals/{goalID}", s.handleGoal)
		r.Get("/executions/{jobID}/status", s.handleJobStatus)
		r.Post("/goals/{goalID}/execute", s.handleTrigger(func(r *http.Request) string {
			return "goal/" + chi.URLParam(r, "goalID")
		}))
		r.Post("/goals/{goalID}/snapshots/{snapshotID}/execute", s.handleTrigger(func(r *http.Request) string {
			return "snapshot/" + chi.URLParam(r, "goalID") + "/" + chi.URLParam(r, "snapshotID")
		}))
		r.Put("/plans/executions/{planID}/execute", s.handleTrigger(func(r *http.Request) string {
			return "plan/" + chi.URLParam(r, "planID")
		}))
	})
	return r
}

// record logs the call, enforces the bearer token and serves injected failures.
func (s *Service) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			s.mu.Lock()
			s.calls = append(s.calls, Call{
				Method:        r.Method,
				Path:          r.URL.Path,
				Query:         r.URL.RawQuery,
				Authorization: r.Header.Get("Authorization"),
				Status:        rec.status,
			})
			s.mu.Unlock()
		}()

		s.mu.Lock()
		failure := 0
		if len(s.failures) > 0 {
			failure = s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if failure != 0 {
			writeJSON(rec, failure, map[string]any{"error": http.StatusText(failure)})
			return
		}
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeJSON(rec, http.StatusUnauthorized, map[string]any{"error": "invalid token"})
			return
		}
		next.ServeHTTP(rec, r)
	})
}

func (s *Service) handleGoal(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")

	s.mu.Lock()
	projectID, ok := s.goalProjects[goalID]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "goal not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": json.Number(goalID), "projectId": projectID})
}

func (s *Service) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	s.mu.Lock()
	states, ok := s.jobs[jobID]
	var state JobState
	if ok && len(states) > 0 {
		index := s.polls[jobID]
		if index >= len(states) {
			index = len(states) - 1
		}
		state = states[index]
		s.polls[jobID]++
	}
	s.mu.Unlock()

	if !ok || len(states) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "job not found"})
		return
	}

	body := map[string]any{"id": jobID, "status": state.Status}
	if state.Outcome != "" {
		body["outcome"] = state.Outcome
	}
	if state.GoalID != 0 {
		body["goalId"] = state.GoalID
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Service) handleTrigger(key func(r *http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		response, ok := s.triggers[key(r)]
		s.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "nothing to execute"})
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
