// Package fakeserver runs an in-process Lightdash API for integration
// tests. It speaks just enough of the v1 and v2 surfaces for the
// transport layer: explore metadata, async metric queries with
// configurable pending polls, query cancellation, and the SQL runner
// job flow.
package fakeserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Field is explore field metadata as served by the API.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Hidden      bool   `json:"hidden,omitempty"`
}

// Explore seeds one model with its fields and canned query results.
type Explore struct {
	Name        string
	Label       string
	SchemaName  string
	Description string
	Dimensions  []Field
	Metrics     []Field
}

type queryState struct {
	payload   map[string]any
	rows      []map[string]any
	fields    map[string]Field
	polls     int
	cancelled bool
	errMsg    string
}

type sqlJob struct {
	sql     string
	polls   int
	rows    []map[string]any
	columns []string
}

// Server is the fake API state. Configure it before starting the
// httptest server; per-request state is guarded internally.
type Server struct {
	// ProjectUUID is the only project the server answers for.
	ProjectUUID string

	// Token is the access token the server accepts. Empty disables
	// the auth check.
	Token string

	// PendingPolls is how many status polls report pending before a
	// query becomes ready.
	PendingPolls int

	// SQLPendingPolls is the same for SQL runner jobs.
	SQLPendingPolls int

	// QueryError makes every submitted query fail with this message.
	QueryError string

	mu          sync.Mutex
	explores    []Explore
	results     map[string][]map[string]any
	fields      map[string]map[string]Field
	queries     map[string]*queryState
	sqlJobs     map[string]*sqlJob
	sqlRows     []map[string]any
	lastPayload map[string]any

	submitCount int
	cancelCount int
}

// New creates a fake server for one project.
func New(projectUUID, token string) *Server {
	return &Server{
		ProjectUUID: projectUUID,
		Token:       token,
		results:     make(map[string][]map[string]any),
		fields:      make(map[string]map[string]Field),
		queries:     make(map[string]*queryState),
		sqlJobs:     make(map[string]*sqlJob),
	}
}

// AddExplore seeds a model.
func (s *Server) AddExplore(e Explore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explores = append(s.explores, e)
}

// SetResults seeds the rows and result fields a metric query against
// the given explore returns.
func (s *Server) SetResults(explore string, fields map[string]Field, rows []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[explore] = rows
	s.fields[explore] = fields
}

// SetSQLRows seeds the rows every SQL runner job returns.
func (s *Server) SetSQLRows(rows []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sqlRows = rows
}

// SubmitCount returns how many queries have been submitted.
func (s *Server) SubmitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitCount
}

// CancelCount returns how many cancellations have been received.
func (s *Server) CancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelCount
}

// LastPayload returns the query payload of the most recent submission.
func (s *Server) LastPayload() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPayload
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.auth)

	r.Route("/api/v1/projects/{projectUuid}", func(r chi.Router) {
		r.Get("/explores", s.listExplores)
		r.Get("/explores/{exploreName}", s.getExplore)
		r.Post("/sqlRunner/run", s.runSQL)
		r.Get("/sqlRunner/results/{fileName}", s.sqlResults)
	})
	r.Get("/api/v1/schedulers/job/{jobId}/status", s.sqlJobStatus)

	r.Route("/api/v2/projects/{projectUuid}/query", func(r chi.Router) {
		r.Post("/metric-query", s.submitQuery)
		r.Get("/{queryUuid}", s.queryStatus)
		r.Post("/{queryUuid}/cancel", s.cancelQuery)
	})
	return r
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "ApiKey "+s.Token {
			writeError(w, http.StatusUnauthorized, "AuthorizationError", "invalid access token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listExplores(w http.ResponseWriter, r *http.Request) {
	if !s.checkProject(w, r) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.explores))
	for i, e := range s.explores {
		out[i] = map[string]any{
			"name":        e.Name,
			"label":       e.Label,
			"schemaName":  e.SchemaName,
			"description": e.Description,
			"type":        "default",
		}
	}
	writeOK(w, out)
}

func (s *Server) getExplore(w http.ResponseWriter, r *http.Request) {
	if !s.checkProject(w, r) {
		return
	}
	name := chi.URLParam(r, "exploreName")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.explores {
		if e.Name != name {
			continue
		}
		writeOK(w, map[string]any{
			"name":      e.Name,
			"baseTable": e.Name,
			"tables": map[string]any{
				e.Name: map[string]any{
					"dimensions": fieldMap(e.Dimensions),
					"metrics":    fieldMap(e.Metrics),
				},
			},
		})
		return
	}
	writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("explore %s not found", name))
}

func fieldMap(fields []Field) map[string]Field {
	out := make(map[string]Field, len(fields))
	for _, f := range fields {
		out[f.Name] = f
	}
	return out
}

func (s *Server) submitQuery(w http.ResponseWriter, r *http.Request) {
	if !s.checkProject(w, r) {
		return
	}
	var body struct {
		Query map[string]any `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "malformed request body")
		return
	}
	explore, _ := body.Query["exploreName"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCount++
	q := &queryState{
		payload: body.Query,
		rows:    s.results[explore],
		fields:  s.fields[explore],
		errMsg:  s.QueryError,
	}
	queryUUID := uuid.New().String()
	s.queries[queryUUID] = q
	s.lastPayload = body.Query

	writeOK(w, map[string]any{
		"queryUuid": queryUUID,
		"fields":    q.fields,
	})
}

func (s *Server) queryStatus(w http.ResponseWriter, r *http.Request) {
	if !s.checkProject(w, r) {
		return
	}
	queryUUID := chi.URLParam(r, "queryUuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queries[queryUUID]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("query %s not found", queryUUID))
		return
	}

	switch {
	case q.cancelled:
		writeOK(w, map[string]any{"status": "cancelled"})
		return
	case q.errMsg != "":
		writeOK(w, map[string]any{"status": "error", "error": q.errMsg})
		return
	}

	q.polls++
	if q.polls <= s.PendingPolls {
		writeOK(w, map[string]any{"status": "pending"})
		return
	}

	page := intParam(r, "page", 1)
	pageSize := intParam(r, "pageSize", 500)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(q.rows) {
		start = len(q.rows)
	}
	if end > len(q.rows) {
		end = len(q.rows)
	}
	totalPages := (len(q.rows) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	writeOK(w, map[string]any{
		"status":         "ready",
		"rows":           q.rows[start:end],
		"totalResults":   len(q.rows),
		"totalPageCount": totalPages,
		"fields":         q.fields,
	})
}

func (s *Server) cancelQuery(w http.ResponseWriter, r *http.Request) {
	if !s.checkProject(w, r) {
		return
	}
	queryUUID := chi.URLParam(r, "queryUuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queries[queryUUID]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("query %s not found", queryUUID))
		return
	}
	q.cancelled = true
	s.cancelCount++
	writeOK(w, nil)
}

func (s *Server) runSQL(w http.ResponseWriter, r *http.Request) {
	if !s.checkProject(w, r) {
		return
	}
	var body struct {
		SQL string `json:"sql"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	jobID := uuid.New().String()
	job := &sqlJob{sql: body.SQL, rows: s.sqlRows}
	if len(s.sqlRows) > 0 {
		for col := range s.sqlRows[0] {
			job.columns = append(job.columns, col)
		}
	}
	s.sqlJobs[jobID] = job
	writeOK(w, map[string]any{"jobId": jobID})
}

func (s *Server) sqlJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.sqlJobs[jobID]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("job %s not found", jobID))
		return
	}

	job.polls++
	if job.polls <= s.SQLPendingPolls {
		writeOK(w, map[string]any{"status": "started"})
		return
	}

	columns := make([]map[string]any, len(job.columns))
	for i, col := range job.columns {
		columns[i] = map[string]any{"reference": col}
	}
	writeOK(w, map[string]any{
		"status": "completed",
		"details": map[string]any{
			"fileUrl": fmt.Sprintf("/api/v1/projects/%s/sqlRunner/results/%s", s.ProjectUUID, jobID),
			"columns": columns,
		},
	})
}

func (s *Server) sqlResults(w http.ResponseWriter, r *http.Request) {
	if !s.checkProject(w, r) {
		return
	}
	jobID := chi.URLParam(r, "fileName")

	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.sqlJobs[jobID]
	if !ok {
		writeError(w, http.StatusNotFound, "NotFoundError", fmt.Sprintf("results %s not found", jobID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	var lines []string
	for _, row := range job.rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "InternalError", "encode row")
			return
		}
		lines = append(lines, string(encoded))
	}
	fmt.Fprint(w, strings.Join(lines, "\n"))
}

func (s *Server) checkProject(w http.ResponseWriter, r *http.Request) bool {
	if got := chi.URLParam(r, "projectUuid"); got != s.ProjectUUID {
		writeError(w, http.StatusForbidden, "ForbiddenError", fmt.Sprintf("project %s is not accessible", got))
		return false
	}
	return true
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func writeOK(w http.ResponseWriter, results any) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"status": "ok"}
	if results != nil {
		resp["results"] = results
	}
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, code int, name, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "error",
		"error": map[string]any{
			"name":       name,
			"statusCode": code,
			"message":    message,
		},
	})
}
