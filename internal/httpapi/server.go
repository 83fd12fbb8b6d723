package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"solace/internal/chat"
	"solace/internal/config"
	"solace/internal/observability"
	"solace/internal/store"
)

// Companion is the set of core operations the HTTP surface exposes.
type Companion interface {
	ProcessText(ctx context.Context, externalID int64, text string) (string, error)
	SaveMood(ctx context.Context, externalID int64, labels []string) error
	HasLoggedMood(ctx context.Context, externalID int64) (bool, error)
	AddJournalEntry(ctx context.Context, externalID int64, content string) error
	ListJournalEntries(ctx context.Context, externalID int64) ([]store.JournalEntry, error)
}

type Server struct {
	cfg       config.Config
	companion Companion
	metrics   *observability.Metrics
	limiter   *userRateLimiter
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, companion Companion, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		companion: companion,
		metrics:   metrics,
		limiter:   newUserRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections may drive a chat
				// channel unless the deployment opts out.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.With(s.limiter.Middleware).Post("/process_text", s.handleProcessText)
	r.Post("/save_mood", s.handleSaveMood)
	r.Get("/has_submitted_mood", s.handleHasSubmittedMood)
	r.Post("/add_journal_entry", s.handleAddJournalEntry)
	r.Get("/get_journal_entries", s.handleGetJournalEntries)

	r.Get("/ws/chat", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.SnapshotStages())
}

func (s *Server) handleProcessText(w http.ResponseWriter, r *http.Request) {
	externalID, err := formUserID(r)
	if err != nil {
		s.respondFault(w, "process_text", err)
		return
	}

	reply, err := s.companion.ProcessText(r.Context(), externalID, r.FormValue("text"))
	if err != nil {
		s.respondFault(w, "process_text", err)
		return
	}

	s.metrics.RequestsTotal.WithLabelValues("process_text", "ok").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"response": reply})
}

func (s *Server) handleSaveMood(w http.ResponseWriter, r *http.Request) {
	externalID, err := formUserID(r)
	if err != nil {
		s.respondFault(w, "save_mood", err)
		return
	}

	labels := strings.Split(r.FormValue("mood"), ",")
	if err := s.companion.SaveMood(r.Context(), externalID, labels); err != nil {
		s.respondFault(w, "save_mood", err)
		return
	}

	s.metrics.RequestsTotal.WithLabelValues("save_mood", "ok").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"response": "Mood saved successfully"})
}

func (s *Server) handleHasSubmittedMood(w http.ResponseWriter, r *http.Request) {
	externalID, err := queryUserID(r)
	if err != nil {
		s.respondFault(w, "has_submitted_mood", err)
		return
	}

	logged, err := s.companion.HasLoggedMood(r.Context(), externalID)
	if err != nil {
		s.respondFault(w, "has_submitted_mood", err)
		return
	}

	s.metrics.RequestsTotal.WithLabelValues("has_submitted_mood", "ok").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"hasSubmitted": logged})
}

func (s *Server) handleAddJournalEntry(w http.ResponseWriter, r *http.Request) {
	externalID, err := formUserID(r)
	if err != nil {
		s.respondFault(w, "add_journal_entry", err)
		return
	}

	if err := s.companion.AddJournalEntry(r.Context(), externalID, r.FormValue("content")); err != nil {
		s.respondFault(w, "add_journal_entry", err)
		return
	}

	s.metrics.RequestsTotal.WithLabelValues("add_journal_entry", "ok").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"response": "Journal entry added successfully"})
}

type journalEntryView struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

func (s *Server) handleGetJournalEntries(w http.ResponseWriter, r *http.Request) {
	externalID, err := queryUserID(r)
	if err != nil {
		s.respondFault(w, "get_journal_entries", err)
		return
	}

	entries, err := s.companion.ListJournalEntries(r.Context(), externalID)
	if err != nil {
		s.respondFault(w, "get_journal_entries", err)
		return
	}

	views := make([]journalEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, journalEntryView{
			Date:    e.Date.Format(time.DateOnly),
			Content: e.Content,
		})
	}

	s.metrics.RequestsTotal.WithLabelValues("get_journal_entries", "ok").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"entries": views})
}

func formUserID(r *http.Request) (int64, error) {
	return parseUserID(r.FormValue("user_id"))
}

func queryUserID(r *http.Request) (int64, error) {
	return parseUserID(r.URL.Query().Get("user_id"))
}

func parseUserID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, chat.Errorf(chat.FaultValidation, "user_id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, chat.Errorf(chat.FaultValidation, "user_id must be an integer")
	}
	return id, nil
}

func (s *Server) respondFault(w http.ResponseWriter, endpoint string, err error) {
	fault := chat.FaultOf(err)
	s.metrics.RequestsTotal.WithLabelValues(endpoint, string(fault)).Inc()
	respondError(w, statusForFault(fault), chat.PublicMessage(err))
}

func statusForFault(fault chat.Fault) int {
	switch fault {
	case chat.FaultValidation, chat.FaultConflict:
		return http.StatusBadRequest
	case chat.FaultNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
