package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"solace/internal/chat"
	"solace/internal/config"
	"solace/internal/observability"
	"solace/internal/store"
)

var metricsSeq atomic.Int64

func newTestServer(companion Companion, cfg config.Config) *Server {
	if cfg.RateLimitPerMin == 0 {
		cfg.RateLimitPerMin = 600
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 100
	}
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", metricsSeq.Add(1)))
	return New(cfg, companion, metrics)
}

type stubCompanion struct {
	processText func(ctx context.Context, externalID int64, text string) (string, error)
	saveMood    func(ctx context.Context, externalID int64, labels []string) error
	hasLogged   func(ctx context.Context, externalID int64) (bool, error)
	addEntry    func(ctx context.Context, externalID int64, content string) error
	listEntries func(ctx context.Context, externalID int64) ([]store.JournalEntry, error)
}

func (s *stubCompanion) ProcessText(ctx context.Context, externalID int64, text string) (string, error) {
	return s.processText(ctx, externalID, text)
}

func (s *stubCompanion) SaveMood(ctx context.Context, externalID int64, labels []string) error {
	return s.saveMood(ctx, externalID, labels)
}

func (s *stubCompanion) HasLoggedMood(ctx context.Context, externalID int64) (bool, error) {
	return s.hasLogged(ctx, externalID)
}

func (s *stubCompanion) AddJournalEntry(ctx context.Context, externalID int64, content string) error {
	return s.addEntry(ctx, externalID, content)
}

func (s *stubCompanion) ListJournalEntries(ctx context.Context, externalID int64) ([]store.JournalEntry, error) {
	return s.listEntries(ctx, externalID)
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestProcessTextEndpoint(t *testing.T) {
	var gotID int64
	var gotText string
	srv := newTestServer(&stubCompanion{
		processText: func(_ context.Context, externalID int64, text string) (string, error) {
			gotID, gotText = externalID, text
			return "That sounds hard. What happened next?", nil
		},
	}, config.Config{})

	rec := postForm(t, srv.Router(), "/process_text", url.Values{
		"user_id": {"42"},
		"text":    {"Rough day"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotID != 42 || gotText != "Rough day" {
		t.Fatalf("companion got (%d, %q), want (42, %q)", gotID, gotText, "Rough day")
	}
	body := decodeBody(t, rec)
	if body["response"] != "That sounds hard. What happened next?" {
		t.Fatalf("response = %v, want companion reply", body["response"])
	}
}

func TestProcessTextRequiresUserID(t *testing.T) {
	srv := newTestServer(&stubCompanion{
		processText: func(_ context.Context, _ int64, _ string) (string, error) {
			t.Fatal("companion should not be called")
			return "", nil
		},
	}, config.Config{})

	for _, values := range []url.Values{
		{"text": {"Hello"}},
		{"user_id": {"not-a-number"}, "text": {"Hello"}},
	} {
		rec := postForm(t, srv.Router(), "/process_text", values)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d for %v", rec.Code, http.StatusBadRequest, values)
		}
		if body := decodeBody(t, rec); body["error"] == "" {
			t.Fatalf("missing error message in %s", rec.Body.String())
		}
	}
}

func TestProcessTextFaultMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"upstream", chat.WrapFault(chat.FaultUpstream, fmt.Errorf("boom")), http.StatusInternalServerError, "Assistant service error"},
		{"store", chat.WrapFault(chat.FaultStore, fmt.Errorf("boom")), http.StatusInternalServerError, "Database error"},
		{"validation", chat.Errorf(chat.FaultValidation, "text is required"), http.StatusBadRequest, "text is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&stubCompanion{
				processText: func(_ context.Context, _ int64, _ string) (string, error) {
					return "", tc.err
				},
			}, config.Config{})

			rec := postForm(t, srv.Router(), "/process_text", url.Values{
				"user_id": {"1"}, "text": {"Hello"},
			})
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			body := decodeBody(t, rec)
			if body["error"] != tc.wantError {
				t.Fatalf("error = %v, want %q", body["error"], tc.wantError)
			}
			if strings.Contains(rec.Body.String(), "boom") {
				t.Fatalf("internal detail leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestSaveMoodEndpoint(t *testing.T) {
	var gotLabels []string
	calls := 0
	srv := newTestServer(&stubCompanion{
		saveMood: func(_ context.Context, _ int64, labels []string) error {
			calls++
			gotLabels = labels
			if calls > 1 {
				return &chat.Error{Fault: chat.FaultConflict, Public: "Mood already logged today"}
			}
			return nil
		},
	}, config.Config{})
	router := srv.Router()

	rec := postForm(t, router, "/save_mood", url.Values{
		"user_id": {"7"}, "mood": {"anxious,tired"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if len(gotLabels) != 2 || gotLabels[0] != "anxious" || gotLabels[1] != "tired" {
		t.Fatalf("labels = %v, want comma-split moods", gotLabels)
	}
	if body := decodeBody(t, rec); body["response"] != "Mood saved successfully" {
		t.Fatalf("response = %v, want save confirmation", body["response"])
	}

	rec = postForm(t, router, "/save_mood", url.Values{
		"user_id": {"7"}, "mood": {"fine"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate save status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if body := decodeBody(t, rec); body["error"] != "Mood already logged today" {
		t.Fatalf("error = %v, want conflict message", body["error"])
	}
}

func TestSaveMoodUnknownUser(t *testing.T) {
	srv := newTestServer(&stubCompanion{
		saveMood: func(_ context.Context, _ int64, _ []string) error {
			return chat.WrapFault(chat.FaultNotFound, store.ErrUserNotFound)
		},
	}, config.Config{})

	rec := postForm(t, srv.Router(), "/save_mood", url.Values{
		"user_id": {"999"}, "mood": {"sad"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if body := decodeBody(t, rec); body["error"] != "User not found" {
		t.Fatalf("error = %v, want %q", body["error"], "User not found")
	}
}

func TestHasSubmittedMoodEndpoint(t *testing.T) {
	srv := newTestServer(&stubCompanion{
		hasLogged: func(_ context.Context, externalID int64) (bool, error) {
			return externalID == 7, nil
		},
	}, config.Config{})
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/has_submitted_mood?user_id=7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeBody(t, rec); body["hasSubmitted"] != true {
		t.Fatalf("hasSubmitted = %v, want true", body["hasSubmitted"])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/has_submitted_mood?user_id=8", nil))
	if body := decodeBody(t, rec); body["hasSubmitted"] != false {
		t.Fatalf("hasSubmitted = %v, want false", body["hasSubmitted"])
	}
}

func TestJournalEndpoints(t *testing.T) {
	entryDate := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	srv := newTestServer(&stubCompanion{
		addEntry: func(_ context.Context, _ int64, content string) error {
			if content != "Walked by the river." {
				t.Errorf("content = %q, want journal text", content)
			}
			return nil
		},
		listEntries: func(_ context.Context, _ int64) ([]store.JournalEntry, error) {
			return []store.JournalEntry{{Content: "Walked by the river.", Date: entryDate}}, nil
		},
	}, config.Config{})
	router := srv.Router()

	rec := postForm(t, router, "/add_journal_entry", url.Values{
		"user_id": {"7"}, "content": {"Walked by the river."},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["response"] != "Journal entry added successfully" {
		t.Fatalf("response = %v, want add confirmation", body["response"])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get_journal_entries?user_id=7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Entries []journalEntryView `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(body.Entries))
	}
	if body.Entries[0].Date != "2026-03-14" {
		t.Fatalf("date = %q, want %q", body.Entries[0].Date, "2026-03-14")
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(&stubCompanion{}, config.Config{})
	router := srv.Router()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(&stubCompanion{}, config.Config{})
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing generated X-Request-ID")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("X-Request-ID = %q, want caller id preserved", got)
	}
}

func TestProcessTextRateLimited(t *testing.T) {
	srv := newTestServer(&stubCompanion{
		processText: func(_ context.Context, _ int64, _ string) (string, error) {
			return "ok", nil
		},
	}, config.Config{RateLimitPerMin: 1, RateLimitBurst: 1})
	router := srv.Router()

	form := url.Values{"user_id": {"5"}, "text": {"Hello"}}
	if rec := postForm(t, router, "/process_text", form); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec := postForm(t, router, "/process_text", form)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}

	// Other users keep their own bucket.
	other := url.Values{"user_id": {"6"}, "text": {"Hello"}}
	if rec := postForm(t, router, "/process_text", other); rec.Code != http.StatusOK {
		t.Fatalf("other user status = %d, want %d", rec.Code, http.StatusOK)
	}
}
