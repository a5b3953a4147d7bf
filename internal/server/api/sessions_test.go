package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/handpilot/internal/control"
	"github.com/ayusman/handpilot/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// seed creates a session holding the given number of events.
func seed(t *testing.T, s *store.Store, events int) *store.Session {
	t.Helper()

	sess, err := s.Sessions().Create("handpilot track")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	for i := 0; i < events; i++ {
		rec := control.Record{State: "GO", Angle: i * 10}
		if _, err := s.Events().Append(sess.ID, rec); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}
	return sess
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)

	t.Run("returns empty list when no sessions", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/sessions")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response listSessionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Sessions == nil || len(response.Sessions) != 0 {
			t.Errorf("expected empty sessions array, got %v", response.Sessions)
		}
	})

	t.Run("returns sessions with event counts", func(t *testing.T) {
		sess := seed(t, s, 3)
		s.Sessions().End(sess.ID)

		rec := serve(handler, http.MethodGet, "/api/sessions")

		var response listSessionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Sessions) != 1 {
			t.Fatalf("expected 1 session, got %d", len(response.Sessions))
		}

		got := response.Sessions[0]
		if got.ID != sess.ID || got.Events != 3 {
			t.Errorf("got %+v, want id %s with 3 events", got, sess.ID)
		}
		if got.EndedAt == nil {
			t.Error("expected ended_at for a finished session")
		}
	})
}

func TestSessionHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := seed(t, s, 2)

	t.Run("returns session", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/sessions/"+sess.ID)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response sessionResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Source != "handpilot track" || response.Events != 2 {
			t.Errorf("unexpected response %+v", response)
		}
		if response.EndedAt != nil {
			t.Errorf("expected null ended_at for a live session, got %v", *response.EndedAt)
		}
	})

	t.Run("returns 404 for unknown session", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/sessions/missing")

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("returns 404 for unknown subresource", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/sessions/"+sess.ID+"/frames")

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestSessionHandler_Events(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := seed(t, s, 5)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantAngles []int
	}{
		{name: "all events", query: "", wantStatus: http.StatusOK, wantAngles: []int{0, 10, 20, 30, 40}},
		{name: "latest two", query: "?limit=2", wantStatus: http.StatusOK, wantAngles: []int{30, 40}},
		{name: "bad limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "zero limit", query: "?limit=0", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(handler, http.MethodGet, "/api/sessions/"+sess.ID+"/events"+tt.query)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var response listEventsResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(response.Events) != len(tt.wantAngles) {
				t.Fatalf("expected %d events, got %d", len(tt.wantAngles), len(response.Events))
			}
			for i, ev := range response.Events {
				if ev.Angle != tt.wantAngles[i] || ev.State != "GO" {
					t.Errorf("event %d = %+v, want GO/%d", i, ev, tt.wantAngles[i])
				}
			}
		})
	}

	t.Run("unknown session", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/sessions/missing/events")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	handler := NewSessionHandler(newTestStore(t))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := serve(handler, method, "/api/sessions")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
