package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/handpilot/internal/control"
)

func TestEventRepository_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Sessions().Create("track")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	records := []control.Record{
		{State: "STOP", Angle: 90},
		{State: "GO", Angle: 90},
		{State: "GO", Angle: 40},
		{State: "STOP", Angle: 180},
	}
	for _, rec := range records {
		ev, err := s.Events().Append(sess.ID, rec)
		if err != nil {
			t.Fatalf("Append(%+v) error = %v", rec, err)
		}
		if ev.ID == 0 {
			t.Error("Append() should assign an ID")
		}
	}

	tests := []struct {
		name  string
		limit int
		want  []control.Record
	}{
		{name: "all", limit: 0, want: records},
		{name: "latest two", limit: 2, want: records[2:]},
		{name: "limit above count", limit: 10, want: records},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.Events().ListBySession(sess.ID, tt.limit)
			if err != nil {
				t.Fatalf("ListBySession() error = %v", err)
			}

			var got []control.Record
			for _, ev := range events {
				if ev.SessionID != sess.ID {
					t.Errorf("SessionID = %q, want %q", ev.SessionID, sess.ID)
				}
				got = append(got, ev.Record)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ListBySession() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	n, err := s.Events().Count(sess.ID)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != len(records) {
		t.Errorf("Count() = %d, want %d", n, len(records))
	}
}

func TestEventRepository_SessionsIsolated(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Sessions().Create("a")
	b, _ := s.Sessions().Create("b")

	s.Events().Append(a.ID, control.Record{State: "GO", Angle: 10})

	n, err := s.Events().Count(b.ID)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count(b) = %d, want 0", n)
	}
}

func TestEventRepository_Constraints(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Sessions().Create("track")

	tests := []struct {
		name      string
		sessionID string
		rec       control.Record
	}{
		{name: "unknown session", sessionID: "missing", rec: control.Record{State: "GO", Angle: 90}},
		{name: "bad state", sessionID: sess.ID, rec: control.Record{State: "REVERSE", Angle: 90}},
		{name: "angle out of range", sessionID: sess.ID, rec: control.Record{State: "GO", Angle: 190}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Events().Append(tt.sessionID, tt.rec); err == nil {
				t.Error("Append() should fail")
			}
		})
	}
}

func TestEventRepository_CascadeOnSessionDelete(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Sessions().Create("track")
	s.Events().Append(sess.ID, control.Record{State: "GO", Angle: 90})

	if _, err := s.DB().Exec("DELETE FROM sessions WHERE id = ?", sess.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	n, _ := s.Events().Count(sess.ID)
	if n != 0 {
		t.Errorf("Count() after delete = %d, want 0", n)
	}
}
