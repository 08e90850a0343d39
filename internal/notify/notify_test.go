package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPush(t *testing.T) {
	var got Summary
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode summary: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, slog.Default())
	n.Push(context.Background(), Summary{RunDate: "2025-08-15", Seen: 12, New: 2, Sold: 1})

	if got.RunDate != "2025-08-15" || got.Seen != 12 || got.New != 2 || got.Sold != 1 {
		t.Errorf("summary received = %+v", got)
	}
}

func TestPush_NilNotifier(t *testing.T) {
	var n *Notifier
	// Must not panic.
	n.Push(context.Background(), Summary{RunDate: "2025-08-15"})
}

func TestNew_DisabledWithoutURL(t *testing.T) {
	if New("", slog.Default()) != nil {
		t.Errorf("want nil notifier when no webhook configured")
	}
}

func TestFormat(t *testing.T) {
	s := Summary{RunDate: "2025-08-15", Seen: 10, New: 1, Changed: 2, Sold: 3, Skipped: 4, Errors: 5}
	want := "2025-08-15: 10 seen, 1 new, 2 changed, 3 sold, 4 skipped, 5 errors"
	if s.Format() != want {
		t.Errorf("Format() = %q, want %q", s.Format(), want)
	}
}
