package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reflow-dev/reflow/pkg/dom"
	"github.com/reflow-dev/reflow/pkg/render"
	"github.com/reflow-dev/reflow/pkg/state"
	"github.com/reflow-dev/reflow/pkg/view"
)

func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	reg := view.NewRegistry()
	reg.Register("Root", func(_ view.Props, ctx *view.Context) any {
		return map[string]any{"div": map[string]any{
			"id":   "app",
			"text": func() any { return ctx.Store.Get("label", "start") },
		}}
	})
	opts = append([]ServerOption{
		WithRootView(map[string]any{"Root": map[string]any{}}),
	}, opts...)
	s := New(&Config{SessionTTL: time.Minute}, reg, opts...)
	t.Cleanup(s.sessions.Stop)
	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestPageHandler(t *testing.T) {
	s := newTestServer(t)
	s.HandlePage("/", func(_ *http.Request, store *state.Store) render.Page {
		store.Set("label", "served")
		return render.Page{
			Title: "Home",
			Body:  map[string]any{"Root": map[string]any{}},
		}
	})

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Home</title>",
		">served</div>",
		`id="reflow-state"`,
		`"label":"served"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
}

func TestSessionManagerLifecycle(t *testing.T) {
	m := NewSessionManager(time.Minute, slog.Default())
	defer m.Stop()

	sess := &Session{
		ID:         "s1",
		logger:     slog.Default(),
		lastActive: time.Now(),
		done:       make(chan struct{}),
	}
	m.Add(sess)

	if m.Count() != 1 {
		t.Fatalf("count = %d, want 1", m.Count())
	}
	if got, ok := m.Get("s1"); !ok || got != sess {
		t.Error("Get should return the added session")
	}

	m.Remove("s1")
	if m.Count() != 0 {
		t.Errorf("count after remove = %d, want 0", m.Count())
	}
}

func TestSessionManagerSweep(t *testing.T) {
	m := NewSessionManager(50*time.Millisecond, slog.Default())
	defer m.Stop()

	idle := &Session{
		ID:         "idle",
		logger:     slog.Default(),
		lastActive: time.Now().Add(-time.Minute),
		done:       make(chan struct{}),
	}
	fresh := &Session{
		ID:         "fresh",
		logger:     slog.Default(),
		lastActive: time.Now(),
		done:       make(chan struct{}),
	}
	m.Add(idle)
	m.Add(fresh)

	m.sweep(time.Now())

	if _, ok := m.Get("idle"); ok {
		t.Error("idle session should have been swept")
	}
	if _, ok := m.Get("fresh"); !ok {
		t.Error("fresh session should survive the sweep")
	}

	select {
	case <-idle.done:
	default:
		t.Error("swept session should be closed")
	}
}

func readPatchFrame(t *testing.T, conn *websocket.Conn) *Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		f, err := DecodeFrame(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if f.Type == FramePatch {
			return f
		}
	}
}

func TestLiveSession(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The initial render arrives as the first patch batch.
	first := readPatchFrame(t, conn)
	foundInitial := false
	for _, p := range first.Patches {
		if p.Op == dom.PatchSetText && p.Value == "start" {
			foundInitial = true
		}
	}
	if !foundInitial {
		t.Errorf("initial frame missing rendered text, got %+v", first.Patches)
	}

	// A state write re-renders the bound region and streams the change.
	set, _ := EncodeFrame(&Frame{Type: FrameSet, Path: "label", Value: "updated"})
	if err := conn.WriteMessage(websocket.TextMessage, set); err != nil {
		t.Fatalf("write: %v", err)
	}

	update := readPatchFrame(t, conn)
	foundUpdate := false
	for _, p := range update.Patches {
		if p.Op == dom.PatchSetText && p.Value == "updated" {
			foundUpdate = true
		}
	}
	if !foundUpdate {
		t.Errorf("update frame missing new text, got %+v", update.Patches)
	}
}

func TestLiveSessionAsyncResolutionPushed(t *testing.T) {
	reg := view.NewRegistry()
	reg.Register("Slow", func(view.Props, *view.Context) any {
		return view.Go(func() (any, error) {
			time.Sleep(50 * time.Millisecond)
			return map[string]any{"span": map[string]any{"text": "loaded"}}, nil
		})
	})
	s := New(&Config{SessionTTL: time.Minute}, reg,
		WithRootView(map[string]any{"Slow": map[string]any{}}))
	t.Cleanup(s.sessions.Stop)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The resolution frame must arrive on its own: the client sends
	// nothing after connecting.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("async resolution patches never pushed")
		}
		f := readPatchFrame(t, conn)
		for _, p := range f.Patches {
			if p.Op == dom.PatchSetText && p.Value == "loaded" {
				return
			}
		}
	}
}

func TestLiveSessionPing(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readPatchFrame(t, conn) // drain initial render

	ping, _ := EncodeFrame(&Frame{Type: FramePing})
	if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	f, err := DecodeFrame(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Type != FramePong {
		t.Errorf("type = %q, want %q", f.Type, FramePong)
	}
}
