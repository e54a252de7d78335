package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/cache"
	"github.com/kozaktomas/photo-booth/internal/database"
	"github.com/kozaktomas/photo-booth/internal/database/mock"
	"github.com/kozaktomas/photo-booth/internal/objectstore"
)

type nopRenderer struct{}

func (nopRenderer) Render(ctx context.Context, cells []booth.SheetCell) ([]byte, error) {
	return []byte("png"), nil
}

func newTestServer(t *testing.T) (*Server, *mock.MockPhotoStore) {
	t.Helper()
	store := mock.NewMockPhotoStore()
	objects, err := objectstore.NewFileStore(t.TempDir(), "http://cdn.test")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	registry := booth.NewRegistry(booth.ViewDeps{
		Store:        store,
		Cache:        cache.NewMemoryStore(),
		Objects:      objects,
		Renderer:     nopRenderer{},
		PollInterval: 20 * time.Millisecond,
		Log:          zerolog.Nop(),
	})
	t.Cleanup(registry.CloseAll)

	s := NewServer(Deps{
		Registry: registry,
		Ingestor: booth.NewIngestor(store, objects, zerolog.Nop()),
		Log:      zerolog.Nop(),
	}, 0, "127.0.0.1")
	return s, store
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if recorder.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", recorder.Code)
	}
	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestServer_Console(t *testing.T) {
	s, _ := newTestServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if !strings.HasPrefix(recorder.Header().Get("Content-Type"), "text/html") {
		t.Errorf("expected html, got '%s'", recorder.Header().Get("Content-Type"))
	}

	recorder = httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/missing.js", nil))
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", recorder.Code)
	}
}

func TestServer_PrintersNotConfigured(t *testing.T) {
	s, _ := newTestServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/print/printers", nil))
	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", recorder.Code)
	}
}

func TestServer_TemplateRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	body := bytes.NewBufferString(`{"owner_id":"m1","owner_kind":"market"}`)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/templates", body))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var snap booth.ViewSnapshot
	if err := json.Unmarshal(recorder.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}

	routes := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/v1/templates/" + snap.ID, "", http.StatusOK},
		{http.MethodGet, "/api/v1/templates/unknown", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/templates/" + snap.ID + "/slots/0/duplicate", "", http.StatusBadRequest},
		{http.MethodDelete, "/api/v1/templates/" + snap.ID + "/slots/x", "", http.StatusBadRequest},
		{http.MethodPost, "/api/v1/templates/" + snap.ID + "/slots/reorder", `{"from":0,"to":9}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/templates/" + snap.ID + "/print", "", http.StatusUnprocessableEntity},
		{http.MethodPost, "/api/v1/templates/" + snap.ID + "/print/confirm", `{"printed":true}`, http.StatusConflict},
		{http.MethodPost, "/api/v1/templates/" + snap.ID + "/photos/p1/zoom-in", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/templates/" + snap.ID + "/sheet.png", "", http.StatusUnprocessableEntity},
		{http.MethodDelete, "/api/v1/templates/" + snap.ID, "", http.StatusNoContent},
		{http.MethodDelete, "/api/v1/templates/" + snap.ID, "", http.StatusNotFound},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := httptest.NewRequest(rt.method, rt.path, strings.NewReader(rt.body))
			s.Router().ServeHTTP(recorder, req)
			if recorder.Code != rt.want {
				t.Errorf("expected status %d, got %d: %s", rt.want, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestServer_TemplateEvents(t *testing.T) {
	s, store := newTestServer(t)
	server := httptest.NewServer(s.Router())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/templates", "application/json",
		strings.NewReader(`{"owner_id":"m1","owner_kind":"market"}`))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var snap booth.ViewSnapshot
	json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()

	events, err := http.Get(server.URL + "/api/v1/templates/" + snap.ID + "/events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer events.Body.Close()
	if ct := events.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event stream, got '%s'", ct)
	}

	store.AddPhoto(database.Photo{
		ID:        "cam-1",
		OwnerID:   "m1",
		OwnerKind: database.OwnerMarket,
		Origin:    database.OriginCamera,
		Status:    database.StatusInTemplate,
		CreatedAt: time.Now(),
	})

	seen := map[string]bool{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(events.Body)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			if name, ok := strings.CutPrefix(line, "event: "); ok {
				seen[name] = true
				if name == booth.EventSlots {
					return
				}
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for slots event")
	}
	if !seen["snapshot"] {
		t.Error("expected initial snapshot event")
	}
}

func TestServer_Shutdown(t *testing.T) {
	s, _ := newTestServer(t)
	v, err := s.deps.Registry.Open(context.Background(), booth.Owner{ID: "m1", Kind: database.OwnerMarket})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if v.Poller.Running() {
		t.Error("expected pollers stopped on shutdown")
	}
	if len(s.deps.Registry.List()) != 0 {
		t.Error("expected registry emptied")
	}
}
