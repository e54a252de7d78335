package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/cache"
	"github.com/kozaktomas/photo-booth/internal/database"
	"github.com/kozaktomas/photo-booth/internal/database/mock"
	"github.com/kozaktomas/photo-booth/internal/objectstore"
)

// pngRenderer renders every sheet as a small solid PNG.
type pngRenderer struct{}

func (pngRenderer) Render(ctx context.Context, cells []booth.SheetCell) ([]byte, error) {
	return encodePNG(40, 20), nil
}

func encodePNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

type testEnv struct {
	registry *booth.Registry
	store    *mock.MockPhotoStore
	objects  *objectstore.FileStore
	handler  *TemplatesHandler
}

func newTestEnv(t *testing.T) *testEnv {
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
		Renderer:     pngRenderer{},
		PollInterval: time.Hour,
		Log:          zerolog.Nop(),
	})
	t.Cleanup(registry.CloseAll)
	return &testEnv{
		registry: registry,
		store:    store,
		objects:  objects,
		handler:  NewTemplatesHandler(registry, zerolog.Nop()),
	}
}

// openView opens a market template and stops its poller so tests control
// placement.
func (e *testEnv) openView(t *testing.T, ownerID string) *booth.View {
	t.Helper()
	v, err := e.registry.Open(context.Background(), booth.Owner{ID: ownerID, Kind: database.OwnerMarket})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	v.Poller.Stop()
	return v
}

// jsonRequest creates a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest creates a multipart request with a file part and fields.
func multipartRequest(t *testing.T, path string, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		part, err := mw.CreateFormFile("file", "photo.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(file)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if !strings.Contains(result["error"], expectedMessage) {
		t.Errorf("expected error containing '%s', got '%s'", expectedMessage, result["error"])
	}
}
