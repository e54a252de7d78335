package cloudprint

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/booth"
)

const testAPIKey = "key-123"

func loadTestData(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to load test data %s: %v", filename, err)
	}
	return data
}

// requireKey rejects requests that do not carry the test API key.
func requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testAPIKey || pass != "" {
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func setupMockServer(t *testing.T) (*httptest.Server, *submitRequest) {
	t.Helper()

	printerData := loadTestData(t, "printer_71234.json")
	jobData := loadTestData(t, "printjob_9001.json")
	var submitted submitRequest

	mux := http.NewServeMux()
	mux.HandleFunc("GET /printers/71234", requireKey(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(printerData)
	}))
	mux.HandleFunc("GET /printjobs/9001", requireKey(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(jobData)
	}))
	mux.HandleFunc("GET /printjobs/9002", requireKey(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	mux.HandleFunc("POST /printjobs", requireKey(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`9003`))
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &submitted
}

func newTestClient(server *httptest.Server) *Client {
	return New(server.URL+"/", newTestNormalizer(), zerolog.Nop())
}

func TestClient_Printer(t *testing.T) {
	server, _ := setupMockServer(t)
	client := newTestClient(server)

	printer, err := client.Printer(context.Background(), testAPIKey, 71234)
	if err != nil {
		t.Fatalf("Printer: %v", err)
	}
	if printer.ID != "71234" || printer.Name != "DNP DS620" {
		t.Errorf("unexpected printer %+v", printer)
	}
	if !printer.Online() {
		t.Error("expected printer online")
	}
	if printer.Capabilities == nil || len(printer.Capabilities.Medias) != 3 {
		t.Errorf("expected 3 medias, got %+v", printer.Capabilities)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	server, _ := setupMockServer(t)
	client := newTestClient(server)

	_, err := client.Printer(context.Background(), "wrong", 71234)
	if err == nil {
		t.Fatal("expected error for bad key")
	}
	if IsNotFoundError(err) {
		t.Error("401 must not be reported as not found")
	}
}

func TestClient_JobNotFound(t *testing.T) {
	server, _ := setupMockServer(t)
	client := newTestClient(server)

	_, err := client.Job(context.Background(), testAPIKey, "4040")
	if !IsNotFoundError(err) {
		t.Errorf("expected not found error, got %v", err)
	}

	_, err = client.Job(context.Background(), testAPIKey, "9002")
	if !IsNotFoundError(err) {
		t.Errorf("expected empty list treated as not found, got %v", err)
	}
}

func TestClient_Status(t *testing.T) {
	server, _ := setupMockServer(t)
	client := newTestClient(server)

	res := client.Status(context.Background(), testAPIKey, 71234, "9001")
	if res.Status != StatusPrinting {
		t.Errorf("expected printing, got %s", res.Status)
	}
	if res.OriginalState != "in_progress" {
		t.Errorf("expected original state in_progress, got %q", res.OriginalState)
	}
	if !res.PrinterOnline || !res.SupportsPhoto || res.SupportsLetter {
		t.Errorf("unexpected printer flags %+v", res)
	}
}

func TestClient_StatusJobNotVisibleYet(t *testing.T) {
	server, _ := setupMockServer(t)
	client := newTestClient(server)

	res := client.Status(context.Background(), testAPIKey, 71234, "4040")
	if res.Status != StatusPrinting || res.OriginalState != "processing" {
		t.Errorf("expected printing/processing, got %s/%q", res.Status, res.OriginalState)
	}
}

func TestClient_Submit(t *testing.T) {
	server, submitted := setupMockServer(t)
	client := newTestClient(server)

	printer := NewPrinter(client, testAPIKey, 71234)
	var jobID string
	printer.OnSubmitted = func(id string) { jobID = id }

	err := printer.Print(context.Background(), booth.PrintJob{Title: "sheet", Data: []byte("png")})
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if jobID != "9003" {
		t.Errorf("expected job id 9003, got %q", jobID)
	}
	if submitted.PrinterID != 71234 || submitted.Title != "sheet" || submitted.ContentType != contentTypePNG {
		t.Errorf("unexpected request %+v", submitted)
	}
	data, _ := base64.StdEncoding.DecodeString(submitted.Content)
	if string(data) != "png" {
		t.Errorf("expected base64 content, got %q", submitted.Content)
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	var ids []ID
	if err := json.Unmarshal([]byte(`[12, "abc"]`), &ids); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ids[0] != "12" || ids[1] != "abc" {
		t.Errorf("unexpected ids %v", ids)
	}
}
