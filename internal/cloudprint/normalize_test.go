package cloudprint

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/config"
)

var testMedia = config.MediaConfig{
	Photo:  []string{"photo", "glossy", "4x6"},
	Letter: []string{"letter", "a4", "8.5x11"},
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(testMedia, zerolog.Nop())
}

func onlinePrinter() *Printer {
	return &Printer{ID: "1", State: "online", Computer: Computer{State: "online"}}
}

func TestNormalize_States(t *testing.T) {
	tests := []struct {
		state string
		want  Status
	}{
		{"Printing", StatusPrinting},
		{"Completed", StatusCompleted},
		{"printed", StatusCompleted},
		{"FINISHED", StatusCompleted},
		{"done", StatusCompleted},
		{"failed", StatusFailed},
		{"Error", StatusFailed},
		{"cancelled", StatusFailed},
		{"canceled", StatusFailed},
		{"queued", StatusQueued},
		{"Waiting", StatusQueued},
		{"pending", StatusQueued},
		{"in-progress", StatusPrinting},
		{"in_progress", StatusPrinting},
		{"In Progress", StatusPrinting},
		{"processing", StatusPrinting},
		{"WeirdVendorState", StatusPrinting},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			res := n.Normalize(Observation{JobID: "9", Job: &Job{State: tt.state}, Printer: onlinePrinter()})
			if res.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, res.Status)
			}
			if res.OriginalState != tt.state {
				t.Errorf("expected original state %q, got %q", tt.state, res.OriginalState)
			}
		})
	}
}

func TestNormalize_PrintingWithOnlinePrinter(t *testing.T) {
	res := newTestNormalizer().Normalize(Observation{
		JobID:   "9",
		Job:     &Job{State: "Printing"},
		Printer: onlinePrinter(),
	})
	if res.Status != StatusPrinting {
		t.Errorf("expected printing, got %s", res.Status)
	}
	if !res.PrinterOnline {
		t.Error("expected printer online")
	}
}

func TestNormalize_UnknownStateKeepsDiagnostic(t *testing.T) {
	res := newTestNormalizer().Normalize(Observation{JobID: "9", Job: &Job{State: "WeirdVendorState"}})
	if res.Status != StatusPrinting {
		t.Errorf("expected printing, got %s", res.Status)
	}
	if !strings.Contains(res.Message, "WeirdVendorState") {
		t.Errorf("expected message to mention the vendor state, got %q", res.Message)
	}
}

func TestNormalize_NotFoundWithKnownJobID(t *testing.T) {
	notFound := fmt.Errorf("get print job 9: %w", &HTTPError{StatusCode: 404})
	res := newTestNormalizer().Normalize(Observation{JobID: "9", Job: &Job{}, JobErr: notFound})
	if res.Status != StatusPrinting {
		t.Errorf("expected printing, got %s", res.Status)
	}
	if res.OriginalState != "processing" {
		t.Errorf("expected original state processing, got %q", res.OriginalState)
	}
}

func TestNormalize_EmptyJob(t *testing.T) {
	res := newTestNormalizer().Normalize(Observation{JobID: "9", Job: &Job{}})
	if res.Status != StatusPrinting || res.OriginalState != "processing" {
		t.Errorf("expected printing/processing, got %s/%q", res.Status, res.OriginalState)
	}
}

func TestNormalize_Errors(t *testing.T) {
	n := newTestNormalizer()

	res := n.Normalize(Observation{Job: &Job{State: "Printing"}})
	if res.Status != StatusError {
		t.Errorf("expected error without job id, got %s", res.Status)
	}

	res = n.Normalize(Observation{JobID: "9", JobErr: &HTTPError{StatusCode: 500, Body: "boom"}})
	if res.Status != StatusError {
		t.Errorf("expected error on server failure, got %s", res.Status)
	}

	res = n.Normalize(Observation{JobID: "9", JobErr: errors.New("dial tcp: refused")})
	if res.Status != StatusError {
		t.Errorf("expected error on network failure, got %s", res.Status)
	}
}

func TestNormalize_QueuedOfflinePrinter(t *testing.T) {
	offline := &Printer{State: "online", Computer: Computer{State: "disconnected"}}
	res := newTestNormalizer().Normalize(Observation{JobID: "9", Job: &Job{State: "queued"}, Printer: offline})
	if res.PrinterOnline {
		t.Error("expected printer offline")
	}
	if !strings.Contains(res.Message, "offline") {
		t.Errorf("expected offline hint, got %q", res.Message)
	}
}

func TestNormalize_Capabilities(t *testing.T) {
	tests := []struct {
		name       string
		printer    *Printer
		wantPhoto  bool
		wantLetter bool
	}{
		{name: "no printer", printer: nil, wantPhoto: true, wantLetter: true},
		{name: "no capabilities", printer: &Printer{}, wantPhoto: true, wantLetter: true},
		{name: "empty medias", printer: &Printer{Capabilities: &Capabilities{}}, wantPhoto: true, wantLetter: true},
		{
			name:      "photo media",
			printer:   &Printer{Capabilities: &Capabilities{Medias: []string{"Photo Premium Glossy"}}},
			wantPhoto: true,
		},
		{
			name:       "letter media",
			printer:    &Printer{Capabilities: &Capabilities{Medias: []string{"Letter", "A4"}}},
			wantLetter: true,
		},
		{
			name:       "both",
			printer:    &Printer{Capabilities: &Capabilities{Medias: []string{"4x6", "US Letter 8.5x11"}}},
			wantPhoto:  true,
			wantLetter: true,
		},
		{
			name:    "neither",
			printer: &Printer{Capabilities: &Capabilities{Medias: []string{"Envelope #10"}}},
		},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := n.Normalize(Observation{JobID: "9", Job: &Job{State: "done"}, Printer: tt.printer})
			if res.SupportsPhoto != tt.wantPhoto {
				t.Errorf("expected supports_photo %v, got %v", tt.wantPhoto, res.SupportsPhoto)
			}
			if res.SupportsLetter != tt.wantLetter {
				t.Errorf("expected supports_letter %v, got %v", tt.wantLetter, res.SupportsLetter)
			}
		})
	}
}

func TestFoldState(t *testing.T) {
	tests := map[string]string{
		"In Progress":   "in-progress",
		" IN_PROGRESS ": "in-progress",
		"Terminé":       "termine",
		"done":          "done",
		"":              "",
	}
	for in, want := range tests {
		if got := foldState(in); got != want {
			t.Errorf("foldState(%q): expected %q, got %q", in, want, got)
		}
	}
}
