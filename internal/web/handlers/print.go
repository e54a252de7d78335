package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/cloudprint"
	"github.com/kozaktomas/photo-booth/internal/printhelper"
	"github.com/kozaktomas/photo-booth/internal/render"
)

// apiKeyHeader carries the cloud print API key. It is used for the one
// request and never stored.
const apiKeyHeader = "X-Print-Api-Key"

type printRequest struct {
	SaveEdits bool `json:"save_edits"`
}

type confirmRequest struct {
	Printed bool `json:"printed"`
}

// Print renders the filled slots and hands the sheet to the printer. The
// template then waits for Confirm.
func (h *TemplatesHandler) Print(w http.ResponseWriter, r *http.Request) {
	v := h.view(w, r)
	if v == nil {
		return
	}
	var req printRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	pending, err := v.Handoff.Begin(r.Context(), req.SaveEdits)
	if err != nil {
		respondBoothError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, pending)
}

// ConfirmPrint records whether the sheet came out of the printer.
func (h *TemplatesHandler) ConfirmPrint(w http.ResponseWriter, r *http.Request) {
	v := h.view(w, r)
	if v == nil {
		return
	}
	var req confirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := v.Handoff.Confirm(r.Context(), req.Printed); err != nil {
		respondBoothError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, v.Snapshot())
}

// Sheet returns the sheet awaiting confirmation or a preview of the current
// slots. ?max= scales it down for thumbnails.
func (h *TemplatesHandler) Sheet(w http.ResponseWriter, r *http.Request) {
	v := h.view(w, r)
	if v == nil {
		return
	}

	sheet, err := v.Sheet(r.Context())
	if err != nil {
		respondBoothError(w, h.log, err)
		return
	}

	if raw := r.URL.Query().Get("max"); raw != "" {
		maxSize, err := strconv.Atoi(raw)
		if err != nil || maxSize <= 0 {
			respondError(w, http.StatusBadRequest, "invalid max size")
			return
		}
		if sheet, err = render.Thumbnail(sheet, maxSize); err != nil {
			respondBoothError(w, h.log, err)
			return
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(sheet)
}

// StatusChecker reports the normalized status of a cloud print job.
type StatusChecker interface {
	Status(ctx context.Context, apiKey string, printerID int, jobID string) cloudprint.Result
}

// PrinterLister lists the printers of the local print helper.
type PrinterLister interface {
	Printers(ctx context.Context) ([]printhelper.Printer, error)
}

// PrintHandler handles printer endpoints that are not bound to a template.
type PrintHandler struct {
	cloud  StatusChecker
	helper PrinterLister
	log    zerolog.Logger
}

// NewPrintHandler creates a new print handler. Either collaborator may be nil.
func NewPrintHandler(cloud StatusChecker, helper PrinterLister, log zerolog.Logger) *PrintHandler {
	return &PrintHandler{
		cloud:  cloud,
		helper: helper,
		log:    log.With().Str("handler", "print").Logger(),
	}
}

// Status returns the normalized status of a cloud print job.
func (h *PrintHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.cloud == nil {
		respondError(w, http.StatusServiceUnavailable, "cloud printing is not configured")
		return
	}
	apiKey := r.Header.Get(apiKeyHeader)
	if apiKey == "" {
		respondError(w, http.StatusBadRequest, apiKeyHeader+" header is required")
		return
	}

	q := r.URL.Query()
	printerID := 0
	if raw := q.Get("printer_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			respondError(w, http.StatusBadRequest, "invalid printer_id")
			return
		}
		printerID = id
	}

	respondJSON(w, http.StatusOK, h.cloud.Status(r.Context(), apiKey, printerID, q.Get("job_id")))
}

// Printers lists the printers known to the local print helper.
func (h *PrintHandler) Printers(w http.ResponseWriter, r *http.Request) {
	if h.helper == nil {
		respondError(w, http.StatusServiceUnavailable, "print helper is not configured")
		return
	}
	printers, err := h.helper.Printers(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("Print helper request failed")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"printers": printers})
}
