package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/database"
)

// TemplatesHandler handles template view endpoints.
type TemplatesHandler struct {
	registry *booth.Registry
	log      zerolog.Logger
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(registry *booth.Registry, log zerolog.Logger) *TemplatesHandler {
	return &TemplatesHandler{
		registry: registry,
		log:      log.With().Str("handler", "templates").Logger(),
	}
}

// view looks up the {id} template or answers 404.
func (h *TemplatesHandler) view(w http.ResponseWriter, r *http.Request) *booth.View {
	v := h.registry.Get(chi.URLParam(r, "id"))
	if v == nil {
		respondError(w, http.StatusNotFound, "template not found")
		return nil
	}
	return v
}

// Open opens a template view for an owner and starts polling.
func (h *TemplatesHandler) Open(w http.ResponseWriter, r *http.Request) {
	var owner booth.Owner
	if !decodeJSON(w, r, &owner) {
		return
	}

	v, err := h.registry.Open(r.Context(), owner)
	if err != nil {
		respondBoothError(w, h.log, err)
		return
	}
	h.log.Info().Str("view_id", v.ID).Str("owner_id", sanitizeForLog(owner.ID)).Msg("Template opened")
	respondJSON(w, http.StatusCreated, v.Snapshot())
}

// List returns every open template.
func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	views := h.registry.List()
	snapshots := make([]booth.ViewSnapshot, 0, len(views))
	for _, v := range views {
		snapshots = append(snapshots, v.Snapshot())
	}
	respondJSON(w, http.StatusOK, snapshots)
}

// Get returns one template.
func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	v := h.view(w, r)
	if v == nil {
		return
	}
	respondJSON(w, http.StatusOK, v.Snapshot())
}

// Close stops the template's poller and forgets it.
func (h *TemplatesHandler) Close(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Close(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, "template not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetOwner switches the template to another owner. An empty owner id
// clears the template and stops polling.
func (h *TemplatesHandler) SetOwner(w http.ResponseWriter, r *http.Request) {
	v := h.view(w, r)
	if v == nil {
		return
	}
	var owner booth.Owner
	if !decodeJSON(w, r, &owner) {
		return
	}
	if err := v.SwitchOwner(r.Context(), owner); err != nil {
		respondBoothError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, v.Snapshot())
}

// Events streams template changes as server-sent events.
func (h *TemplatesHandler) Events(w http.ResponseWriter, r *http.Request) {
	v := h.view(w, r)
	if v == nil {
		return
	}
	streamViewEvents(w, r, v)
}

type uploadResponse struct {
	Photo database.Photo `json:"photo"`
	Slot  int            `json:"slot"`
}

// AddPhoto uploads a photo and places it at or after the requested index.
func (h *TemplatesHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	v := h.view(w, r)
	if v == nil {
		return
	}
	data, ok := readPhotoFile(w, r)
	if !ok {
		return
	}
	index := 0
	if raw := r.FormValue("index"); raw != "" {
		var err error
		if index, err = parseSlotIndex(raw); err != nil {
			respondError(w, http.StatusBadRequest, "invalid slot index")
			return
		}
	}

	photo, slot, err := v.Upload(r.Context(), index, data)
	if err != nil {
		respondBoothError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, uploadResponse{Photo: photo, Slot: slot})
}

// Duplicate copies a slot into the first empty slot.
func (h *TemplatesHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	v := h.view(w, r)
	if v == nil {
		return
	}
	index, ok := slotIndexParam(w, r)
	if !ok {
		return
	}
	at, err := v.Manager.Duplicate(r.Context(), index)
	if err != nil {
		respondBoothError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{"slot": at})
}

// RemoveSlot empties a slot. The photo is soft deleted unless another copy
// of it stays on the template.
func (h *TemplatesHandler) RemoveSlot(w http.ResponseWriter, r *http.Request) {
	v := h.view(w, r)
	if v == nil {
		return
	}
	index, ok := slotIndexParam(w, r)
	if !ok {
		return
	}
	if err := v.RemoveSlot(r.Context(), index); err != nil {
		respondBoothError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, v.Snapshot())
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Reorder moves a slot to another position.
func (h *TemplatesHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	v := h.view(w, r)
	if v == nil {
		return
	}
	var req reorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := v.Manager.Reorder(req.From, req.To); err != nil {
		respondBoothError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, v.Snapshot())
}
