package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-booth/internal/booth"
)

// placedPhoto resolves the template and {photoId}, which must be on the grid.
func (h *TemplatesHandler) placedPhoto(w http.ResponseWriter, r *http.Request) (*booth.View, string, bool) {
	v := h.view(w, r)
	if v == nil {
		return nil, "", false
	}
	photoID := chi.URLParam(r, "photoId")
	if !v.Manager.Occupies(photoID) {
		respondError(w, http.StatusNotFound, "photo is not on the template")
		return nil, "", false
	}
	return v, photoID, true
}

// SetTransform replaces the pan and zoom of a placed photo.
func (h *TemplatesHandler) SetTransform(w http.ResponseWriter, r *http.Request) {
	v, photoID, ok := h.placedPhoto(w, r)
	if !ok {
		return
	}
	var tr booth.Transform
	if !decodeJSON(w, r, &tr) {
		return
	}
	respondJSON(w, http.StatusOK, v.Edits.OnTransformChange(photoID, tr))
}

// ZoomIn increases the zoom by one step.
func (h *TemplatesHandler) ZoomIn(w http.ResponseWriter, r *http.Request) {
	v, photoID, ok := h.placedPhoto(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, v.Edits.ZoomIn(photoID))
}

// ZoomOut decreases the zoom by one step.
func (h *TemplatesHandler) ZoomOut(w http.ResponseWriter, r *http.Request) {
	v, photoID, ok := h.placedPhoto(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, v.Edits.ZoomOut(photoID))
}

// ResetTransform restores the default pan and zoom.
func (h *TemplatesHandler) ResetTransform(w http.ResponseWriter, r *http.Request) {
	v, photoID, ok := h.placedPhoto(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, v.Edits.Reset(photoID))
}

// SaveTransform persists the zoom of a placed photo.
func (h *TemplatesHandler) SaveTransform(w http.ResponseWriter, r *http.Request) {
	v, photoID, ok := h.placedPhoto(w, r)
	if !ok {
		return
	}
	if err := v.Edits.Save(r.Context(), photoID); err != nil {
		respondBoothError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, v.Edits.State(photoID))
}
