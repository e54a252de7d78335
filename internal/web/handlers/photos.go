package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/database"
)

// PhotoSubmitter stores a new photo for an owner.
type PhotoSubmitter interface {
	Submit(ctx context.Context, owner booth.Owner, origin database.PhotoOrigin, data []byte) (database.Photo, error)
}

// PhotosHandler accepts photos taken by the booth camera.
type PhotosHandler struct {
	ingestor PhotoSubmitter
	log      zerolog.Logger
}

// NewPhotosHandler creates a new photos handler.
func NewPhotosHandler(ingestor PhotoSubmitter, log zerolog.Logger) *PhotosHandler {
	return &PhotosHandler{
		ingestor: ingestor,
		log:      log.With().Str("handler", "photos").Logger(),
	}
}

// Capture stores a camera photo. Open templates of the owner pick it up on
// their next poll.
func (h *PhotosHandler) Capture(w http.ResponseWriter, r *http.Request) {
	data, ok := readPhotoFile(w, r)
	if !ok {
		return
	}
	owner := booth.Owner{
		ID:   r.FormValue("owner_id"),
		Kind: database.OwnerKind(r.FormValue("owner_kind")),
	}

	photo, err := h.ingestor.Submit(r.Context(), owner, database.OriginCamera, data)
	if err != nil {
		respondBoothError(w, h.log, err)
		return
	}
	h.log.Info().Str("photo_id", photo.ID).Str("owner_id", sanitizeForLog(owner.ID)).Msg("Camera photo stored")
	respondJSON(w, http.StatusCreated, photo)
}
