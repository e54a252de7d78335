package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/constants"
	"github.com/kozaktomas/photo-booth/internal/database"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps booth and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, booth.ErrNoEmptySlot),
		errors.Is(err, booth.ErrPrintInProgress),
		errors.Is(err, booth.ErrOwnerChanged),
		errors.Is(err, booth.ErrNoPendingPrint),
		errors.Is(err, booth.ErrPhotoConsumed):
		return http.StatusConflict
	case errors.Is(err, booth.ErrNothingToPrint):
		return http.StatusUnprocessableEntity
	case errors.Is(err, database.ErrPhotoNotFound):
		return http.StatusNotFound
	case booth.IsPersistenceError(err):
		return http.StatusBadGateway
	case errors.Is(err, booth.ErrSlotOutOfRange),
		errors.Is(err, booth.ErrSlotEmpty),
		errors.Is(err, booth.ErrNoOwner),
		errors.Is(err, booth.ErrInvalidOwnerKind),
		errors.Is(err, booth.ErrEmptyPhoto),
		errors.Is(err, booth.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, booth.ErrPhotoTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// respondBoothError logs unexpected failures and sends the mapped status.
func respondBoothError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	respondError(w, status, err.Error())
}

// decodeJSON decodes the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

var errInvalidSlot = errors.New("invalid slot index")

func parseSlotIndex(raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 || index >= constants.SlotCount {
		return 0, errInvalidSlot
	}
	return index, nil
}

// slotIndexParam parses the {index} URL parameter.
func slotIndexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := parseSlotIndex(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return index, true
}

// readPhotoFile reads the "file" part of a multipart photo upload.
func readPhotoFile(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(constants.MaxPhotoSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return nil, false
	}
	defer file.Close()

	data, err := readLimited(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return nil, false
	}
	return data, true
}

func readLimited(f multipart.File) ([]byte, error) {
	return io.ReadAll(io.LimitReader(f, constants.MaxPhotoSize+1))
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
