package booth

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math/big"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/kozaktomas/photo-booth/internal/constants"
	"github.com/kozaktomas/photo-booth/internal/database"
	"github.com/kozaktomas/photo-booth/internal/objectstore"
)

// Ingestion errors.
var (
	ErrEmptyPhoto       = errors.New("photo is empty")
	ErrPhotoTooLarge    = errors.New("photo exceeds the size limit")
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrInvalidOwnerKind = errors.New("owner kind must be event or market")
)

// Owner identifies the event or market a template belongs to.
type Owner struct {
	ID   string             `json:"owner_id"`
	Kind database.OwnerKind `json:"owner_kind"`
}

// Validate checks that the owner is usable for ingestion and templates.
func (o Owner) Validate() error {
	if o.ID == "" {
		return ErrNoOwner
	}
	if !o.Kind.Valid() {
		return ErrInvalidOwnerKind
	}
	return nil
}

var formatExtensions = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"webp": "webp",
}

// Ingestor stores submitted photos and inserts their rows.
type Ingestor struct {
	store   database.PhotoWriter
	objects objectstore.Store
	log     zerolog.Logger
}

// NewIngestor creates an ingestor.
func NewIngestor(store database.PhotoWriter, objects objectstore.Store, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		store:   store,
		objects: objects,
		log:     log.With().Str("component", "ingest").Logger(),
	}
}

// Submit validates data, uploads it and inserts a photo awaiting placement
// for owner. origin is recorded on the row and never re-derived.
func (i *Ingestor) Submit(ctx context.Context, owner Owner, origin database.PhotoOrigin, data []byte) (database.Photo, error) {
	if err := owner.Validate(); err != nil {
		return database.Photo{}, err
	}
	if origin != database.OriginCamera && origin != database.OriginUpload {
		return database.Photo{}, fmt.Errorf("unknown photo origin %q", origin)
	}

	format, err := DetectImage(data)
	if err != nil {
		return database.Photo{}, err
	}

	id := uuid.NewString()
	key := fmt.Sprintf("%s/%s.%s", owner.ID, id, formatExtensions[format])
	if err := i.objects.Upload(ctx, key, data, "image/"+format); err != nil {
		return database.Photo{}, fmt.Errorf("upload photo: %w", err)
	}

	code, err := NewOrderCode()
	if err != nil {
		return database.Photo{}, err
	}

	photo, err := i.store.Insert(ctx, database.Photo{
		ID:        id,
		OwnerID:   owner.ID,
		OwnerKind: owner.Kind,
		SourceURL: i.objects.PublicURL(key),
		ObjectKey: key,
		Origin:    origin,
		Status:    owner.Kind.AwaitingStatus(),
		OrderCode: code,
		Scale:     constants.DefaultZoom,
	})
	if err != nil {
		return database.Photo{}, fmt.Errorf("insert photo: %w", err)
	}

	i.log.Info().Str("photo_id", photo.ID).Str("owner_id", owner.ID).Str("origin", string(origin)).Msg("Photo submitted")
	return photo, nil
}

// DetectImage checks size limits and returns the decoded image format.
func DetectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPhoto
	}
	if len(data) > constants.MaxPhotoSize {
		return "", ErrPhotoTooLarge
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if _, ok := formatExtensions[format]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}
	return format, nil
}

const (
	orderLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	orderDigits  = "0123456789"
)

// NewOrderCode returns a random code like "KXM-482": three letters and
// three digits.
func NewOrderCode() (string, error) {
	half := constants.OrderCodeLength / 2
	buf := make([]byte, 0, constants.OrderCodeLength+1)
	for i := range constants.OrderCodeLength {
		alphabet := orderLetters
		if i >= half {
			alphabet = orderDigits
		}
		if i == half {
			buf = append(buf, '-')
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("generate order code: %w", err)
		}
		buf = append(buf, alphabet[n.Int64()])
	}
	return string(buf), nil
}
