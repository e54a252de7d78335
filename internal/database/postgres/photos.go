package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kozaktomas/photo-booth/internal/database"
	"github.com/lib/pq"
)

const photoColumns = `id, owner_id, owner_kind, source_url, object_key, origin, status, order_code, scale, created_at, printed_at`

// PhotoRepository provides PostgreSQL-backed photo storage
type PhotoRepository struct {
	pool *Pool
}

// NewPhotoRepository creates a new PostgreSQL photo repository
func NewPhotoRepository(pool *Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (database.Photo, error) {
	var (
		p         database.Photo
		printedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.OwnerKind,
		&p.SourceURL,
		&p.ObjectKey,
		&p.Origin,
		&p.Status,
		&p.OrderCode,
		&p.Scale,
		&p.CreatedAt,
		&printedAt,
	)
	if err != nil {
		return database.Photo{}, err //nolint:wrapcheck // callers wrap with operation context
	}
	if printedAt.Valid {
		t := printedAt.Time
		p.PrintedAt = &t
	}
	return p, nil
}

// whereClause renders the filter as a WHERE clause. Placeholders continue
// numbering after the args already present.
func whereClause(f database.PhotoFilter, args []any) (string, []any) {
	var conds []string
	add := func(format string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if len(f.IDs) > 0 {
		add("id = ANY($%d::uuid[])", pq.Array(f.IDs))
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}
	if len(f.Statuses) > 0 {
		add("status = ANY($%d)", pq.Array(statusStrings(f.Statuses)))
	}
	if len(f.ExcludeStatuses) > 0 {
		add("status <> ALL($%d)", pq.Array(statusStrings(f.ExcludeStatuses)))
	}
	if f.UnprintedOnly {
		conds = append(conds, "printed_at IS NULL")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// setClause renders the patch as a SET list. printed_at is written only once.
func setClause(p database.PhotoPatch) (string, []any) {
	var (
		sets []string
		args []any
	)
	if p.Status != nil {
		args = append(args, string(*p.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if p.PrintedAt != nil {
		args = append(args, *p.PrintedAt)
		sets = append(sets, fmt.Sprintf("printed_at = COALESCE(printed_at, $%d)", len(args)))
	}
	if p.Scale != nil {
		args = append(args, *p.Scale)
		sets = append(sets, fmt.Sprintf("scale = $%d", len(args)))
	}
	return strings.Join(sets, ", "), args
}

func statusStrings(statuses []database.PhotoStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func orderClause(o database.Order) string {
	if o == database.OrderCreatedDesc {
		return " ORDER BY created_at DESC, id DESC"
	}
	return " ORDER BY created_at ASC, id ASC"
}

// Get retrieves a photo by ID
func (r *PhotoRepository) Get(ctx context.Context, id string) (*database.Photo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, database.ErrPhotoNotFound
	}
	row := r.pool.QueryRow(ctx, "SELECT "+photoColumns+" FROM photos WHERE id = $1", id)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return &p, nil
}

// Query returns photos matching the filter
func (r *PhotoRepository) Query(ctx context.Context, filter database.PhotoFilter, order database.Order) ([]database.Photo, error) {
	where, args := whereClause(filter, nil)
	rows, err := r.pool.Query(ctx, "SELECT "+photoColumns+" FROM photos"+where+orderClause(order), args...)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	var photos []database.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return photos, nil
}

// Insert stores a new photo. An empty ID is replaced by a random UUID.
func (r *PhotoRepository) Insert(ctx context.Context, photo database.Photo) (database.Photo, error) {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.Scale == 0 {
		photo.Scale = 1
	}
	if photo.Origin == "" {
		photo.Origin = database.OriginCamera
	}

	query := `
		INSERT INTO photos (id, owner_id, owner_kind, source_url, object_key, origin, status, order_code, scale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + photoColumns

	row := r.pool.QueryRow(ctx, query,
		photo.ID,
		photo.OwnerID,
		string(photo.OwnerKind),
		photo.SourceURL,
		photo.ObjectKey,
		string(photo.Origin),
		string(photo.Status),
		photo.OrderCode,
		photo.Scale,
	)
	stored, err := scanPhoto(row)
	if err != nil {
		return database.Photo{}, fmt.Errorf("insert photo: %w", err)
	}
	return stored, nil
}

// UpdateByFilter applies the patch to every matching photo. An empty filter
// is rejected so a bug can never rewrite the whole table.
func (r *PhotoRepository) UpdateByFilter(ctx context.Context, filter database.PhotoFilter, patch database.PhotoPatch) (int64, error) {
	if patch.IsEmpty() {
		return 0, nil
	}
	set, args := setClause(patch)
	where, args := whereClause(filter, args)
	if where == "" {
		return 0, errors.New("update photos: refusing to update without a filter")
	}

	result, err := r.pool.Exec(ctx, "UPDATE photos SET "+set+where, args...)
	if err != nil {
		return 0, fmt.Errorf("update photos: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return count, nil
}

// UpdateByIDs applies the patch to the listed photos in one statement
func (r *PhotoRepository) UpdateByIDs(ctx context.Context, ids []string, patch database.PhotoPatch) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.UpdateByFilter(ctx, database.PhotoFilter{IDs: ids}, patch)
}

// Delete removes a photo row
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM photos WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

var _ database.PhotoWriter = (*PhotoRepository)(nil)
