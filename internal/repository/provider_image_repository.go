package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/provider-directory/internal/domain"
)

// ProviderImageRepository persists profile image metadata. One image per
// provider; Upsert replaces any existing row.
type ProviderImageRepository interface {
	Upsert(ctx context.Context, image *domain.ProviderImage) error
	GetByProviderID(ctx context.Context, providerID int64) (*domain.ProviderImage, error)
	ProviderIDsWithImages(ctx context.Context, providerIDs []int64) (map[int64]bool, error)
	DeleteByProviderID(ctx context.Context, providerID int64) error
}

type providerImageRepository struct {
	pool *pgxpool.Pool
}

// NewProviderImageRepository constructs repository.
func NewProviderImageRepository(pool *pgxpool.Pool) ProviderImageRepository {
	return &providerImageRepository{pool: pool}
}

func (r *providerImageRepository) Upsert(ctx context.Context, image *domain.ProviderImage) error {
	const query = `
        INSERT INTO provider_images (provider_id, storage_key, file_name, content_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (provider_id) DO UPDATE SET
            storage_key=EXCLUDED.storage_key,
            file_name=EXCLUDED.file_name,
            content_type=EXCLUDED.content_type,
            size_bytes=EXCLUDED.size_bytes,
            updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		image.ProviderID,
		image.StorageKey,
		image.FileName,
		image.ContentType,
		image.SizeBytes,
	).Scan(&image.ID, &image.CreatedAt, &image.UpdatedAt)
}

func (r *providerImageRepository) GetByProviderID(ctx context.Context, providerID int64) (*domain.ProviderImage, error) {
	const query = `
        SELECT id, provider_id, storage_key, file_name, content_type, size_bytes, created_at, updated_at
        FROM provider_images WHERE provider_id=$1`

	var image domain.ProviderImage
	if err := r.pool.QueryRow(ctx, query, providerID).Scan(
		&image.ID,
		&image.ProviderID,
		&image.StorageKey,
		&image.FileName,
		&image.ContentType,
		&image.SizeBytes,
		&image.CreatedAt,
		&image.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *providerImageRepository) ProviderIDsWithImages(ctx context.Context, providerIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(providerIDs))
	if len(providerIDs) == 0 {
		return result, nil
	}

	const query = `SELECT provider_id FROM provider_images WHERE provider_id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, providerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, rows.Err()
}

func (r *providerImageRepository) DeleteByProviderID(ctx context.Context, providerID int64) error {
	const query = `DELETE FROM provider_images WHERE provider_id=$1`
	cmd, err := r.pool.Exec(ctx, query, providerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
