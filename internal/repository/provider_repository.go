package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/provider-directory/internal/domain"
)

// ProviderFilter captures directory search parameters. Listing always scopes
// to active records; Specialty matches exactly, Location substring-matches
// city or state.
type ProviderFilter struct {
	Specialty *string
	Location  *string
	Limit     int
	Offset    int
}

// ProviderRepository encapsulates provider persistence.
type ProviderRepository interface {
	Create(ctx context.Context, provider *domain.Provider) error
	Update(ctx context.Context, provider *domain.Provider) error
	GetByID(ctx context.Context, id int64) (*domain.Provider, error)
	GetByNPI(ctx context.Context, npi string) (*domain.Provider, error)
	ListActive(ctx context.Context, filter ProviderFilter) ([]domain.Provider, int64, error)
}

type providerRepository struct {
	pool *pgxpool.Pool
}

// NewProviderRepository instantiates repository.
func NewProviderRepository(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepository{pool: pool}
}

const providerColumns = `id, npi, first_name, last_name, specialty, credentials,
               address_line1, address_line2, city, state, zip, phone, email,
               active, created_at, updated_at`

func (r *providerRepository) Create(ctx context.Context, provider *domain.Provider) error {
	const query = `
        INSERT INTO providers (npi, first_name, last_name, specialty, credentials,
            address_line1, address_line2, city, state, zip, phone, email, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		provider.NPI,
		provider.FirstName,
		provider.LastName,
		provider.Specialty,
		provider.Credentials,
		provider.AddressLine1,
		provider.AddressLine2,
		provider.City,
		provider.State,
		provider.Zip,
		provider.Phone,
		provider.Email,
		provider.Active,
	).Scan(&provider.ID, &provider.CreatedAt, &provider.UpdatedAt)
}

func (r *providerRepository) Update(ctx context.Context, provider *domain.Provider) error {
	const query = `
        UPDATE providers SET npi=$1, first_name=$2, last_name=$3, specialty=$4, credentials=$5,
            address_line1=$6, address_line2=$7, city=$8, state=$9, zip=$10, phone=$11, email=$12,
            active=$13, updated_at=NOW()
        WHERE id=$14`
	cmd, err := r.pool.Exec(ctx, query,
		provider.NPI,
		provider.FirstName,
		provider.LastName,
		provider.Specialty,
		provider.Credentials,
		provider.AddressLine1,
		provider.AddressLine2,
		provider.City,
		provider.State,
		provider.Zip,
		provider.Phone,
		provider.Email,
		provider.Active,
		provider.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *providerRepository) GetByID(ctx context.Context, id int64) (*domain.Provider, error) {
	query := fmt.Sprintf(`SELECT %s FROM providers WHERE id=$1`, providerColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *providerRepository) GetByNPI(ctx context.Context, npi string) (*domain.Provider, error) {
	query := fmt.Sprintf(`SELECT %s FROM providers WHERE npi=$1`, providerColumns)
	return r.fetchSingle(ctx, query, npi)
}

func (r *providerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Provider, error) {
	var provider domain.Provider
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&provider.ID,
		&provider.NPI,
		&provider.FirstName,
		&provider.LastName,
		&provider.Specialty,
		&provider.Credentials,
		&provider.AddressLine1,
		&provider.AddressLine2,
		&provider.City,
		&provider.State,
		&provider.Zip,
		&provider.Phone,
		&provider.Email,
		&provider.Active,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &provider, nil
}

// ListActive returns one page of active providers plus the total count
// matching the filter.
func (r *providerRepository) ListActive(ctx context.Context, filter ProviderFilter) ([]domain.Provider, int64, error) {
	clauses := []string{"active = TRUE"}
	args := []any{}

	if filter.Specialty != nil && strings.TrimSpace(*filter.Specialty) != "" {
		args = append(args, *filter.Specialty)
		clauses = append(clauses, fmt.Sprintf("specialty = $%d", len(args)))
	}
	if filter.Location != nil && strings.TrimSpace(*filter.Location) != "" {
		args = append(args, "%"+strings.TrimSpace(*filter.Location)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(city LIKE %s OR state LIKE %s)", placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM providers WHERE %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 5
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM providers WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		providerColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	providers, err := scanProviders(rows)
	if err != nil {
		return nil, 0, err
	}
	return providers, total, nil
}

func scanProviders(rows pgx.Rows) ([]domain.Provider, error) {
	var result []domain.Provider
	for rows.Next() {
		var provider domain.Provider
		if err := rows.Scan(
			&provider.ID,
			&provider.NPI,
			&provider.FirstName,
			&provider.LastName,
			&provider.Specialty,
			&provider.Credentials,
			&provider.AddressLine1,
			&provider.AddressLine2,
			&provider.City,
			&provider.State,
			&provider.Zip,
			&provider.Phone,
			&provider.Email,
			&provider.Active,
			&provider.CreatedAt,
			&provider.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, provider)
	}
	return result, rows.Err()
}
