package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telecompm_backend/internal/sites/domain"
	"telecompm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const siteNotFoundMessage = "site not found"

const siteColumns = `id, code, name, region, office_id, latitude, longitude,
	has_rectifier, has_batteries, has_generator, has_solar,
	has_microwave, has_fiber, sharing, tenant_count, complexity,
	is_active, last_visited_at, created_at, updated_at`

// Repo implements the sites repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new sites repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts the site.
func (r *Repo) Create(ctx context.Context, s *domain.Site) error {
	query := `
		INSERT INTO sites (
			id, code, name, region, office_id, latitude, longitude,
			has_rectifier, has_batteries, has_generator, has_solar,
			has_microwave, has_fiber, sharing, tenant_count, complexity,
			is_active, last_visited_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	if _, err := r.pool.Exec(ctx, query,
		s.ID, s.Code, s.Name, s.Region, s.OfficeID, s.Latitude, s.Longitude,
		s.Power.HasRectifier, s.Power.HasBatteries, s.Power.HasGenerator, s.Power.HasSolar,
		s.Transmission.HasMicrowave, s.Transmission.HasFiber, s.Sharing, s.TenantCount, s.Complexity,
		s.IsActive, s.LastVisitedAt, s.CreatedAt, s.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(fmt.Sprintf("site code %s already exists", s.Code))
		}
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

// GetByID retrieves a site.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Site, error) {
	query := fmt.Sprintf(`SELECT %s FROM sites WHERE id = $1`, siteColumns)
	s, err := scanSite(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(siteNotFoundMessage)
		}
		return nil, fmt.Errorf("get site by id: %w", err)
	}
	return s, nil
}

// GetByCode retrieves a site by its uppercase-normalized code.
func (r *Repo) GetByCode(ctx context.Context, code string) (*domain.Site, error) {
	query := fmt.Sprintf(`SELECT %s FROM sites WHERE code = $1`, siteColumns)
	s, err := scanSite(r.pool.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(code))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(siteNotFoundMessage)
		}
		return nil, fmt.Errorf("get site by code: %w", err)
	}
	return s, nil
}

// List lists sites with filters and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Site, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Region != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("region = $%d", argIdx))
		args = append(args, params.Region)
		argIdx++
	}
	if params.OfficeID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("office_id = $%d", argIdx))
		args = append(args, *params.OfficeID)
		argIdx++
	}
	if params.Complexity != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("complexity = $%d", argIdx))
		args = append(args, params.Complexity)
		argIdx++
	}
	if params.ActiveOnly {
		whereClauses = append(whereClauses, "is_active = TRUE")
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sites WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sites: %w", err)
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM sites
		WHERE %s
		ORDER BY code
		LIMIT $%d OFFSET $%d
	`, siteColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Site, 0)
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan site: %w", err)
		}
		items = append(items, *s)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate sites: %w", rows.Err())
	}

	return items, total, nil
}

// Save persists the site's mutable fields.
func (r *Repo) Save(ctx context.Context, s *domain.Site) error {
	query := `
		UPDATE sites
		SET name = $2,
			region = $3,
			latitude = $4,
			longitude = $5,
			has_rectifier = $6,
			has_batteries = $7,
			has_generator = $8,
			has_solar = $9,
			has_microwave = $10,
			has_fiber = $11,
			sharing = $12,
			tenant_count = $13,
			complexity = $14,
			is_active = $15,
			last_visited_at = $16,
			updated_at = $17
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		s.ID, s.Name, s.Region, s.Latitude, s.Longitude,
		s.Power.HasRectifier, s.Power.HasBatteries, s.Power.HasGenerator, s.Power.HasSolar,
		s.Transmission.HasMicrowave, s.Transmission.HasFiber, s.Sharing, s.TenantCount, s.Complexity,
		s.IsActive, s.LastVisitedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save site: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(siteNotFoundMessage)
	}
	return nil
}

func scanSite(row pgx.Row) (*domain.Site, error) {
	var s domain.Site
	if err := row.Scan(
		&s.ID, &s.Code, &s.Name, &s.Region, &s.OfficeID, &s.Latitude, &s.Longitude,
		&s.Power.HasRectifier, &s.Power.HasBatteries, &s.Power.HasGenerator, &s.Power.HasSolar,
		&s.Transmission.HasMicrowave, &s.Transmission.HasFiber, &s.Sharing, &s.TenantCount, &s.Complexity,
		&s.IsActive, &s.LastVisitedAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
