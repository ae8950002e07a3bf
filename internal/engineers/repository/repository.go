package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telecompm_backend/internal/engineers/domain"
	"telecompm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const engineerNotFoundMessage = "engineer not found"

const engineerColumns = `id, name, email, phone, password_hash, role, office_id,
	max_assignable_sites, specializations, performance_rating, is_active,
	created_at, updated_at`

// Repo implements the engineers repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new engineers repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts the engineer account.
func (r *Repo) Create(ctx context.Context, e *domain.Engineer) error {
	query := `
		INSERT INTO users (
			id, name, email, phone, password_hash, role, office_id,
			max_assignable_sites, specializations, performance_rating, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	if _, err := r.pool.Exec(ctx, query,
		e.ID, e.Name, e.Email, e.Phone, e.PasswordHash, e.Role, e.OfficeID,
		e.MaxAssignableSites, e.Specializations, e.PerformanceRating, e.IsActive,
		e.CreatedAt, e.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(fmt.Sprintf("email %s is already registered", e.Email))
		}
		return fmt.Errorf("create engineer: %w", err)
	}
	return nil
}

// GetByID retrieves an engineer with assignments loaded.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Engineer, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, engineerColumns)
	e, err := scanEngineer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(engineerNotFoundMessage)
		}
		return nil, fmt.Errorf("get engineer by id: %w", err)
	}
	if err := r.loadAssignments(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetByEmail retrieves an engineer by email, used for login.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*domain.Engineer, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, engineerColumns)
	e, err := scanEngineer(r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(engineerNotFoundMessage)
		}
		return nil, fmt.Errorf("get engineer by email: %w", err)
	}
	if err := r.loadAssignments(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// List lists engineer accounts with filters and pagination. Assignments are
// not loaded here; use GetByID or ListCandidates for full aggregates.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Engineer, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Role != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}
	if params.OfficeID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("office_id = $%d", argIdx))
		args = append(args, *params.OfficeID)
		argIdx++
	}
	if params.ActiveOnly {
		whereClauses = append(whereClauses, "is_active = TRUE")
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count engineers: %w", err)
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY name
		LIMIT $%d OFFSET $%d
	`, engineerColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list engineers: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Engineer, 0)
	for rows.Next() {
		e, err := scanEngineer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan engineer: %w", err)
		}
		items = append(items, *e)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate engineers: %w", rows.Err())
	}

	return items, total, nil
}

// ListCandidates returns the office's active PMEngineers with assigned site
// ids loaded in one pass.
func (r *Repo) ListCandidates(ctx context.Context, officeID uuid.UUID) ([]domain.Engineer, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE office_id = $1 AND role = $2 AND is_active = TRUE
		ORDER BY name`, engineerColumns)

	rows, err := r.pool.Query(ctx, query, officeID, domain.RolePMEngineer)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]int)
	items := make([]domain.Engineer, 0)
	for rows.Next() {
		e, err := scanEngineer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		byID[e.ID] = len(items)
		items = append(items, *e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate candidates: %w", rows.Err())
	}
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].ID)
	}
	assignRows, err := r.pool.Query(ctx,
		`SELECT engineer_id, site_id FROM engineer_site_assignments WHERE engineer_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load candidate assignments: %w", err)
	}
	defer assignRows.Close()

	for assignRows.Next() {
		var engineerID, siteID uuid.UUID
		if err := assignRows.Scan(&engineerID, &siteID); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		if idx, ok := byID[engineerID]; ok {
			items[idx].AssignedSiteIDs = append(items[idx].AssignedSiteIDs, siteID)
		}
	}
	if assignRows.Err() != nil {
		return nil, fmt.Errorf("iterate assignments: %w", assignRows.Err())
	}

	return items, nil
}

// Save persists the engineer's mutable scalar fields.
func (r *Repo) Save(ctx context.Context, e *domain.Engineer) error {
	query := `
		UPDATE users
		SET name = $2,
			phone = $3,
			max_assignable_sites = $4,
			specializations = $5,
			performance_rating = $6,
			is_active = $7,
			updated_at = $8
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		e.ID, e.Name, e.Phone, e.MaxAssignableSites, e.Specializations,
		e.PerformanceRating, e.IsActive, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save engineer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(engineerNotFoundMessage)
	}
	return nil
}

// AssignSite records a site assignment. Idempotent via ON CONFLICT.
func (r *Repo) AssignSite(ctx context.Context, engineerID, siteID uuid.UUID) error {
	query := `
		INSERT INTO engineer_site_assignments (engineer_id, site_id, assigned_at)
		VALUES ($1, $2, now())
		ON CONFLICT (engineer_id, site_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, engineerID, siteID); err != nil {
		return fmt.Errorf("assign site: %w", err)
	}
	return nil
}

// UnassignSite removes a site assignment. Idempotent.
func (r *Repo) UnassignSite(ctx context.Context, engineerID, siteID uuid.UUID) error {
	query := `DELETE FROM engineer_site_assignments WHERE engineer_id = $1 AND site_id = $2`
	if _, err := r.pool.Exec(ctx, query, engineerID, siteID); err != nil {
		return fmt.Errorf("unassign site: %w", err)
	}
	return nil
}

func (r *Repo) loadAssignments(ctx context.Context, e *domain.Engineer) error {
	rows, err := r.pool.Query(ctx,
		`SELECT site_id FROM engineer_site_assignments WHERE engineer_id = $1 ORDER BY assigned_at`, e.ID)
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var siteID uuid.UUID
		if err := rows.Scan(&siteID); err != nil {
			return fmt.Errorf("scan assignment: %w", err)
		}
		e.AssignedSiteIDs = append(e.AssignedSiteIDs, siteID)
	}
	if rows.Err() != nil {
		return fmt.Errorf("iterate assignments: %w", rows.Err())
	}
	return nil
}

func scanEngineer(row pgx.Row) (*domain.Engineer, error) {
	var e domain.Engineer
	if err := row.Scan(
		&e.ID, &e.Name, &e.Email, &e.Phone, &e.PasswordHash, &e.Role, &e.OfficeID,
		&e.MaxAssignableSites, &e.Specializations, &e.PerformanceRating, &e.IsActive,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
