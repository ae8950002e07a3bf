package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telecompm_backend/internal/materials/domain"
	"telecompm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const materialNotFoundMessage = "material not found"

const materialColumns = `id, code, name, description, category, office_id,
	stock_value, stock_unit, minimum_value, unit_cost_cents, is_active,
	last_restocked_at, created_at, updated_at`

// Repo implements the materials repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new materials repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts the material within the given transaction.
func (r *Repo) Create(ctx context.Context, tx pgx.Tx, m *domain.Material) error {
	query := `
		INSERT INTO materials (
			id, code, name, description, category, office_id,
			stock_value, stock_unit, minimum_value, unit_cost_cents, is_active,
			last_restocked_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	if _, err := tx.Exec(ctx, query,
		m.ID, m.Code, m.Name, m.Description, m.Category, m.OfficeID,
		m.CurrentStock.Value, m.CurrentStock.Unit, m.MinimumStock.Value, m.UnitCostCents, m.IsActive,
		m.LastRestockedAt, m.CreatedAt, m.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict(fmt.Sprintf("material code %s already exists", m.Code))
		}
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// GetByID retrieves a material without its reservations.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE id = $1`, materialColumns)
	m, err := scanMaterial(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(materialNotFoundMessage)
		}
		return nil, fmt.Errorf("get material by id: %w", err)
	}
	return m, nil
}

// GetByCode retrieves a material by its uppercase-normalized code.
func (r *Repo) GetByCode(ctx context.Context, code string) (*domain.Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE code = $1`, materialColumns)
	m, err := scanMaterial(r.pool.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(code))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(materialNotFoundMessage)
		}
		return nil, fmt.Errorf("get material by code: %w", err)
	}
	return m, nil
}

// GetForUpdate locks the material row for the remainder of the transaction
// and loads its unconsumed reservations, so the aggregate's availability math
// runs against the latest committed state.
func (r *Repo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Material, error) {
	query := fmt.Sprintf(`SELECT %s FROM materials WHERE id = $1 FOR UPDATE`, materialColumns)
	m, err := scanMaterial(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(materialNotFoundMessage)
		}
		return nil, fmt.Errorf("get material for update: %w", err)
	}

	resQuery := `
		SELECT id, material_id, visit_id, quantity, reserved_at, consumed, consumed_at
		FROM material_reservations
		WHERE material_id = $1 AND consumed = FALSE
		ORDER BY reserved_at`

	rows, err := tx.Query(ctx, resQuery, id)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID, &res.MaterialID, &res.VisitID, &res.Quantity.Value,
			&res.ReservedAt, &res.Consumed, &res.ConsumedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res.Quantity.Unit = m.CurrentStock.Unit
		m.Reservations = append(m.Reservations, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}

	return m, nil
}

// List lists materials with filters and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Material, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Category != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, params.Category)
		argIdx++
	}
	if params.OfficeID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("office_id = $%d", argIdx))
		args = append(args, *params.OfficeID)
		argIdx++
	}
	if params.LowStock {
		whereClauses = append(whereClauses, "stock_value <= minimum_value")
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM materials WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count materials: %w", err)
	}

	sortColumn := "code"
	switch params.SortBy {
	case "name":
		sortColumn = "name"
	case "currentStock":
		sortColumn = "stock_value"
	case "createdAt":
		sortColumn = "created_at"
	case "updatedAt":
		sortColumn = "updated_at"
	}

	sortOrder := "ASC"
	if params.SortOrder == "desc" {
		sortOrder = "DESC"
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM materials
		WHERE %s
		ORDER BY %s %s, code ASC
		LIMIT $%d OFFSET $%d
	`, materialColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan material: %w", err)
		}
		items = append(items, *m)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate materials: %w", rows.Err())
	}

	return items, total, nil
}

// FindLowStock lists active materials at or below their minimum threshold
// for one office.
func (r *Repo) FindLowStock(ctx context.Context, officeID uuid.UUID) ([]domain.Material, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM materials
		WHERE office_id = $1 AND is_active = TRUE AND stock_value <= minimum_value
		ORDER BY code`, materialColumns)

	rows, err := r.pool.Query(ctx, query, officeID)
	if err != nil {
		return nil, fmt.Errorf("find low stock: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		items = append(items, *m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate low stock: %w", rows.Err())
	}

	return items, nil
}

// ListOfficeIDs returns the distinct offices that own active materials.
func (r *Repo) ListOfficeIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT office_id FROM materials WHERE is_active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("list office ids: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan office id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate office ids: %w", rows.Err())
	}

	return ids, nil
}

// SaveStock persists the aggregate's mutable stock fields.
func (r *Repo) SaveStock(ctx context.Context, tx pgx.Tx, m *domain.Material) error {
	query := `
		UPDATE materials
		SET stock_value = $2,
			minimum_value = $3,
			unit_cost_cents = $4,
			is_active = $5,
			last_restocked_at = $6,
			updated_at = $7
		WHERE id = $1`

	result, err := tx.Exec(ctx, query,
		m.ID, m.CurrentStock.Value, m.MinimumStock.Value, m.UnitCostCents,
		m.IsActive, m.LastRestockedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save material stock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(materialNotFoundMessage)
	}
	return nil
}

// InsertReservation persists a newly created reservation. The partial unique
// index on (material_id, visit_id) WHERE NOT consumed backs up the
// aggregate's duplicate check.
func (r *Repo) InsertReservation(ctx context.Context, tx pgx.Tx, res *domain.Reservation) error {
	query := `
		INSERT INTO material_reservations (id, material_id, visit_id, quantity, reserved_at, consumed)
		VALUES ($1, $2, $3, $4, $5, FALSE)`

	if _, err := tx.Exec(ctx, query, res.ID, res.MaterialID, res.VisitID, res.Quantity.Value, res.ReservedAt); err != nil {
		if isUniqueViolation(err) {
			return apperr.DuplicateReservation("an open reservation already exists for this material and visit")
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// MarkReservationConsumed flips the consumed flag; the row is immutable
// thereafter.
func (r *Repo) MarkReservationConsumed(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `UPDATE material_reservations SET consumed = TRUE, consumed_at = now() WHERE id = $1 AND consumed = FALSE`
	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark reservation consumed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.ReservationNotFound("no open reservation to consume")
	}
	return nil
}

// DeleteReservation removes an unconsumed reservation. The bool reports
// whether a row was actually deleted; callers treat false as a no-op.
func (r *Repo) DeleteReservation(ctx context.Context, tx pgx.Tx, materialID, visitID uuid.UUID) (bool, error) {
	query := `DELETE FROM material_reservations WHERE material_id = $1 AND visit_id = $2 AND consumed = FALSE`
	result, err := tx.Exec(ctx, query, materialID, visitID)
	if err != nil {
		return false, fmt.Errorf("delete reservation: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListOpenReservationsByVisit returns the visit's unconsumed reservations
// across all materials.
func (r *Repo) ListOpenReservationsByVisit(ctx context.Context, visitID uuid.UUID) ([]domain.Reservation, error) {
	query := `
		SELECT r.id, r.material_id, r.visit_id, r.quantity, m.stock_unit, r.reserved_at, r.consumed, r.consumed_at
		FROM material_reservations r
		JOIN materials m ON m.id = r.material_id
		WHERE r.visit_id = $1 AND r.consumed = FALSE
		ORDER BY r.reserved_at`

	rows, err := r.pool.Query(ctx, query, visitID)
	if err != nil {
		return nil, fmt.Errorf("list open reservations: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Reservation, 0)
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID, &res.MaterialID, &res.VisitID, &res.Quantity.Value, &res.Quantity.Unit,
			&res.ReservedAt, &res.Consumed, &res.ConsumedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		items = append(items, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}

	return items, nil
}

// InsertUsage appends an immutable consumption line item.
func (r *Repo) InsertUsage(ctx context.Context, tx pgx.Tx, usage UsageRecord) error {
	query := `
		INSERT INTO visit_material_usages (
			id, visit_id, material_id, material_code, material_name,
			quantity, unit, unit_cost_cents, total_cost_cents, used_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := tx.Exec(ctx, query,
		usage.ID, usage.VisitID, usage.MaterialID, usage.MaterialCode, usage.MaterialName,
		usage.Quantity, usage.Unit, usage.UnitCostCents, usage.TotalCostCents, usage.UsedAt,
	); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// ListUsageByVisit returns the visit's consumption line items.
func (r *Repo) ListUsageByVisit(ctx context.Context, visitID uuid.UUID) ([]UsageRecord, error) {
	query := `
		SELECT id, visit_id, material_id, material_code, material_name,
			quantity, unit, unit_cost_cents, total_cost_cents, used_at
		FROM visit_material_usages
		WHERE visit_id = $1
		ORDER BY used_at`

	rows, err := r.pool.Query(ctx, query, visitID)
	if err != nil {
		return nil, fmt.Errorf("list usage by visit: %w", err)
	}
	defer rows.Close()

	items := make([]UsageRecord, 0)
	for rows.Next() {
		var u UsageRecord
		if err := rows.Scan(
			&u.ID, &u.VisitID, &u.MaterialID, &u.MaterialCode, &u.MaterialName,
			&u.Quantity, &u.Unit, &u.UnitCostCents, &u.TotalCostCents, &u.UsedAt,
		); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		items = append(items, u)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate usage records: %w", rows.Err())
	}

	return items, nil
}

func scanMaterial(row pgx.Row) (*domain.Material, error) {
	var m domain.Material
	if err := row.Scan(
		&m.ID, &m.Code, &m.Name, &m.Description, &m.Category, &m.OfficeID,
		&m.CurrentStock.Value, &m.CurrentStock.Unit, &m.MinimumStock.Value, &m.UnitCostCents, &m.IsActive,
		&m.LastRestockedAt, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.MinimumStock.Unit = m.CurrentStock.Unit
	return &m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
