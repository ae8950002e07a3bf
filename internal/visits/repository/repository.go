package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telecompm_backend/internal/visits/domain"
	"telecompm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const visitNotFoundMessage = "visit not found"

const visitColumns = `id, visit_number, site_id, engineer_id, visit_type, status,
	scheduled_at, start_location, actual_start_time, actual_end_time, created_at, updated_at`

// Repo implements the visits repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new visits repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts the visit within the given transaction.
func (r *Repo) Create(ctx context.Context, tx pgx.Tx, v *domain.Visit) error {
	query := `
		INSERT INTO visits (
			id, visit_number, site_id, engineer_id, visit_type, status,
			scheduled_at, start_location, actual_start_time, actual_end_time, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := tx.Exec(ctx, query,
		v.ID, v.VisitNumber, v.SiteID, v.EngineerID, v.Type, v.Status,
		v.ScheduledAt, v.StartLocation, v.ActualStartTime, v.ActualEndTime, v.CreatedAt, v.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create visit: %w", err)
	}
	return nil
}

// GetByID retrieves the full aggregate including children.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Visit, error) {
	query := fmt.Sprintf(`SELECT %s FROM visits WHERE id = $1`, visitColumns)
	v, err := scanVisit(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(visitNotFoundMessage)
		}
		return nil, fmt.Errorf("get visit by id: %w", err)
	}

	if err := r.loadChildren(ctx, r.pool, v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetForUpdate locks the visit row for the transaction and loads the full
// aggregate.
func (r *Repo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Visit, error) {
	query := fmt.Sprintf(`SELECT %s FROM visits WHERE id = $1 FOR UPDATE`, visitColumns)
	v, err := scanVisit(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(visitNotFoundMessage)
		}
		return nil, fmt.Errorf("get visit for update: %w", err)
	}

	if err := r.loadChildren(ctx, tx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// List lists visits without children.
func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Visit, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if params.SiteID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("site_id = $%d", argIdx))
		args = append(args, *params.SiteID)
		argIdx++
	}
	if params.EngineerID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("engineer_id = $%d", argIdx))
		args = append(args, *params.EngineerID)
		argIdx++
	}
	if params.Status != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}
	if params.From != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("scheduled_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("scheduled_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM visits WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}

	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM visits
		WHERE %s
		ORDER BY scheduled_at %s, visit_number DESC
		LIMIT $%d OFFSET $%d
	`, visitColumns, whereClause, sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Visit, 0)
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan visit: %w", err)
		}
		items = append(items, *v)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate visits: %w", rows.Err())
	}

	return items, total, nil
}

// Save persists the aggregate's mutable fields.
func (r *Repo) Save(ctx context.Context, tx pgx.Tx, v *domain.Visit) error {
	query := `
		UPDATE visits
		SET status = $2,
			start_location = $3,
			actual_start_time = $4,
			actual_end_time = $5,
			updated_at = $6
		WHERE id = $1`

	result, err := tx.Exec(ctx, query,
		v.ID, v.Status, v.StartLocation, v.ActualStartTime, v.ActualEndTime, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save visit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(visitNotFoundMessage)
	}
	return nil
}

// AddPhoto persists a new photo child row.
func (r *Repo) AddPhoto(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, p *domain.Photo) error {
	query := `
		INSERT INTO visit_photos (id, visit_id, category, phase, width, height, storage_key, captured_at, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := tx.Exec(ctx, query,
		p.ID, visitID, p.Category, p.Phase, p.Width, p.Height, p.StorageKey, p.CapturedAt, p.UploadedAt,
	); err != nil {
		return fmt.Errorf("add visit photo: %w", err)
	}
	return nil
}

// AddReading persists a new reading child row.
func (r *Repo) AddReading(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, reading *domain.Reading) error {
	query := `
		INSERT INTO visit_readings (id, visit_id, category, value, unit, read_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := tx.Exec(ctx, query,
		reading.ID, visitID, reading.Category, reading.Value, reading.Unit, reading.ReadAt,
	); err != nil {
		return fmt.Errorf("add visit reading: %w", err)
	}
	return nil
}

// AddChecklistItem persists a new checklist child row.
func (r *Repo) AddChecklistItem(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, item *domain.ChecklistItem) error {
	query := `
		INSERT INTO visit_checklist_items (id, visit_id, description, status, notes)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := tx.Exec(ctx, query,
		item.ID, visitID, item.Description, item.Status, item.Notes,
	); err != nil {
		return fmt.Errorf("add checklist item: %w", err)
	}
	return nil
}

// UpdateChecklistItem persists a checklist resolution.
func (r *Repo) UpdateChecklistItem(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, item *domain.ChecklistItem) error {
	query := `UPDATE visit_checklist_items SET status = $3, notes = $4 WHERE id = $1 AND visit_id = $2`
	result, err := tx.Exec(ctx, query, item.ID, visitID, item.Status, item.Notes)
	if err != nil {
		return fmt.Errorf("update checklist item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("checklist item not found")
	}
	return nil
}

// AddIssue persists a new issue child row.
func (r *Repo) AddIssue(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, issue *domain.Issue) error {
	query := `
		INSERT INTO visit_issues (id, visit_id, description, severity, reported_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := tx.Exec(ctx, query,
		issue.ID, visitID, issue.Description, issue.Severity, issue.ReportedAt,
	); err != nil {
		return fmt.Errorf("add visit issue: %w", err)
	}
	return nil
}

// AddApproval appends a review history entry.
func (r *Repo) AddApproval(ctx context.Context, tx pgx.Tx, visitID uuid.UUID, entry *domain.ApprovalEntry) error {
	query := `
		INSERT INTO visit_approvals (id, visit_id, action, reviewer_id, reviewer_name, notes, acted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := tx.Exec(ctx, query,
		entry.ID, visitID, entry.Action, entry.ReviewerID, entry.ReviewerName, entry.Notes, entry.ActedAt,
	); err != nil {
		return fmt.Errorf("add visit approval: %w", err)
	}
	return nil
}

// NextVisitNumber bumps the year's counter atomically and formats the
// sequence. The upsert makes the first visit of a new year start at 1.
func (r *Repo) NextVisitNumber(ctx context.Context, tx pgx.Tx, year int) (string, error) {
	query := `
		INSERT INTO visit_number_counters (year, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_seq = visit_number_counters.last_seq + 1
		RETURNING last_seq`

	var seq int
	if err := tx.QueryRow(ctx, query, year).Scan(&seq); err != nil {
		return "", fmt.Errorf("next visit number: %w", err)
	}
	return fmt.Sprintf("V%d%06d", year, seq), nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repo) loadChildren(ctx context.Context, q querier, v *domain.Visit) error {
	if err := r.loadPhotos(ctx, q, v); err != nil {
		return err
	}
	if err := r.loadReadings(ctx, q, v); err != nil {
		return err
	}
	if err := r.loadChecklist(ctx, q, v); err != nil {
		return err
	}
	if err := r.loadIssues(ctx, q, v); err != nil {
		return err
	}
	return r.loadApprovals(ctx, q, v)
}

func (r *Repo) loadPhotos(ctx context.Context, q querier, v *domain.Visit) error {
	rows, err := q.Query(ctx, `
		SELECT id, category, phase, width, height, storage_key, captured_at, uploaded_at
		FROM visit_photos WHERE visit_id = $1 ORDER BY uploaded_at`, v.ID)
	if err != nil {
		return fmt.Errorf("load photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Photo
		if err := rows.Scan(&p.ID, &p.Category, &p.Phase, &p.Width, &p.Height, &p.StorageKey, &p.CapturedAt, &p.UploadedAt); err != nil {
			return fmt.Errorf("scan photo: %w", err)
		}
		v.Photos = append(v.Photos, p)
	}
	return rows.Err()
}

func (r *Repo) loadReadings(ctx context.Context, q querier, v *domain.Visit) error {
	rows, err := q.Query(ctx, `
		SELECT id, category, value, unit, read_at
		FROM visit_readings WHERE visit_id = $1 ORDER BY read_at`, v.ID)
	if err != nil {
		return fmt.Errorf("load readings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reading domain.Reading
		if err := rows.Scan(&reading.ID, &reading.Category, &reading.Value, &reading.Unit, &reading.ReadAt); err != nil {
			return fmt.Errorf("scan reading: %w", err)
		}
		v.Readings = append(v.Readings, reading)
	}
	return rows.Err()
}

func (r *Repo) loadChecklist(ctx context.Context, q querier, v *domain.Visit) error {
	rows, err := q.Query(ctx, `
		SELECT id, description, status, notes
		FROM visit_checklist_items WHERE visit_id = $1 ORDER BY id`, v.ID)
	if err != nil {
		return fmt.Errorf("load checklist: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.ChecklistItem
		if err := rows.Scan(&item.ID, &item.Description, &item.Status, &item.Notes); err != nil {
			return fmt.Errorf("scan checklist item: %w", err)
		}
		v.Checklist = append(v.Checklist, item)
	}
	return rows.Err()
}

func (r *Repo) loadIssues(ctx context.Context, q querier, v *domain.Visit) error {
	rows, err := q.Query(ctx, `
		SELECT id, description, severity, reported_at
		FROM visit_issues WHERE visit_id = $1 ORDER BY reported_at`, v.ID)
	if err != nil {
		return fmt.Errorf("load issues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var issue domain.Issue
		if err := rows.Scan(&issue.ID, &issue.Description, &issue.Severity, &issue.ReportedAt); err != nil {
			return fmt.Errorf("scan issue: %w", err)
		}
		v.Issues = append(v.Issues, issue)
	}
	return rows.Err()
}

func (r *Repo) loadApprovals(ctx context.Context, q querier, v *domain.Visit) error {
	rows, err := q.Query(ctx, `
		SELECT id, action, reviewer_id, reviewer_name, notes, acted_at
		FROM visit_approvals WHERE visit_id = $1 ORDER BY acted_at`, v.ID)
	if err != nil {
		return fmt.Errorf("load approvals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.ApprovalEntry
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.ReviewerID, &entry.ReviewerName, &entry.Notes, &entry.ActedAt); err != nil {
			return fmt.Errorf("scan approval: %w", err)
		}
		v.ApprovalHistory = append(v.ApprovalHistory, entry)
	}
	return rows.Err()
}

func scanVisit(row pgx.Row) (*domain.Visit, error) {
	var v domain.Visit
	if err := row.Scan(
		&v.ID, &v.VisitNumber, &v.SiteID, &v.EngineerID, &v.Type, &v.Status,
		&v.ScheduledAt, &v.StartLocation, &v.ActualStartTime, &v.ActualEndTime, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}
