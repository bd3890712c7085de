package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/internal/domain/repository"
)

type TemplateRepository struct {
	db *DB
}

func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const (
	qTemplateCols = `id::text, name, type, COALESCE(subject, ''), content, is_active, created_at, updated_at`

	qTemplateInsert = `
INSERT INTO notification_templates (name, type, subject, content, is_active)
VALUES ($1, $2, NULLIF($3, ''), $4, $5)
RETURNING id::text, created_at, updated_at;`

	qTemplateUpdate = `
UPDATE notification_templates
SET name = $1, type = $2, subject = NULLIF($3, ''), content = $4, is_active = $5, updated_at = now()
WHERE id::text = $6
RETURNING updated_at;`

	qTemplateStats = `
SELECT type,
       count(*)                              AS total,
       count(*) FILTER (WHERE is_active)     AS active,
       count(*) FILTER (WHERE NOT is_active) AS inactive
FROM notification_templates
GROUP BY type
ORDER BY type;`
)

const uniqueViolation = "23505"

func scanTemplate(row pgx.Row, t *entity.NotificationTemplate) error {
	var typ string
	if err := row.Scan(&t.ID, &t.Name, &typ, &t.Subject, &t.Content, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("template scan: %w", err)
	}
	t.Type = entity.TemplateType(typ)
	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*entity.NotificationTemplate, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	t := &entity.NotificationTemplate{}
	row := r.db.Pool.QueryRow(ctx, `SELECT `+qTemplateCols+` FROM notification_templates WHERE id::text = $1`, id)
	if err := scanTemplate(row, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TemplateRepository) GetActive(ctx context.Context, typ entity.TemplateType, id, name string) (*entity.NotificationTemplate, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	q := `SELECT ` + qTemplateCols + ` FROM notification_templates WHERE type = $1 AND is_active = TRUE AND `
	arg := name
	if id != "" {
		q += `id::text = $2`
		arg = id
	} else {
		q += `name = $2`
	}
	t := &entity.NotificationTemplate{}
	if err := scanTemplate(r.db.Pool.QueryRow(ctx, q+` LIMIT 1`, string(typ), arg), t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TemplateRepository) List(ctx context.Context, f repository.TemplateFilter) ([]entity.NotificationTemplate, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		conds []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, "type = $"+strconv.Itoa(len(args)))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		conds = append(conds, "is_active = $"+strconv.Itoa(len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, "name ILIKE $"+strconv.Itoa(len(args)))
	}
	q := `SELECT ` + qTemplateCols + ` FROM notification_templates`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY type, name"

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("template list: %w", err)
	}
	defer rows.Close()

	out := []entity.NotificationTemplate{}
	for rows.Next() {
		var t entity.NotificationTemplate
		if err := scanTemplate(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepository) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notification_templates WHERE name = $1 AND ($2 = '' OR id::text <> $2))`,
		name, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("template name exists: %w", err)
	}
	return exists, nil
}

func (r *TemplateRepository) Create(ctx context.Context, t *entity.NotificationTemplate) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.Pool.QueryRow(ctx, qTemplateInsert, t.Name, string(t.Type), t.Subject, t.Content, t.IsActive).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapWriteErr("template insert", err)
}

func (r *TemplateRepository) Update(ctx context.Context, t *entity.NotificationTemplate) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.Pool.QueryRow(ctx, qTemplateUpdate, t.Name, string(t.Type), t.Subject, t.Content, t.IsActive, t.ID).
		Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return mapWriteErr("template update", err)
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.Pool.Exec(ctx, `DELETE FROM notification_templates WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("template delete: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TemplateRepository) Stats(ctx context.Context) ([]repository.TemplateStats, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qTemplateStats)
	if err != nil {
		return nil, fmt.Errorf("template stats: %w", err)
	}
	defer rows.Close()

	out := []repository.TemplateStats{}
	for rows.Next() {
		var (
			s   repository.TemplateStats
			typ string
		)
		if err := rows.Scan(&typ, &s.Total, &s.Active, &s.Inactive); err != nil {
			return nil, fmt.Errorf("template stats scan: %w", err)
		}
		s.Type = entity.TemplateType(typ)
		out = append(out, s)
	}
	return out, rows.Err()
}

func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ repository.TemplateRepository = (*TemplateRepository)(nil)
