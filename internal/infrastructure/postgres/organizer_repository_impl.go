package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/internal/domain/repository"
)

type OrganizerRepository struct {
	db *DB
}

func NewOrganizerRepository(db *DB) *OrganizerRepository {
	return &OrganizerRepository{db: db}
}

const qOrganizerCols = `id::text, name, email, password_hash, role, status, created_at, updated_at`

func (r *OrganizerRepository) GetByID(ctx context.Context, id string) (*entity.Organizer, error) {
	return r.getOne(ctx, `SELECT `+qOrganizerCols+` FROM organizers WHERE id = $1`, id)
}

func (r *OrganizerRepository) GetByEmail(ctx context.Context, email string) (*entity.Organizer, error) {
	return r.getOne(ctx, `SELECT `+qOrganizerCols+` FROM organizers WHERE lower(email) = lower($1)`, email)
}

func (r *OrganizerRepository) getOne(ctx context.Context, q string, arg any) (*entity.Organizer, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	o := &entity.Organizer{}
	err := r.db.Pool.QueryRow(ctx, q, arg).Scan(
		&o.ID, &o.Name, &o.Email, &o.PasswordHash, &o.Role, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("organizer scan: %w", err)
	}
	return o, nil
}

var _ repository.OrganizerRepository = (*OrganizerRepository)(nil)
