package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// Compile-time interface verification.
var _ InterestRepository = (*PgInterestRepository)(nil)

const interestColumns = `id, label, weight, type, created_at, updated_at`

// PgInterestRepository is a PostgreSQL implementation of InterestRepository.
type PgInterestRepository struct {
	db DBTX
}

// NewPgInterestRepository creates a new PostgreSQL interest repository.
func NewPgInterestRepository(db DBTX) *PgInterestRepository {
	return &PgInterestRepository{db: db}
}

// ListInterests returns the whole profile, heaviest first.
func (r *PgInterestRepository) ListInterests(ctx context.Context) ([]*domain.Interest, error) {
	rows, err := r.db.Query(ctx, `SELECT `+interestColumns+` FROM interests ORDER BY weight DESC, label`)
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	defer rows.Close()

	interests := make([]*domain.Interest, 0)
	for rows.Next() {
		in, err := scanInterest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interest: %w", err)
		}
		interests = append(interests, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interests: %w", err)
	}
	return interests, nil
}

// GetByID retrieves an interest by its UUID.
func (r *PgInterestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Interest, error) {
	in, err := scanInterest(r.db.QueryRow(ctx, `SELECT `+interestColumns+` FROM interests WHERE id = $1`, id))
	if err != nil {
		return nil, mapReadError(err, "interest", id.String(), "get")
	}
	return in, nil
}

// CreateInterest stores a new interest with a clamped weight.
func (r *PgInterestRepository) CreateInterest(ctx context.Context, in *domain.Interest) error {
	if in == nil {
		return domain.NewValidationError("interest", "interest is required")
	}
	in.Label = strings.TrimSpace(in.Label)
	if in.Label == "" {
		return domain.NewValidationError("label", "label is required")
	}
	if in.Type == "" {
		in.Type = domain.InterestTypeManual
	}
	if !in.Type.IsValid() {
		return domain.NewValidationError("type", "unknown interest type")
	}
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	in.Weight = domain.ClampWeight(in.Weight)
	now := time.Now().UTC()
	in.CreatedAt = now
	in.UpdatedAt = now

	query := `
		INSERT INTO interests (` + interestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query, in.ID, in.Label, in.Weight, string(in.Type), in.CreatedAt, in.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "interest", in.Label, "create")
	}
	return nil
}

// UpdateInterestWeight stores a new clamped weight.
func (r *PgInterestRepository) UpdateInterestWeight(ctx context.Context, id uuid.UUID, weight float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE interests SET weight = $2, updated_at = $3 WHERE id = $1`,
		id, domain.ClampWeight(weight), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update interest weight: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("interest", id.String())
	}
	return nil
}

// Update applies the non-nil fields of update.
func (r *PgInterestRepository) Update(ctx context.Context, id uuid.UUID, update InterestUpdate) (*domain.Interest, error) {
	if update.Label == nil && update.Weight == nil {
		return r.GetByID(ctx, id)
	}

	stmt := psql.Update("interests").Set("updated_at", time.Now().UTC())
	if update.Label != nil {
		label := strings.TrimSpace(*update.Label)
		if label == "" {
			return nil, domain.NewValidationError("label", "label is required")
		}
		stmt = stmt.Set("label", label)
	}
	if update.Weight != nil {
		stmt = stmt.Set("weight", domain.ClampWeight(*update.Weight))
	}

	query, args, err := stmt.Where(sq.Eq{"id": id}).Suffix("RETURNING " + interestColumns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build interest update: %w", err)
	}
	in, err := scanInterest(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if mapped := mapWriteError(err, "interest", id.String(), "update"); domain.IsAlreadyExists(mapped) {
			return nil, mapped
		}
		return nil, mapReadError(err, "interest", id.String(), "update")
	}
	return in, nil
}

// Delete removes an interest.
func (r *PgInterestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM interests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete interest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("interest", id.String())
	}
	return nil
}

func scanInterest(row pgx.Row) (*domain.Interest, error) {
	var in domain.Interest
	var kind string
	if err := row.Scan(&in.ID, &in.Label, &in.Weight, &kind, &in.CreatedAt, &in.UpdatedAt); err != nil {
		return nil, err
	}
	in.Type = domain.InterestType(kind)
	return &in, nil
}
