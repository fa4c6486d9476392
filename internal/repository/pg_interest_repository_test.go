package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-triage-service/internal/domain"
)

var interestColumnNames = []string{"id", "label", "weight", "type", "created_at", "updated_at"}

func TestPgInterestRepository_ListInterests(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .* FROM interests ORDER BY weight DESC, label").
		WillReturnRows(pgxmock.NewRows(interestColumnNames).
			AddRow(uuid.New(), "graph neural networks", 1.5, "manual", now, now).
			AddRow(uuid.New(), "traffic", 1.1, "learned", now, now))

	interests, err := NewPgInterestRepository(mock).ListInterests(ctx)
	require.NoError(t, err)
	require.Len(t, interests, 2)
	assert.Equal(t, domain.InterestTypeManual, interests[0].Type)
	assert.Equal(t, domain.InterestTypeLearned, interests[1].Type)
	assert.InDelta(t, 1.1, interests[1].Weight, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInterestRepository_CreateInterest(t *testing.T) {
	ctx := context.Background()

	t.Run("clamps weight and defaults type", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		in := &domain.Interest{Label: " diffusion models ", Weight: 5}
		mock.ExpectExec("INSERT INTO interests").
			WithArgs(pgxmock.AnyArg(), "diffusion models", 2.0, "manual", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewPgInterestRepository(mock).CreateInterest(ctx, in))
		assert.Equal(t, domain.MaxInterestWeight, in.Weight)
		assert.Equal(t, domain.InterestTypeManual, in.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		err := NewPgInterestRepository(nil).CreateInterest(ctx, &domain.Interest{Label: "x", Type: "inferred"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("same label and type conflicts", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO interests").
			WithArgs(pgxmock.AnyArg(), "x", 1.0, "manual", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
		err = NewPgInterestRepository(mock).CreateInterest(ctx, &domain.Interest{Label: "x", Weight: 1})
		assert.True(t, domain.IsAlreadyExists(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgInterestRepository_UpdateInterestWeight(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPgInterestRepository(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE interests SET weight = \\$2").
		WithArgs(id, domain.MinInterestWeight, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.UpdateInterestWeight(ctx, id, 0.02))

	mock.ExpectExec("UPDATE interests SET weight = \\$2").
		WithArgs(id, 1.3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.True(t, domain.IsNotFound(repo.UpdateInterestWeight(ctx, id, 1.3)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInterestRepository_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	t.Run("clamps manual weight", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := uuid.New()
		weight := -3.0
		mock.ExpectQuery("UPDATE interests SET updated_at = \\$1, weight = \\$2 WHERE id = \\$3 RETURNING").
			WithArgs(pgxmock.AnyArg(), domain.MinInterestWeight, id.String()).
			WillReturnRows(pgxmock.NewRows(interestColumnNames).AddRow(id, "x", 0.1, "manual", now, now))

		in, err := NewPgInterestRepository(mock).Update(ctx, id, InterestUpdate{Weight: &weight})
		require.NoError(t, err)
		assert.Equal(t, domain.MinInterestWeight, in.Weight)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing interest", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := uuid.New()
		label := "renamed"
		mock.ExpectQuery("UPDATE interests SET updated_at = \\$1, label = \\$2 WHERE id = \\$3").
			WithArgs(pgxmock.AnyArg(), "renamed", id.String()).
			WillReturnError(pgx.ErrNoRows)
		_, err = NewPgInterestRepository(mock).Update(ctx, id, InterestUpdate{Label: &label})
		assert.True(t, domain.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete missing interest", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := uuid.New()
		mock.ExpectExec("DELETE FROM interests WHERE id = \\$1").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		assert.True(t, domain.IsNotFound(NewPgInterestRepository(mock).Delete(ctx, id)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
