// Package repository provides data access interfaces and their PostgreSQL
// implementations for the paper triage service.
//
// # Repository Interfaces
//
//   - PaperRepository: collected papers, review queue, citation seeds, keyword links
//   - InterestRepository: the weighted relevance profile
//   - KeywordRepository: search keywords for keyword collection
//   - FeedRepository: RSS/Atom feeds
//   - SettingsRepository: key/value review settings
//   - CollectionLogRepository: append-only collection audit log
//   - FeedbackRepository: append-only scoring feedback
//
// # Error Handling
//
// Methods return domain errors: domain.NotFoundError when a row is missing,
// domain.AlreadyExistsError on unique violations. Other database errors are
// wrapped with fmt.Errorf and %w.
//
// # Transactions
//
// Every implementation is built over DBTX, so a pgx.Tx from
// database.DB.WithTransaction can be passed in place of the pool:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    return repository.NewPgSettingsRepository(tx).UpdateReviewSettings(ctx, settings)
//	})
package repository

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/paper-triage-service/internal/database"
	"github.com/helixir/paper-triage-service/internal/domain"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// Postgres error codes mapped to domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// psql builds dollar-placeholder statements for dynamic queries.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}

// mapWriteError translates constraint violations into domain errors.
func mapWriteError(err error, entity, id, action string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.NewAlreadyExistsError(entity, id)
		case pgForeignKeyViolation:
			return domain.NewNotFoundError(entity, id)
		}
	}
	return fmt.Errorf("failed to %s %s: %w", action, entity, err)
}

// mapReadError translates a missing row into domain.NotFoundError.
func mapReadError(err error, entity, id, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}
	return fmt.Errorf("failed to %s %s: %w", action, entity, err)
}
