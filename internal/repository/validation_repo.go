package repository

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// ValidationLedger is the append-only record of every decision. The
// (request_id, level) unique index enforces at-most-one entry per level in
// the database itself, independent of the engine's precondition check.
type ValidationLedger interface {
	Append(ctx context.Context, entry *model.ValidationEntry) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.ValidationEntry, error)
}

type validationLedger struct {
	db *gorm.DB
}

func NewValidationLedger(db *gorm.DB) ValidationLedger {
	return &validationLedger{db: db}
}

// Append inserts a decision entry, translating a unique-constraint violation
// into ErrLevelAlreadyDecided for the loser of a same-level race.
func (r *validationLedger) Append(ctx context.Context, entry *model.ValidationEntry) error {
	if err := GetDB(ctx, r.db).Create(entry).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: request %s level %d", model.ErrLevelAlreadyDecided, entry.RequestID, entry.Level)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: request %s level %d", model.ErrLevelAlreadyDecided, entry.RequestID, entry.Level)
		}
		return err
	}
	return nil
}

func (r *validationLedger) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.ValidationEntry, error) {
	var entries []model.ValidationEntry
	err := GetDB(ctx, r.db).
		Preload("Actor").
		Where("request_id = ?", requestID).
		Order("level ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
