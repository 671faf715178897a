package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrConcurrentUpdate = errors.New("concurrent update, please retry")

type txKey struct{}

// Transactor runs units of work in a serializable transaction carried by the
// context. DAOs pick the transaction up from the context.
type Transactor struct {
	db      *gorm.DB
	retries int
}

func NewTransactor(db *gorm.DB, retries int) *Transactor {
	return &Transactor{
		db:      db,
		retries: retries,
	}
}

// WithinTransaction commits when fn returns nil. Serialization failures and
// deadlocks replay fn up to the configured number of retries, then surface as
// ErrConcurrentUpdate. Nested calls join the outer transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	for attempt := 0; ; attempt++ {
		err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		}, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err == nil || !retryable(err) {
			return err
		}

		if attempt >= t.retries {
			return fmt.Errorf("%w: %w", ErrConcurrentUpdate, err)
		}

		zap.L().Warn("transaction conflict, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return true
	case pgerrcode.UniqueViolation:
		// Two allocations picked the same free user id.
		return pgErr.ConstraintName == "users_pkey"
	}

	return false
}

func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}

	return db.WithContext(ctx)
}

func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == constraint
}
