package services

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// errVersionConflict means a conditional update matched no row because a
// concurrent request changed it first. The whole unit of work is retried.
var errVersionConflict = errors.New("optimistic version conflict")

const defaultTxAttempts = 5

// runInTx executes fn inside one database transaction, retrying the entire
// transaction when it lost an optimistic race. Any other error rolls back and
// is returned unchanged.
func runInTx(ctx context.Context, db *gorm.DB, attempts int, label string, fn func(tx *gorm.DB) error) error {
	if attempts < 1 {
		attempts = defaultTxAttempts
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		log.Printf("🔁 [%s] attempt %d/%d lost a concurrent update: %v", label, attempt, attempts, err)
		if attempt == attempts {
			break
		}

		backoff := time.Duration(attempt*attempt)*5*time.Millisecond + time.Duration(rand.Intn(5))*time.Millisecond
		select {
		case <-ctx.Done():
			return internal(ctx.Err(), "request cancelled while retrying")
		case <-time.After(backoff):
		}
	}

	return conflict("too many concurrent updates, please retry").WithDetail("cause", err.Error())
}

// isRetryable reports whether err is a lost race rather than a real failure.
func isRetryable(err error) bool {
	if errors.Is(err, errVersionConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505": // serialization_failure, deadlock_detected, unique_violation
			return true
		}
	}
	return false
}
