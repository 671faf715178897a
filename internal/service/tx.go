package service

import (
	"context"
	"time"

	"github.com/ludotheque/ludo-api/internal/repository"
)

var ErrConcurrentUpdate = repository.ErrConcurrentUpdate

// Transactor runs fn as one atomic unit. Conflicting writers are replayed by
// the implementation before it gives up with ErrConcurrentUpdate.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock is swapped by tests.
type Clock func() time.Time
