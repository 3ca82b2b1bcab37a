package repositories

import (
	"context"
)

// TransactionManager runs a unit of work inside one database transaction.
// The transaction travels in the context handed to fn, so every repository
// call made with that context joins it. A nested call reuses the outer
// transaction. Returning an error from fn rolls everything back.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RowLock selects the row-level lock taken when reading inside a transaction.
type RowLock int

const (
	// RowLockNone reads without locking.
	RowLockNone RowLock = iota
	// RowLockShare blocks concurrent writers but not other sharers.
	RowLockShare
	// RowLockUpdate takes the row exclusively.
	RowLockUpdate
)
