package pgsql

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
)

func TestSelectEntryQuery_LocksInsideTransaction(t *testing.T) {
	txCtx := context.WithValue(context.Background(), txKey{}, pgx.Tx(fakeTx{}))

	locked := selectEntryQuery(txCtx, `journal_entry_id = $1`, portsrepo.RowLockUpdate)
	assert.True(t, strings.HasSuffix(locked, "journal_entry_id = $1 FOR UPDATE;"), locked)

	plain := selectEntryQuery(txCtx, `journal_entry_id = $1`, portsrepo.RowLockNone)
	assert.NotContains(t, plain, "FOR UPDATE")

	outside := selectEntryQuery(context.Background(), `journal_entry_id = $1`, portsrepo.RowLockUpdate)
	assert.NotContains(t, outside, "FOR UPDATE")
}

func TestSelectReconciliationQuery_LocksInsideTransaction(t *testing.T) {
	txCtx := context.WithValue(context.Background(), txKey{}, pgx.Tx(fakeTx{}))

	locked := selectReconciliationQuery(txCtx, portsrepo.RowLockUpdate)
	assert.True(t, strings.HasSuffix(locked, "bank_reconciliation_id = $1 FOR UPDATE;"), locked)
	assert.NotContains(t, selectReconciliationQuery(txCtx, portsrepo.RowLockNone), "FOR UPDATE")
}

func TestOutboxFailureWritesBumpRetryCount(t *testing.T) {
	assert.Contains(t, markFailedSet, "retry_count = retry_count + 1")
	assert.Contains(t, releaseClaimsSQL, "retry_count = retry_count + 1")
}
