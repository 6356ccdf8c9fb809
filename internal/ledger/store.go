package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Store is the durable ledger: two tables of users and transactions.
// Methods taking a pgx.Tx participate in a caller-owned transactional
// scope; the workflow uses those to make compound mutations (the accept
// sequence, direct-settle creation) all-or-nothing. Everything else is
// atomic on its own.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)

	CreateUser(ctx context.Context, name, username string, balance int64) (int64, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]UserSummary, error)
	// DeleteUser removes the user and, in the same transactional scope,
	// every transaction where the user is sender or receiver.
	DeleteUser(ctx context.Context, id int64) error

	GetUserForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*User, error)
	GetBalance(ctx context.Context, id int64) (int64, error)
	AdjustBalance(ctx context.Context, tx pgx.Tx, id int64, delta int64) error

	// InsertTransaction assigns txn.ID and txn.Timestamp and persists the
	// record with exactly the tri-state decision it carries.
	InsertTransaction(ctx context.Context, tx pgx.Tx, txn *Transaction) error
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	GetTransactionForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*Transaction, error)
	ListTransactionsForUser(ctx context.Context, userID int64) ([]Transaction, error)
	// SetTransactionStatus updates the decision, refreshes the timestamp
	// and returns the new timestamp.
	SetTransactionStatus(ctx context.Context, tx pgx.Tx, id int64, d Decision) (time.Time, error)

	// Reset drops and recreates both tables; id sequences restart at 1.
	Reset(ctx context.Context) error
}
