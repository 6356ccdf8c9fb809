package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	username TEXT NOT NULL,
	balance BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS transactions (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
	sender_id BIGINT NOT NULL REFERENCES users (id),
	receiver_id BIGINT NOT NULL REFERENCES users (id),
	amount BIGINT NOT NULL,
	accepted BOOLEAN,
	message TEXT NOT NULL
);
`

// PostgresStore implements Store on a pgx connection pool. One instance
// owns the pool for the lifetime of the process.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn, verifies connectivity and bootstraps the
// schema.
func Connect(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool without bootstrapping the schema.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *PostgresStore) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, name, username string, balance int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, username, balance)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, username, balance).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, username, balance
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Username, &u.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %d: %w", id, err)
	}
	return &u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]UserSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, username
		FROM users
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []UserSummary{}
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Username); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Transactions referencing the user go first to satisfy the foreign keys.
	_, err = tx.Exec(ctx, `
		DELETE FROM transactions
		WHERE sender_id = $1 OR receiver_id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transactions for user %d: %w", id, err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*User, error) {
	var u User
	err := tx.QueryRow(ctx, `
		SELECT id, name, username, balance
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&u.ID, &u.Name, &u.Username, &u.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %d: %w", id, err)
	}
	return &u, nil
}

func (s *PostgresStore) GetBalance(ctx context.Context, id int64) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to fetch balance for user %d: %w", id, err)
	}
	return balance, nil
}

func (s *PostgresStore) AdjustBalance(ctx context.Context, tx pgx.Tx, id int64, delta int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE users
		SET balance = balance + $1
		WHERE id = $2
	`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust balance for user %d: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) InsertTransaction(ctx context.Context, tx pgx.Tx, txn *Transaction) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (sender_id, receiver_id, amount, message, accepted)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, timestamp
	`, txn.SenderID, txn.ReceiverID, txn.Amount, txn.Message, txn.Accepted.BoolPtr()).
		Scan(&txn.ID, &txn.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	return scanTransaction(s.pool.QueryRow(ctx, `
		SELECT id, timestamp, sender_id, receiver_id, amount, accepted, message
		FROM transactions
		WHERE id = $1
	`, id))
}

func (s *PostgresStore) GetTransactionForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*Transaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `
		SELECT id, timestamp, sender_id, receiver_id, amount, accepted, message
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		txn      Transaction
		accepted *bool
	)
	err := row.Scan(&txn.ID, &txn.Timestamp, &txn.SenderID, &txn.ReceiverID,
		&txn.Amount, &accepted, &txn.Message)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	txn.Accepted = DecisionFromBool(accepted)
	return &txn, nil
}

func (s *PostgresStore) ListTransactionsForUser(ctx context.Context, userID int64) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, timestamp, sender_id, receiver_id, amount, accepted, message
		FROM transactions
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	txns := []Transaction{}
	for rows.Next() {
		var (
			txn      Transaction
			accepted *bool
		)
		if err := rows.Scan(&txn.ID, &txn.Timestamp, &txn.SenderID, &txn.ReceiverID,
			&txn.Amount, &accepted, &txn.Message); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Accepted = DecisionFromBool(accepted)
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (s *PostgresStore) SetTransactionStatus(ctx context.Context, tx pgx.Tx, id int64, d Decision) (time.Time, error) {
	var ts time.Time
	err := tx.QueryRow(ctx, `
		UPDATE transactions
		SET accepted = $1, timestamp = now()
		WHERE id = $2
		RETURNING timestamp
	`, d.BoolPtr(), id).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrTransactionNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return ts, nil
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS transactions; DROP TABLE IF EXISTS users;`); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to recreate tables: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
