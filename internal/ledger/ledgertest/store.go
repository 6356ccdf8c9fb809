// Package ledgertest provides an in-memory Store for tests that exercise
// the workflow and HTTP surface without a database.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rishis123/backend-dev3/internal/ledger"
)

// memTx satisfies pgx.Tx for the methods the workflow calls on it.
// Mutations apply immediately; the store has no rollback, which is fine
// for tests that only drive valid sequences or fail before mutating.
type memTx struct{ pgx.Tx }

func (memTx) Commit(context.Context) error   { return nil }
func (memTx) Rollback(context.Context) error { return nil }

// MemStore is an in-memory ledger.Store.
type MemStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextTxnID  int64
	users      map[int64]*ledger.User
	txns       map[int64]*ledger.Transaction
}

var _ ledger.Store = (*MemStore)(nil)

func New() *MemStore {
	return &MemStore{
		users: make(map[int64]*ledger.User),
		txns:  make(map[int64]*ledger.Transaction),
	}
}

func (m *MemStore) Begin(ctx context.Context) (pgx.Tx, error) {
	return memTx{}, nil
}

func (m *MemStore) CreateUser(ctx context.Context, name, username string, balance int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUserID++
	m.users[m.nextUserID] = &ledger.User{
		ID:       m.nextUserID,
		Name:     name,
		Username: username,
		Balance:  balance,
	}
	return m.nextUserID, nil
}

func (m *MemStore) GetUser(ctx context.Context, id int64) (*ledger.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ledger.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemStore) ListUsers(ctx context.Context) ([]ledger.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []ledger.UserSummary{}
	for _, u := range m.users {
		out = append(out, ledger.UserSummary{ID: u.ID, Name: u.Name, Username: u.Username})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ledger.ErrUserNotFound
	}
	delete(m.users, id)
	for txnID, txn := range m.txns {
		if txn.SenderID == id || txn.ReceiverID == id {
			delete(m.txns, txnID)
		}
	}
	return nil
}

func (m *MemStore) GetUserForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*ledger.User, error) {
	return m.GetUser(ctx, id)
}

func (m *MemStore) GetBalance(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, ledger.ErrUserNotFound
	}
	return u.Balance, nil
}

func (m *MemStore) AdjustBalance(ctx context.Context, tx pgx.Tx, id int64, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ledger.ErrUserNotFound
	}
	u.Balance += delta
	return nil
}

func (m *MemStore) InsertTransaction(ctx context.Context, tx pgx.Tx, txn *ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTxnID++
	txn.ID = m.nextTxnID
	txn.Timestamp = time.Now().UTC()
	cp := *txn
	m.txns[txn.ID] = &cp
	return nil
}

func (m *MemStore) GetTransaction(ctx context.Context, id int64) (*ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	cp := *txn
	return &cp, nil
}

func (m *MemStore) GetTransactionForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*ledger.Transaction, error) {
	return m.GetTransaction(ctx, id)
}

func (m *MemStore) ListTransactionsForUser(ctx context.Context, userID int64) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []ledger.Transaction{}
	for _, txn := range m.txns {
		if txn.SenderID == userID || txn.ReceiverID == userID {
			out = append(out, *txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) SetTransactionStatus(ctx context.Context, tx pgx.Tx, id int64, d ledger.Decision) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok {
		return time.Time{}, ledger.ErrTransactionNotFound
	}
	txn.Accepted = d
	txn.Timestamp = time.Now().UTC()
	return txn.Timestamp, nil
}

func (m *MemStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUserID = 0
	m.nextTxnID = 0
	m.users = make(map[int64]*ledger.User)
	m.txns = make(map[int64]*ledger.Transaction)
	return nil
}

// TotalBalance sums every user's balance; money conservation means it is
// invariant under transaction operations.
func (m *MemStore) TotalBalance() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, u := range m.users {
		sum += u.Balance
	}
	return sum
}
