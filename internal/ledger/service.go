package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Service enforces the money-movement rules on top of the store: direct
// transfers, pending requests and the accept/deny state machine. It holds
// no state of its own.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

func (s *Service) CreateUser(ctx context.Context, name, username string, balance int64) (*UserDetail, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: no name provided", ErrValidation)
	}
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: no username provided", ErrValidation)
	}

	id, err := s.store.CreateUser(ctx, name, username, balance)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("post-insert lookup of user %d failed: %w", id, err)
	}

	s.logger.Info("user created", "user_id", id, "username", username)

	return &UserDetail{User: *user, Transactions: []Transaction{}}, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	return s.store.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, id int64) (*UserDetail, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactionsForUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: *user, Transactions: txns}, nil
}

// DeleteUser removes the user and every transaction they participate in,
// returning the final snapshot captured before the cascade.
func (s *Service) DeleteUser(ctx context.Context, id int64) (*UserDetail, error) {
	snapshot, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("user deleted", "user_id", id, "transactions_removed", len(snapshot.Transactions))

	return snapshot, nil
}

// CreateTransaction creates a transaction in one of two initial states: a
// nil Accepted persists a pending request without touching balances, while
// true settles immediately (balance permitting). Creating an
// already-denied transaction is not a supported intent.
func (s *Service) CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error) {
	if _, err := s.store.GetUser(ctx, req.SenderID); err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	if _, err := s.store.GetUser(ctx, req.ReceiverID); err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}
	if req.SenderID == req.ReceiverID {
		return nil, fmt.Errorf("%w: cannot send money to yourself", ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrValidation)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: no message provided", ErrValidation)
	}
	if req.Accepted != nil && !*req.Accepted {
		return nil, fmt.Errorf("%w: a transaction cannot be created already denied", ErrValidation)
	}

	txn := &Transaction{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		Accepted:   DecisionFromBool(req.Accepted),
		Message:    req.Message,
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if txn.Accepted == DecisionAccepted {
		if err := s.moveFunds(ctx, tx, req.SenderID, req.ReceiverID, req.Amount); err != nil {
			return nil, err
		}
	}
	if err := s.store.InsertTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}

	s.logger.Info("transaction created",
		"txn_id", txn.ID,
		"sender_id", txn.SenderID,
		"receiver_id", txn.ReceiverID,
		"amount", txn.Amount,
		"decision", txn.Accepted.String(),
	)

	return txn, nil
}

// Decide settles a pending transaction. Accepting re-checks the sender's
// balance under a row lock and moves the funds atomically with the status
// change; denying only flips the status. Either way the transaction is
// terminal afterwards.
func (s *Service) Decide(ctx context.Context, txnID int64, accept bool) (*Transaction, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The row lock serializes concurrent decisions: the second caller
	// blocks here and then fails the decided check.
	txn, err := s.store.GetTransactionForUpdate(ctx, tx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.Accepted.Decided() {
		return nil, ErrAlreadyDecided
	}

	decision := DecisionDenied
	if accept {
		if err := s.moveFunds(ctx, tx, txn.SenderID, txn.ReceiverID, txn.Amount); err != nil {
			return nil, err
		}
		decision = DecisionAccepted
	}

	ts, err := s.store.SetTransactionStatus(ctx, tx, txnID, decision)
	if err != nil {
		return nil, err
	}
	txn.Accepted = decision
	txn.Timestamp = ts

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}

	s.logger.Info("transaction decided", "txn_id", txnID, "decision", decision.String())

	return txn, nil
}

// moveFunds debits the sender and credits the receiver inside the given
// transaction, failing with ErrInsufficientFunds when the sender cannot
// cover the amount. Both rows are locked in id order so two opposing
// transfers cannot deadlock.
func (s *Service) moveFunds(ctx context.Context, tx pgx.Tx, senderID, receiverID, amount int64) error {
	firstID, secondID := senderID, receiverID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	first, err := s.store.GetUserForUpdate(ctx, tx, firstID)
	if err != nil {
		return err
	}
	second, err := s.store.GetUserForUpdate(ctx, tx, secondID)
	if err != nil {
		return err
	}

	sender := first
	if second.ID == senderID {
		sender = second
	}

	if sender.Balance < amount {
		s.logger.Warn("insufficient funds",
			"sender_id", senderID,
			"balance", sender.Balance,
			"amount", amount,
		)
		return ErrInsufficientFunds
	}

	if err := s.store.AdjustBalance(ctx, tx, senderID, -amount); err != nil {
		return err
	}
	if err := s.store.AdjustBalance(ctx, tx, receiverID, amount); err != nil {
		return err
	}
	return nil
}

// Reset irreversibly wipes all data and restarts id numbering.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.logger.Info("ledger reset")
	return nil
}
