package ledger

import (
	"encoding/json"
	"time"
)

// Decision is the tri-state outcome of a transaction: no decision yet,
// accepted, or denied. It serializes as JSON null/true/false and is stored
// as a nullable boolean column. Once a transaction is accepted or denied
// the decision never changes again.
type Decision int8

const (
	DecisionPending Decision = iota
	DecisionAccepted
	DecisionDenied
)

// Decided reports whether the decision is terminal.
func (d Decision) Decided() bool { return d != DecisionPending }

func (d Decision) String() string {
	switch d {
	case DecisionAccepted:
		return "accepted"
	case DecisionDenied:
		return "denied"
	default:
		return "pending"
	}
}

func (d Decision) MarshalJSON() ([]byte, error) {
	switch d {
	case DecisionAccepted:
		return []byte("true"), nil
	case DecisionDenied:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (d *Decision) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = DecisionFromBool(v)
	return nil
}

// DecisionFromBool maps a nullable boolean onto the enumeration.
func DecisionFromBool(v *bool) Decision {
	switch {
	case v == nil:
		return DecisionPending
	case *v:
		return DecisionAccepted
	default:
		return DecisionDenied
	}
}

// BoolPtr is the inverse of DecisionFromBool, used when binding the
// nullable column.
func (d Decision) BoolPtr() *bool {
	switch d {
	case DecisionAccepted:
		v := true
		return &v
	case DecisionDenied:
		v := false
		return &v
	default:
		return nil
	}
}

type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}

// UserSummary is the list form of a user; balance and transactions are
// deliberately omitted.
type UserSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// UserDetail is the full snapshot returned for single-user reads, creation
// and deletion.
type UserDetail struct {
	User
	Transactions []Transaction `json:"transactions"`
}

type Transaction struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Amount     int64     `json:"amount"`
	Accepted   Decision  `json:"accepted"`
	Message    string    `json:"message"`
}

// TransactionRequest is a validated intent to move money. A nil Accepted
// creates a pending request; true settles immediately; false is rejected.
type TransactionRequest struct {
	SenderID   int64
	ReceiverID int64
	Amount     int64
	Message    string
	Accepted   *bool
}
