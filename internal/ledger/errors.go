package ledger

import "errors"

var (
	ErrValidation          = errors.New("invalid input")
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAlreadyDecided      = errors.New("transaction has already been accepted or denied")
)
