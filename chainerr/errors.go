// Package chainerr defines the error kinds shared across gossipchain's
// components (spec §7): serialization, storage, transaction validity,
// insufficient funds, and malformed protocol messages. Callers compare
// against these with errors.Is after the concrete error has been wrapped
// with additional context via fmt.Errorf("...: %w", ...).
package chainerr

import "errors"

var (
	// ErrSerialization wraps any binary/JSON encode or decode failure.
	ErrSerialization = errors.New("serialization error")

	// ErrStorage wraps any error returned by the underlying KV engine.
	ErrStorage = errors.New("storage error")

	// ErrInvalidTransaction marks a transaction whose signature failed to
	// verify, or whose referenced prior transaction could not be found.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInsufficientFunds marks a spend request whose sender does not
	// have enough spendable UTXOs to cover the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrProtocol marks a malformed inbound gossip message.
	ErrProtocol = errors.New("protocol error")
)
