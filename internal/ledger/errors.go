// Package ledger implements the transfer request workflow: the account store,
// the atomic balance engine and the request tracker built on top of them.
package ledger

import (
	"errors"

	"github.com/hongminglow/cashjet-be/internal/storage"
)

// Storage-level failures surface unchanged so callers can match either name.
var (
	ErrNotFound          = storage.ErrNotFound
	ErrInsufficientFunds = storage.ErrInsufficientFunds
	ErrTransient         = storage.ErrTransient
)

var (
	// ErrInvalidAgent is returned when an email does not resolve to an agent account.
	ErrInvalidAgent = errors.New("invalid agent")

	// ErrAgentNotActivated is returned when the addressed agent is not activated.
	ErrAgentNotActivated = errors.New("agent is not activated")

	// ErrAccountNotActivated is returned when a party to a transfer is not activated.
	ErrAccountNotActivated = errors.New("account is not activated")

	// ErrAlreadyResolved is returned when acting on a request that left the pending state.
	ErrAlreadyResolved = errors.New("request already resolved")

	// ErrAuthenticationMismatch is returned when the caller is not the party the operation belongs to.
	ErrAuthenticationMismatch = errors.New("caller does not match the request")

	ErrInvalidAmount      = errors.New("invalid amount: must be positive")
	ErrInvalidRequestType = errors.New("invalid request type")
	ErrInvalidStatus      = errors.New("invalid account status")
	ErrInvalidRole        = errors.New("invalid account role")
)
