package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestType is the direction of a transfer between a user and an agent.
type RequestType string

const (
	// CashIn moves money from the agent to the user.
	CashIn RequestType = "cashIn"
	// CashOut moves money from the user to the agent.
	CashOut RequestType = "cashOut"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	return t == CashIn || t == CashOut
}

// RequestStatus is the lifecycle state of a TransferRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Terminal reports whether no further transition is allowed out of s.
func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestRejected
}

// TransferRequest is a user's request to move money to or from an agent.
type TransferRequest struct {
	ID             uuid.UUID     `json:"id"`
	UserAccountID  int64         `json:"userAccountId"`
	AgentAccountID int64         `json:"agentAccountId"`
	RequestType    RequestType   `json:"requestType"`
	Amount         int64         `json:"amount"`
	Status         RequestStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
}

// NewTransferRequest builds a pending request stamped with the current time.
func NewTransferRequest(userID, agentID int64, requestType RequestType, amount int64) TransferRequest {
	return TransferRequest{
		ID:             uuid.New(),
		UserAccountID:  userID,
		AgentAccountID: agentID,
		RequestType:    requestType,
		Amount:         amount,
		Status:         RequestPending,
		CreatedAt:      time.Now().UTC(),
	}
}

// Deltas returns the balance changes the request applies to the user and the agent.
func (r TransferRequest) Deltas() (userDelta, agentDelta int64) {
	if r.RequestType == CashIn {
		return r.Amount, -r.Amount
	}
	return -r.Amount, r.Amount
}

// Involves reports whether accountID is either party of the request.
func (r TransferRequest) Involves(accountID int64) bool {
	return r.UserAccountID == accountID || r.AgentAccountID == accountID
}
