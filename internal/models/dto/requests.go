package dto

import "github.com/hongminglow/cashjet-be/internal/models"

// CreateRequest is the body of POST /requests. UserID is optional; when present
// it must name the caller's own account.
type CreateRequest struct {
	UserID      int64  `json:"userId,omitempty"`
	AgentEmail  string `json:"agentEmail"`
	Amount      int64  `json:"amount"`
	RequestType string `json:"requestType"`
}

type CreateResponse struct {
	ID string `json:"id"`
}

// ResolveResponse is returned by approve and reject. Balances are only set on approval.
type ResolveResponse struct {
	Request      models.TransferRequest `json:"request"`
	UserBalance  *int64                 `json:"userBalance,omitempty"`
	AgentBalance *int64                 `json:"agentBalance,omitempty"`
}
