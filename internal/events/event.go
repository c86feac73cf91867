// Package events publishes ledger domain events after their transaction commits.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hongminglow/cashjet-be/internal/models"
)

// Event types double as routing keys on the ledger exchange.
const (
	TypeRequestCreated  = "transfer_request.created"
	TypeRequestApproved = "transfer_request.approved"
	TypeRequestRejected = "transfer_request.rejected"
)

// Event is the JSON payload published for every transfer request transition.
type Event struct {
	EventType      string               `json:"eventType"`
	RequestID      uuid.UUID            `json:"requestId"`
	UserAccountID  int64                `json:"userAccountId"`
	AgentAccountID int64                `json:"agentAccountId"`
	RequestType    models.RequestType   `json:"requestType"`
	Amount         int64                `json:"amount"`
	Status         models.RequestStatus `json:"status"`
	OccurredAt     time.Time            `json:"occurredAt"`
}

// NewTransferEvent snapshots request under eventType.
func NewTransferEvent(eventType string, request models.TransferRequest) Event {
	return Event{
		EventType:      eventType,
		RequestID:      request.ID,
		UserAccountID:  request.UserAccountID,
		AgentAccountID: request.AgentAccountID,
		RequestType:    request.RequestType,
		Amount:         request.Amount,
		Status:         request.Status,
		OccurredAt:     time.Now().UTC(),
	}
}

// Publisher is implemented by anything that can deliver ledger events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Noop drops events. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(_ context.Context, event Event) error {
	zap.L().Debug("event publish skipped",
		zap.String("event_type", event.EventType),
		zap.String("request_id", event.RequestID.String()))
	return nil
}

func (Noop) Close() {}
