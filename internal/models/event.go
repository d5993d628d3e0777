package models

import "time"

// EventType names a change to a transaction.
type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
)

// TransactionEvent is published after a transaction write commits.
// Transaction is nil for deletions.
type TransactionEvent struct {
	Type          EventType    `json:"type"`
	TransactionID string       `json:"transactionId"`
	UserID        string       `json:"userId"`
	Transaction   *Transaction `json:"transaction,omitempty"`
	OccurredAt    time.Time    `json:"occurredAt"`
}
