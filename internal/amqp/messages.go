package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// EventTransactionCreated is published after a transaction is stored.
const EventTransactionCreated = "transaction.created"

// TransactionEvent is deliberately thin: consumers load the transaction
// from storage by ID rather than trusting a copy on the wire.
type TransactionEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionCreated(transactionID, userID string) TransactionEvent {
	return TransactionEvent{
		Type:          EventTransactionCreated,
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
	}
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return TransactionEvent{}, err
	}
	if e.Type == "" || e.TransactionID == "" {
		return TransactionEvent{}, errors.New("event missing type or transaction id")
	}
	return e, nil
}
