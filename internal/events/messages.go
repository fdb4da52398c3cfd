package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const TypeTransactionCreated = "transaction.created"

// Event is the wire message published after a transaction is stored.
// Consumers reload the transaction from the database by id.
type Event struct {
	Type          string    `json:"type"`
	UserID        string    `json:"user_id"`
	TransactionID int64     `json:"transaction_id"`
	IsRecurring   bool      `json:"is_recurring"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionCreated builds a transaction.created event stamped now.
func NewTransactionCreated(userID string, transactionID int64, isRecurring bool) *Event {
	return &Event{
		Type:          TypeTransactionCreated,
		UserID:        userID,
		TransactionID: transactionID,
		IsRecurring:   isRecurring,
		Timestamp:     time.Now().UTC(),
	}
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" || e.UserID == "" {
		return nil, fmt.Errorf("event missing type or user_id")
	}
	return &e, nil
}
