package events

import (
	"encoding/json"
	"time"
)

const (
	ActionRecorded = "recorded"
	ActionDeleted  = "deleted"
)

// TransactionEvent notifies downstream consumers (the Sheets backup
// worker) that a ledger write happened. It carries ids only; consumers
// fetch the full record from the store.
type TransactionEvent struct {
	OwnerID       string    `json:"owner_id"`
	TransactionID string    `json:"transaction_id"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(ownerID, transactionID, action string) *TransactionEvent {
	return &TransactionEvent{
		OwnerID:       ownerID,
		TransactionID: transactionID,
		Action:        action,
		Timestamp:     time.Now().UTC(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
