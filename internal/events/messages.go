package events

import (
	"encoding/json"
	"time"
)

// Op is the kind of document change an event describes.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent announces that a document in a user's collection changed.
// Consumers re-deliver the affected user's snapshot; the event carries no
// document body, only enough to know whose view is stale.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	UserID     string    `json:"userId"`
	Op         Op        `json:"op"`
	DocID      string    `json:"docId"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewChangeEvent(collection, userID string, op Op, docID string) *ChangeEvent {
	return &ChangeEvent{
		Collection: collection,
		UserID:     userID,
		Op:         op,
		DocID:      docID,
		Timestamp:  time.Now(),
	}
}

func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
