package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a pending integration event, written in the same transaction as
// the state change it describes and published asynchronously.
type Entry struct {
	ID            uuid.UUID
	AggregateType string // "request"
	AggregateID   string
	EventType     string // "request.created", "request.verified", ...
	Payload       []byte // JSON
	CreatedAt     time.Time
	ProcessedAt   *time.Time // nil while pending
}

// IsPending returns true if this entry has not been published yet.
func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

// NewEntry creates an entry with a fresh id.
func NewEntry(aggregateType, aggregateID, eventType string, payload []byte, createdAt time.Time) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     createdAt,
	}
}
