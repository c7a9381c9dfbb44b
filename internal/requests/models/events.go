package models

import (
	"encoding/json"
	"time"

	"smartgn/pkg/platform/outbox"
)

// AggregateType tags outbox entries written for requests.
const AggregateType = "request"

// Event types published for request lifecycle changes.
const (
	EventCreated             = "request.created"
	EventVerified            = "request.verified"
	EventDeclined            = "request.declined"
	EventCertificateAttached = "request.certificate_attached"
	EventCompleted           = "request.completed"
)

// Event is the JSON payload of a lifecycle outbox entry.
type Event struct {
	Type             string     `json:"type"`
	RequestID        string     `json:"request_id"`
	UserID           string     `json:"user_id"`
	OfficerID        string     `json:"gn_id"`
	RequestType      string     `json:"request_type"`
	Status           Status     `json:"status"`
	VerificationDate *time.Time `json:"verification_date,omitempty"`
	CertificateURL   *string    `json:"certificate_url,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// NewOutboxEntry captures r's current state as an outbox entry.
func NewOutboxEntry(eventType string, r *Request, at time.Time) (*outbox.Entry, error) {
	payload, err := json.Marshal(Event{
		Type:             eventType,
		RequestID:        r.ID.String(),
		UserID:           r.UserID.String(),
		OfficerID:        r.OfficerID.String(),
		RequestType:      r.RequestType,
		Status:           r.Status,
		VerificationDate: r.VerificationDate,
		CertificateURL:   r.CertificateURL,
		OccurredAt:       at,
	})
	if err != nil {
		return nil, err
	}
	return outbox.NewEntry(AggregateType, r.ID.String(), eventType, payload, at), nil
}
