// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "smartgn/pkg/domain-errors"
)

// Distinct ID types: the compiler rejects an OfficerID where a UserID is expected.
type (
	UserID        uuid.UUID
	OfficerID     uuid.UUID
	RequestID     uuid.UUID
	ServiceTypeID uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, token claims).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseOfficerID(s string) (OfficerID, error) {
	id, err := parseUUID(s, "officer ID")
	return OfficerID(id), err
}

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseUUID(s, "request ID")
	return RequestID(id), err
}

func ParseServiceTypeID(s string) (ServiceTypeID, error) {
	id, err := parseUUID(s, "service type ID")
	return ServiceTypeID(id), err
}

func NewUserID() UserID               { return UserID(uuid.New()) }
func NewOfficerID() OfficerID         { return OfficerID(uuid.New()) }
func NewRequestID() RequestID         { return RequestID(uuid.New()) }
func NewServiceTypeID() ServiceTypeID { return ServiceTypeID(uuid.New()) }

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id OfficerID) String() string     { return uuid.UUID(id).String() }
func (id RequestID) String() string     { return uuid.UUID(id).String() }
func (id ServiceTypeID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id OfficerID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ServiceTypeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets the ids travel as plain UUID strings in JSON bodies.
func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id OfficerID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id RequestID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ServiceTypeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	*id = parsed
	return err
}

func (id *OfficerID) UnmarshalText(b []byte) error {
	parsed, err := ParseOfficerID(string(b))
	*id = parsed
	return err
}

func (id *RequestID) UnmarshalText(b []byte) error {
	parsed, err := ParseRequestID(string(b))
	*id = parsed
	return err
}

func (id *ServiceTypeID) UnmarshalText(b []byte) error {
	parsed, err := ParseServiceTypeID(string(b))
	*id = parsed
	return err
}

// parseUUID rejects empty, malformed and nil UUIDs.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
