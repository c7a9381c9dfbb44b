// Package models defines service requests and their lifecycle.
package models

import (
	"path/filepath"
	"strings"
	"time"

	id "smartgn/pkg/domain"
)

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusVerified  Status = "VERIFIED"
	StatusDeclined  Status = "DECLINED"
	StatusCompleted Status = "COMPLETED"
)

// transitions lists the ordinary edges of the state machine.
// DECLINED and COMPLETED are terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusVerified, StatusDeclined},
	StatusVerified: {StatusCompleted},
}

// certificateSources are the states a certificate may be attached from.
// Attaching always lands in COMPLETED, including from COMPLETED itself.
var certificateSources = map[Status]bool{
	StatusPending:   true,
	StatusVerified:  true,
	StatusCompleted: true,
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusDeclined, StatusCompleted:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// CanTransitionTo reports whether next is an ordinary edge from s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsCertificate reports whether a certificate can be attached in state s.
func (s Status) AcceptsCertificate() bool {
	return certificateSources[s]
}

// IsTerminal reports whether s has no outgoing ordinary edges.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Request is a citizen's service request assigned to one officer.
type Request struct {
	ID               id.RequestID `json:"id"`
	UserID           id.UserID    `json:"user_id"`
	OfficerID        id.OfficerID `json:"gn_id"`
	RequestType      string       `json:"request_type"`
	Description      string       `json:"description"`
	Status           Status       `json:"status"`
	RequestDate      time.Time    `json:"request_date"`
	VerificationDate *time.Time   `json:"verification_date"`
	CertificateURL   *string      `json:"certificate_url"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (r *Request) Clone() *Request {
	cp := *r
	if r.VerificationDate != nil {
		t := *r.VerificationDate
		cp.VerificationDate = &t
	}
	if r.CertificateURL != nil {
		u := *r.CertificateURL
		cp.CertificateURL = &u
	}
	return &cp
}

// CreateCommand carries the fields a citizen supplies for a new request.
type CreateCommand struct {
	UserID      id.UserID
	OfficerID   id.OfficerID
	RequestType string
	Description string
	RequestDate *time.Time
}

// FileUpload is an uploaded file as received from the client.
type FileUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// allowedCertificateTypes is the media type allow-list for certificates.
var allowedCertificateTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/pdf": true,
}

// IsAllowedCertificateType reports whether contentType may be attached as a certificate.
func IsAllowedCertificateType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return allowedCertificateTypes[strings.ToLower(strings.TrimSpace(mediaType))]
}

// Extension returns the extension of the original file name without the
// dot, or "jpg" when there is none.
func (f FileUpload) Extension() string {
	ext := strings.TrimPrefix(filepath.Ext(f.Filename), ".")
	if ext == "" {
		return "jpg"
	}
	return ext
}

// Receipt describes a stored certificate or supporting document.
type Receipt struct {
	RequestID        id.RequestID `json:"request_id"`
	FileName         string       `json:"file_name"`
	FilePath         string       `json:"file_path"`
	Size             int64        `json:"size"`
	Checksum         string       `json:"checksum"`
	Description      string       `json:"description"`
	OriginalFileName string       `json:"original_file_name,omitempty"`
	Status           Status       `json:"status,omitempty"`
	UploadedAt       time.Time    `json:"uploaded_at"`
}

// CountFilter narrows CountByOfficer. Zero fields match everything.
type CountFilter struct {
	Status       Status
	VerifiedFrom *time.Time
	VerifiedTo   *time.Time
}

// Matches applies the filter to one request.
func (f CountFilter) Matches(r *Request) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.VerifiedFrom != nil && (r.VerificationDate == nil || r.VerificationDate.Before(*f.VerifiedFrom)) {
		return false
	}
	if f.VerifiedTo != nil && (r.VerificationDate == nil || !r.VerificationDate.Before(*f.VerifiedTo)) {
		return false
	}
	return true
}
