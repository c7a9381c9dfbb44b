// Package models defines the two principal collections and their shared credentials.
package models

import (
	"strings"
	"time"

	"smartgn/internal/authz"

	"github.com/google/uuid"
)

// Kind names a principal collection. It is the "type" claim of a session token.
type Kind string

const (
	KindUser           Kind = "user"
	KindVillageOfficer Kind = "village_officer"
)

func (k Kind) String() string { return string(k) }

// Account is the credential part shared by citizens and officers.
// PasswordHash never leaves the process in JSON.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         authz.Role `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Base exposes the shared credential fields of any principal.
func (a *Account) Base() *Account { return a }

// Citizen is an ordinary user.
type Citizen struct {
	Account
	FullName string `json:"full_name,omitempty"`
	NIC      string `json:"nic,omitempty"`
}

// Officer is a village officer (GN), or an administrator stored in the
// officer collection.
type Officer struct {
	Account
	FullName string `json:"full_name,omitempty"`
	District string `json:"district,omitempty"`
	Division string `json:"division,omitempty"`
}

// Principal is satisfied by *Citizen and *Officer.
type Principal interface {
	Base() *Account
}

// RegisterInput carries registration fields for either collection. Fields
// that do not apply to a collection are ignored.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	NIC      string `json:"nic"`
	District string `json:"district"`
	Division string `json:"division"`
}

// Normalize trims every field and lower-cases the email.
func (r *RegisterInput) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.NIC = strings.TrimSpace(r.NIC)
	r.District = strings.TrimSpace(r.District)
	r.Division = strings.TrimSpace(r.Division)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewCitizen builds a citizen from registration input.
func NewCitizen(acc Account, in RegisterInput) *Citizen {
	return &Citizen{Account: acc, FullName: in.FullName, NIC: in.NIC}
}

// NewOfficer builds an officer from registration input.
func NewOfficer(acc Account, in RegisterInput) *Officer {
	return &Officer{Account: acc, FullName: in.FullName, District: in.District, Division: in.Division}
}
