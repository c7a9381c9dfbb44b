// Package models defines citizen profiles.
package models

import (
	"strings"
	"time"

	id "smartgn/pkg/domain"
	"smartgn/pkg/validation"
)

// Profile is the contact and identity information a citizen keeps on file.
type Profile struct {
	UserID    id.UserID  `json:"userId"`
	FullName  string     `json:"fullName"`
	Address   string     `json:"address"`
	NIC       string     `json:"nic"`
	Email     string     `json:"email"`
	Telephone string     `json:"telephone"`
	District  string     `json:"district"`
	Division  string     `json:"division"`
	Birthday  *time.Time `json:"birthday"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Input is the body of PUT /profile. Birthday is RFC 3339 or YYYY-MM-DD.
type Input struct {
	FullName  string `json:"fullName" validate:"max=200"`
	Address   string `json:"address" validate:"max=500"`
	NIC       string `json:"nic" validate:"omitempty,nic"`
	Email     string `json:"email" validate:"omitempty,email"`
	Telephone string `json:"telephone" validate:"max=30"`
	District  string `json:"district" validate:"max=100"`
	Division  string `json:"division" validate:"max=100"`
	Birthday  string `json:"birthday"`
}

func (in *Input) Normalize() {
	for _, f := range []*string{&in.FullName, &in.Address, &in.NIC, &in.Email, &in.Telephone, &in.District, &in.Division, &in.Birthday} {
		*f = strings.TrimSpace(*f)
	}
	in.NIC = strings.ToUpper(in.NIC)
	in.Email = strings.ToLower(in.Email)
}

func (in *Input) Validate() error {
	return validation.Validate(in)
}
