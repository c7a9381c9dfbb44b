// Package models defines the catalog of service types citizens can request.
package models

import (
	"time"

	id "smartgn/pkg/domain"
)

// ServiceType is one entry in the catalog. Name is unique.
type ServiceType struct {
	ID          id.ServiceTypeID `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	IsActive    bool             `json:"isActive"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// CreateInput is the body of POST /service-types.
type CreateInput struct {
	Name        string `json:"name" validate:"notblank,max=120"`
	Description string `json:"description" validate:"max=1000"`
	IsActive    *bool  `json:"isActive"`
}
