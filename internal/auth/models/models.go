package models

import (
	"time"

	id "sessiongate/pkg/domain"
)

// Identity is a registered account. PasswordHash never leaves the service.
type Identity struct {
	ID           id.IdentityID `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	CreatedAt    time.Time     `json:"-"`
}

// Status reports backing store liveness for GET /status.
type Status struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

// Stats reports usage counts for GET /stats.
type Stats struct {
	Users int64 `json:"users"`
}
