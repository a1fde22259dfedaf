package models

import "time"

// User is the local projection of an identity, used for capability checks.
type User struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}
