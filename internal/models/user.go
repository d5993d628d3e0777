package models

import "time"

// User represents a user in the system
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not serialized
	Transactions []string  `json:"transactions"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasTransaction reports whether id is in the user's linkage list.
func (u *User) HasTransaction(id string) bool {
	for _, tid := range u.Transactions {
		if tid == id {
			return true
		}
	}
	return false
}

// ReconcileReport counts the linkage repairs made by one reconciliation pass.
type ReconcileReport struct {
	Relinked int `json:"relinked"` // transactions appended to their owner's list
	Unlinked int `json:"unlinked"` // list entries dropped
}
