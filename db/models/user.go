package models

import "time"

// User is a relational record looked up by wallet when a conversation is
// created with a walletId.
type User struct {
	ID        string    `json:"id"`
	Wallet    string    `json:"wallet"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
