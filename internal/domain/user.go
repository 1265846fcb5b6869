package domain

import "time"

// Role is the single role claim carried by a user's token.
type Role string

const (
	RoleCustomer    Role = "CUSTOMER"
	RoleBankManager Role = "BANK_MANAGER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleBankManager:
		return true
	}
	return false
}

// User is a registered customer or bank manager.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
