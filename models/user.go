package models

import "time"

type UserRole string

const (
	RoleDancer UserRole = "dancer"
	RoleStaff  UserRole = "staff"
	RoleAdmin  UserRole = "admin"
)

// User представляет аккаунт: танцора, судью-стаффа или администратора.
type User struct {
	ID           int       `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Nickname     *string   `json:"nickname,omitempty" db:"nickname"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
