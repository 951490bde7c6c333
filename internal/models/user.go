package models

import "time"

type UserRole string

const (
	UserRoleManager  UserRole = "manager"
	UserRoleEmployee UserRole = "employee"
)

func (r UserRole) Valid() bool {
	return r == UserRoleManager || r == UserRoleEmployee
}

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusSystem marks synthetic identities such as the chat assistant.
	// They own messages but can never log in.
	UserStatusSystem UserStatus = "system"
)

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	DisplayName  string
	Role         UserRole
	Status       UserStatus
	AvatarRef    *string
	Bio          *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Session struct {
	ID        string
	UserID    string
	TokenHash []byte
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Valid reports whether the session can still authenticate at now.
func (s Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
