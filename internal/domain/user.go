package domain

import "time"

// Role is the capability class of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAI    Role = "ai"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAI:
		return true
	}
	return false
}

// User is an account able to authenticate against the service.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the view of a user safe to hand to clients.
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Public strips credentials from u.
func (u *User) Public() PublicUser {
	role := u.Role
	if role == "" {
		role = RoleUser
	}
	return PublicUser{ID: u.ID, Email: u.Email, Username: u.Username, Role: role}
}
