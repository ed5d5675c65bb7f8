package types

import "time"

// Role is the coarse access level stored on a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Authority is the granted-authority name carried by a principal, e.g. ROLE_USER.
func (r Role) Authority() string {
	return "ROLE_" + string(r)
}

// User represents the core user entity in the domain.
type User struct {
	ID    int64  `json:"id" example:"1"`
	Name  string `json:"name" example:"John Doe"`
	Email string `json:"email" example:"john@example.com"` // unique, lowercased
	// PasswordHash is the bcrypt hash and is never serialised.
	PasswordHash string    `json:"-"`
	PhoneNumber  string    `json:"phoneNumber" example:"1234567890"`
	Role         Role      `json:"role" example:"USER"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserResponse is the public view of a user returned by /api/users/me.
type UserResponse struct {
	ID          int64  `json:"id" example:"1"`
	Name        string `json:"name" example:"John Doe"`
	Email       string `json:"email" example:"john@example.com"`
	PhoneNumber string `json:"phoneNumber" example:"1234567890"`
	Role        Role   `json:"role" example:"USER"`
}

// ToResponse strips the fields that must never leave the server.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
	}
}

// Principal is the authenticated identity attached to a single request.
type Principal struct {
	User        *User
	Authorities []string
}

// NewPrincipal builds the principal for u with its role as the only authority.
func NewPrincipal(u *User) *Principal {
	return &Principal{
		User:        u,
		Authorities: []string{u.Role.Authority()},
	}
}

// HasAuthority reports whether the principal was granted authority.
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}
