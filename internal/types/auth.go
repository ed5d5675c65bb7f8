package types

// RegisterRequest represents the expected JSON body for user registration.
type RegisterRequest struct {
	Name  string `json:"name" validate:"required,notblank,min=2,max=100" example:"John Doe"`
	Email string `json:"email" validate:"required,notblank,email,max=255" example:"john@example.com"`
	// bcrypt only reads the first 72 bytes of a password.
	Password    string `json:"password" validate:"required,notblank,min=6,max=72" example:"password123"`
	PhoneNumber string `json:"phoneNumber" validate:"max=32" example:"1234567890"`
}

// LoginRequest represents the expected JSON body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,notblank,email,max=255" example:"john@example.com"`
	Password string `json:"password" validate:"required,notblank,max=72" example:"password123"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	Token   string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Type    string `json:"type" example:"Bearer"`
	UserID  int64  `json:"userId" example:"1"`
	Name    string `json:"name" example:"John Doe"`
	Email   string `json:"email" example:"john@example.com"`
	Role    Role   `json:"role" example:"USER"`
	Message string `json:"message" example:"Login successful"`
}

// ErrorResponse is the JSON envelope for every non-2xx answer.
type ErrorResponse struct {
	Message string       `json:"message" example:"Invalid email or password"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field" example:"email"`
	Message string `json:"message" example:"must be a valid email address"`
}
