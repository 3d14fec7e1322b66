package model

import "time"

// User is a registered identity. The password hash never leaves the backend.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserProfile extends a User with free-form fields. A profile is created
// lazily on first access and is never deleted by the backend.
type UserProfile struct {
	UserID      string    `json:"user_id"`
	Bio         string    `json:"bio"`
	Institution string    `json:"institution"`
	CreatedAt   time.Time `json:"created_at"`
}
