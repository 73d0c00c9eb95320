package entities

import (
	"strings"
	"time"

	pkgerrors "dome-backend/pkg/errors"

	"github.com/google/uuid"
)

// User is an account that owns todo lists
type User struct {
	id           string
	email        string
	passwordHash string
	name         string
	photoURL     string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUser creates a new user. The password must already be hashed.
func NewUser(email, passwordHash, name, photoURL string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.NewValidationError("valid email required")
	}
	if passwordHash == "" {
		return nil, pkgerrors.NewValidationError("password hash required")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("name required")
	}

	now := time.Now()
	return &User{
		id:           uuid.New().String(),
		email:        email,
		passwordHash: passwordHash,
		name:         name,
		photoURL:     photoURL,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructUser rebuilds a user from persisted state
func ReconstructUser(id, email, passwordHash, name, photoURL string, createdAt, updatedAt time.Time) *User {
	return &User{
		id:           id,
		email:        email,
		passwordHash: passwordHash,
		name:         name,
		photoURL:     photoURL,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the user identifier
func (u *User) ID() string { return u.id }

// Email returns the user's email address
func (u *User) Email() string { return u.email }

// PasswordHash returns the stored bcrypt hash
func (u *User) PasswordHash() string { return u.passwordHash }

// Name returns the display name
func (u *User) Name() string { return u.name }

// PhotoURL returns the profile photo URL, if any
func (u *User) PhotoURL() string { return u.photoURL }

// CreatedAt returns the creation timestamp
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns the last modification timestamp
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// UpdateProfile changes mutable profile fields. Empty values are ignored.
func (u *User) UpdateProfile(name, photoURL string) {
	if name = strings.TrimSpace(name); name != "" {
		u.name = name
	}
	if photoURL != "" {
		u.photoURL = photoURL
	}
	u.updatedAt = time.Now()
}

// ChangePassword replaces the stored password hash
func (u *User) ChangePassword(passwordHash string) error {
	if passwordHash == "" {
		return pkgerrors.NewValidationError("password hash required")
	}
	u.passwordHash = passwordHash
	u.updatedAt = time.Now()
	return nil
}
