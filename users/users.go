package users

import (
	"fmt"
	"strings"
	"time"

	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Role is the authorization level of an identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           string    `json:"id,omitempty"`          // Unique identifier for the user
	Email        string    `json:"email,omitempty"`       // User's email address, stored lower case
	Username     string    `json:"username,omitempty"`    // Display name
	PasswordHash string    `json:"-"`                     // Hashed version of the user's password - never serialize
	Role         Role      `json:"role,omitempty"`        // user or admin
	IsActive     bool      `json:"is_active"`             // False once an administrator blocks the account
	IsDeleted    bool      `json:"is_deleted"`            // Soft delete marker
	DateJoined   time.Time `json:"date_joined,omitempty"` // Date and time when the user registered
	LastLogin    time.Time `json:"last_login,omitempty"`  // Last time the user logged in
}

// Summary is the public view of an identity returned to clients.
type Summary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (u *User) Summary() Summary {
	return Summary{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasRole reports whether the user satisfies the required role. Admins
// satisfy every role; an empty requirement is always satisfied.
func (u *User) HasRole(required Role) bool {
	if required == "" || u.Role == required {
		return true
	}
	return u.IsAdmin()
}

// CheckPassword compares password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// NewUser builds an active user with a hashed password. The ID is assigned by
// the repository.
func NewUser(email, username, password string, role Role) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = RoleUser
	}
	return &User{
		Email:        NormalizeEmail(email),
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		DateJoined:   time.Now().UTC(),
	}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
