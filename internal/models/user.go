package models

import "time"

// UserRole enumerates the application roles.
type UserRole string

const (
	RoleStudent          UserRole = "student"
	RoleSupervisor       UserRole = "supervisor"
	RoleLevelCoordinator UserRole = "level_coordinator"
	RoleHOD              UserRole = "hod"
	RoleAdmin            UserRole = "admin"
)

// User represents an account in any role. Level is set for students and
// coordinators, RegistrationNumber for students only.
type User struct {
	ID                 string     `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	FullName           string     `db:"full_name" json:"full_name"`
	Role               UserRole   `db:"role" json:"role"`
	Department         string     `db:"department" json:"department"`
	Level              *string    `db:"level" json:"level,omitempty"`
	RegistrationNumber *string    `db:"registration_number" json:"registration_number,omitempty"`
	Active             bool       `db:"is_active" json:"is_active"`
	LastLogin          *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role       *UserRole
	Department string
	Level      string
	Active     *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Pagination describes list pagination metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
