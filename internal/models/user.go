package models

import (
	"encoding/json"
	"strings"
)

// UserRole classifies users for head counts and check-in eligibility.
type UserRole string

const (
	RoleTutor   UserRole = "tutor"
	RoleStudent UserRole = "student"
	RoleOther   UserRole = "other"
)

// ParseUserRole normalises store role labels. Spanish student labels map to RoleStudent and
// anything unknown (profesor, admin, ...) to RoleOther.
func ParseUserRole(raw string) UserRole {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tutor":
		return RoleTutor
	case "student", "estudiante":
		return RoleStudent
	default:
		return RoleOther
	}
}

// UnmarshalJSON normalises role labels coming from the collection store.
func (r *UserRole) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ParseUserRole(raw)
	return nil
}

// CanCheckIn reports whether the role may record attendance.
func (r UserRole) CanCheckIn() bool {
	return r == RoleTutor || r == RoleStudent
}

// User is owned by the external store and read-only here.
type User struct {
	ID          ID       `db:"id" json:"id"`
	Role        UserRole `db:"role" json:"role"`
	FullName    string   `db:"full_name" json:"fullName"`
	Career      string   `db:"career" json:"career"`
	StudentCode string   `db:"student_code" json:"studentCode,omitempty"`
	Phone       string   `db:"phone" json:"phone,omitempty"`
	Email       string   `db:"email" json:"email,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
