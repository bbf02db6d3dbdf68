package models

import "time"

const (
	RoleClient = "client"
	RoleHelper = "helper"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Phone        *string   `json:"phone,omitempty"`
	IsActive     bool      `json:"is_active"`
	IsApproved   bool      `json:"is_approved"`
	Credits      int       `json:"credits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Helper capability block, present only for helper accounts.
	Specialties     *[]string `json:"specialties,omitempty"`
	ExperienceYears *int      `json:"experience_years,omitempty"`
	HourlyRate      *float64  `json:"hourly_rate,omitempty"`
	Rating          *float64  `json:"rating,omitempty"`
	TotalSessions   int       `json:"total_sessions"`
	Bio             *string   `json:"bio,omitempty"`
}

// IsHelper reports whether the account carries the helper capability block.
func (u *User) IsHelper() bool {
	return u.Role == RoleHelper
}
