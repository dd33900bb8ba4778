package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/auth"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone,omitempty"`
	Role      auth.Role `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileUpdate carries the self-service profile fields. Nil fields are left
// untouched; an empty phone clears it.
type ProfileUpdate struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
}

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)

// ApplyProfile validates p and copies it onto u. u is unchanged on error.
func (u *User) ApplyProfile(p ProfileUpdate) error {
	next := *u
	if p.FirstName != nil {
		next.FirstName = strings.TrimSpace(*p.FirstName)
		if next.FirstName == "" {
			return apperr.Validation("First name is required")
		}
	}
	if p.LastName != nil {
		next.LastName = strings.TrimSpace(*p.LastName)
		if next.LastName == "" {
			return apperr.Validation("Last name is required")
		}
	}
	if p.Phone != nil {
		next.Phone = strings.TrimSpace(*p.Phone)
		if next.Phone != "" && !phonePattern.MatchString(next.Phone) {
			return apperr.Validation("Please provide a valid phone number (10-15 digits)")
		}
	}
	*u = next
	return nil
}
