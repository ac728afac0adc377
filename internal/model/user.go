package model

import (
	"strings"
	"time"
)

// Role of a user within the workspace
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Theme preference
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// User represents a workspace member
type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Avatar     string     `json:"avatar,omitempty"`
	Role       Role       `json:"role"`
	Theme      Theme      `json:"theme,omitempty"`
	HourlyRate *float64   `json:"hourlyRate,omitempty"`
	TeamID     string     `json:"teamId,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// InvitationStatus tracks an invitation through its lifecycle
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// InvitationTTL is how long an invitation stays valid when no expiry is given
const InvitationTTL = 7 * 24 * time.Hour

// Invitation asks someone to join a team or project
type Invitation struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name,omitempty"`
	TeamID    string           `json:"teamId,omitempty"`
	ProjectID string           `json:"projectId,omitempty"`
	Role      Role             `json:"role"`
	Status    InvitationStatus `json:"status"`
	InvitedBy string           `json:"invitedBy"`
	InvitedAt time.Time        `json:"invitedAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Token     string           `json:"token"`
}

// Expired reports whether the invitation can no longer be used. The expiry
// time wins over whatever status is stored.
func (i Invitation) Expired(now time.Time) bool {
	if i.Status == InvitationExpired {
		return true
	}
	return !now.Before(i.ExpiresAt)
}

// Acceptable reports whether the invitation is pending and unexpired
func (i Invitation) Acceptable(now time.Time) bool {
	return i.Status == InvitationPending && !i.Expired(now)
}

// InviteeName is the display name for the user created on acceptance
func (i Invitation) InviteeName() string {
	if i.Name != "" {
		return i.Name
	}
	local, _, _ := strings.Cut(i.Email, "@")
	return local
}
