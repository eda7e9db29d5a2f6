package models

import (
	"strconv"
	"strings"
	"time"
)

// Unprovided is what an optional profile field renders as when the provider left it empty.
const Unprovided = "—"

// Session is the durable proof that a user is authenticated.
type Session struct {
	Token string

	// IssuedAt and ExpiresAt are provider-dependent and used for messaging only.
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != ""
}

// UserProfile represents the authenticated user as reported by the identity provider
type UserProfile struct {
	ID             string `json:"id"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"displayName,omitempty"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	ContactEmail   string `json:"contactEmail,omitempty"`
	Bio            string `json:"bio,omitempty"`
	Affiliation    string `json:"affiliation,omitempty"`
	Location       string `json:"location,omitempty"`
	ProfileURL     string `json:"profileUrl,omitempty"`
	FollowerCount  *int   `json:"followerCount,omitempty"`
	FollowingCount *int   `json:"followingCount,omitempty"`
}

// Valid reports whether the required identity fields are present.
func (p *UserProfile) Valid() bool {
	return p != nil && strings.TrimSpace(p.ID) != "" && strings.TrimSpace(p.Handle) != ""
}

// Field returns a display value for an optional field, degrading to Unprovided.
func Field(v string) string {
	if strings.TrimSpace(v) == "" {
		return Unprovided
	}
	return v
}

// Count returns a display value for an optional counter.
func Count(v *int) string {
	if v == nil {
		return Unprovided
	}
	return strconv.Itoa(*v)
}

// Name prefers the display name and falls back to the handle.
func (p *UserProfile) Name() string {
	if p == nil {
		return Unprovided
	}
	if strings.TrimSpace(p.DisplayName) != "" {
		return p.DisplayName
	}
	return p.Handle
}

// Repository is a single entry of the dashboard's repository list.
type Repository struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Private     bool      `json:"private"`
	Stars       int       `json:"stargazers_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}
