package auth

import "time"

// CurrentUser is the authenticated caller as seen by handlers: the token
// identity merged with the stored profile.
type CurrentUser struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	ProfilePicture *string   `json:"profile_picture"`
	AuthProvider   string    `json:"auth_provider"`
	IsVerified     bool      `json:"is_verified"`
	CreatedAt      time.Time `json:"created_at"`
}
