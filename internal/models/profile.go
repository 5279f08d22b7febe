package models

// UnknownUsername is shown for ids the identity directory cannot resolve.
const UnknownUsername = "unknown user"

// Profile holds the identity directory fields exposed alongside conversations.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Email    string `json:"email,omitempty"`
}

// PlaceholderProfile stands in for a user the directory does not know.
func PlaceholderProfile(userID string) Profile {
	return Profile{ID: userID, Username: UnknownUsername}
}
