package auth

// SessionData represents the authenticated session context for a request
type SessionData struct {
	SessionID      string `json:"session_id"`
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	IsAdmin        bool   `json:"is_admin"`
	Token          string `json:"-"`
}
