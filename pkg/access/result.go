package access

import (
	"github.com/sysmanager-dev/sysmanager/pkg/session"
)

// User is the authenticated principal. Profile keeps every user field the
// server sent that has no dedicated member.
type User struct {
	SessionToken   string         `json:"sessionToken"`
	OrganizationID string         `json:"organizationId"`
	UserID         string         `json:"userId"`
	Profile        map[string]any `json:"profile,omitempty"`
}

// AuthResult is the uniform outcome of every login strategy
type AuthResult struct {
	Authenticated bool `json:"authenticated"`
	User          User `json:"user"`
}

// Session returns the session to thread into authenticated calls
func (r *AuthResult) Session() session.Session {
	return session.Session{
		Token:          r.User.SessionToken,
		OrganizationID: r.User.OrganizationID,
	}
}

// authReply is the login payload as sent by the server
type authReply struct {
	Auth bool           `json:"auth"`
	User map[string]any `json:"user"`
}

// Wire names accepted for each normalized field, in priority order
var (
	sessionTokenKeys   = []string{"sessionId", "sessionToken", "token"}
	organizationIDKeys = []string{"orgId", "organizationId"}
	userIDKeys         = []string{"_id", "userId", "id"}
)

func (r authReply) normalize() *AuthResult {
	profile := make(map[string]any, len(r.User))
	for k, v := range r.User {
		profile[k] = v
	}

	return &AuthResult{
		Authenticated: r.Auth,
		User: User{
			SessionToken:   takeString(profile, sessionTokenKeys),
			OrganizationID: takeString(profile, organizationIDKeys),
			UserID:         takeString(profile, userIDKeys),
			Profile:        profile,
		},
	}
}

// takeString removes every alias in keys from m and returns the first
// non-empty string among them
func takeString(m map[string]any, keys []string) string {
	var found string
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		delete(m, key)
		if s, isString := v.(string); isString && found == "" {
			found = s
		}
	}
	return found
}
