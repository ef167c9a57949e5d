package sandbox

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sysmanager-dev/sysmanager/internal/auth"
	"github.com/sysmanager-dev/sysmanager/internal/models"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrSessionInactive   = errors.New("session expired or revoked")
	ErrUserInactive      = errors.New("user not found or deactivated")
)

const sessionKey = "session"

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set(sessionKey, sessionData)
}

// GetSessionData returns the session attached by SessionAuthMiddleware
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

// extractToken reads the raw session token. The System Manager sends it
// without a scheme; a Bearer prefix is tolerated.
func extractToken(authHeader string) (string, error) {
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", ErrMissingAuthHeader
	}
	return token, nil
}

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func respondError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.AbortWithStatusJSON(statusCode, gin.H{"message": message})
}

// resolveSession validates token and returns its stored session and user
func resolveSession(db *gorm.DB, issuer *auth.Issuer, token string, now time.Time) (*auth.SessionData, error) {
	claims, err := issuer.Validate(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	var stored models.Session
	if err := models.FindByID(db, claims.ID, &stored); err != nil {
		return nil, errors.Join(ErrSessionInactive, err)
	}
	if !stored.Active(now) {
		return nil, ErrSessionInactive
	}

	var user models.User
	if err := models.FindByID(db, claims.UserID, &user); err != nil || !user.Active {
		return nil, ErrUserInactive
	}

	return &auth.SessionData{
		SessionID:      stored.ID,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		IsAdmin:        user.IsAdmin,
		Token:          token,
	}, nil
}

// SessionAuthMiddleware authenticates the raw session token in Authorization
func SessionAuthMiddleware(db *gorm.DB, issuer *auth.Issuer, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c.GetHeader("Authorization"))
		if err != nil {
			respondError(c, log, http.StatusUnauthorized, err, "Missing session token")
			return
		}

		sessionData, err := resolveSession(db, issuer, token, time.Now())
		if err != nil {
			respondError(c, log, http.StatusUnauthorized, err, "Invalid or expired session")
			return
		}

		setSession(c, sessionData)
		c.Next()
	}
}

// AdminOnlyMiddleware ensures the authenticated user is a super user
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondError(c, log, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}

		if !sessionData.IsAdmin {
			respondError(c, log, http.StatusForbidden, errors.New("not admin"), "Admin access required")
			return
		}

		c.Next()
	}
}
