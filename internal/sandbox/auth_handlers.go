package sandbox

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sysmanager-dev/sysmanager/internal/auth"
	"github.com/sysmanager-dev/sysmanager/internal/models"
)

const (
	logoutOK    = "OK"
	logoutNotOK = "NOT_OK"
)

// APIKeyLoginRequest represents an API key login
type APIKeyLoginRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

// PasswordLoginRequest represents a username/password login
type PasswordLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SocialLoginRequest represents a facebook/google token passthrough. The
// sandbox treats the access token as the identity's email address.
type SocialLoginRequest struct {
	AccessToken  string   `json:"accessToken" binding:"required"`
	InitialRoles []string `json:"initialRoles"`
}

// loginUser is the user object of a login reply
type loginUser struct {
	SessionID      string   `json:"sessionId"`
	OrganizationID string   `json:"orgId"`
	ID             string   `json:"_id"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	Roles          []string `json:"roles"`
}

type loginReply struct {
	Auth bool      `json:"auth"`
	User loginUser `json:"user"`
}

// sessionInfo is the GET /session reply
type sessionInfo struct {
	Token          string    `json:"token"`
	UserID         string    `json:"userId"`
	OrganizationID string    `json:"organizationId"`
	Active         bool      `json:"active"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (s *Server) loginPassword(c *gin.Context) {
	s.passwordLogin(c, "")
}

// loginBySlug serves /login/api, the social providers and organization
// scoped password logins, which share one path segment
func (s *Server) loginBySlug(c *gin.Context) {
	switch slug := c.Param("slug"); slug {
	case "api":
		s.apiKeyLogin(c)
	case "facebook", "google":
		s.socialLogin(c, slug)
	default:
		s.passwordLogin(c, slug)
	}
}

func (s *Server) apiKeyLogin(c *gin.Context) {
	var req APIKeyLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, s.logger, http.StatusBadRequest, err, "apiKey is required")
		return
	}

	var key models.APIKey
	if err := s.db.Preload("User").Where("key_hash = ?", auth.HashAPIKey(req.APIKey)).First(&key).Error; err != nil {
		respondError(c, s.logger, http.StatusUnauthorized, err, "invalid key")
		return
	}

	if key.User == nil || !key.User.Active {
		respondError(c, s.logger, http.StatusUnauthorized, ErrUserInactive, "invalid key")
		return
	}

	s.completeLogin(c, key.User)
}

func (s *Server) passwordLogin(c *gin.Context, orgSlug string) {
	var req PasswordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, s.logger, http.StatusBadRequest, err, "username and password are required")
		return
	}

	query := s.db.Where("email = ?", req.Username)
	if orgSlug != "" {
		var org models.Organization
		if err := s.db.Where("slug = ?", orgSlug).First(&org).Error; err != nil {
			respondError(c, s.logger, http.StatusNotFound, err, "organization not found")
			return
		}
		query = query.Where("organization_id = ?", org.ID)
	}

	var user models.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, s.logger, http.StatusUnauthorized, err, "Invalid username or password")
			return
		}
		respondError(c, s.logger, http.StatusInternalServerError, err, "Internal server error")
		return
	}

	if !user.Active || auth.VerifyPassword(req.Password, user.PasswordHash) != nil {
		respondError(c, s.logger, http.StatusUnauthorized, errors.New("password mismatch"), "Invalid username or password")
		return
	}

	s.completeLogin(c, &user)
}

func (s *Server) socialLogin(c *gin.Context, provider string) {
	var req SocialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, s.logger, http.StatusBadRequest, err, "accessToken is required")
		return
	}

	if err := s.validator.Var(req.AccessToken, "email"); err != nil {
		respondError(c, s.logger, http.StatusUnauthorized, err, "invalid access token")
		return
	}

	var user models.User
	err := s.db.Where("email = ?", req.AccessToken).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		org, orgErr := s.defaultOrganization()
		if orgErr != nil {
			respondError(c, s.logger, http.StatusInternalServerError, orgErr, "Internal server error")
			return
		}

		created, createErr := s.CreateUser(NewUser{
			OrganizationID: org.ID,
			Email:          req.AccessToken,
			Roles:          req.InitialRoles,
		})
		if createErr != nil {
			respondError(c, s.logger, http.StatusInternalServerError, createErr, "Failed to create user")
			return
		}
		s.logger.Info().Str("user_id", created.ID).Str("provider", provider).Msg("Social user signed up")
		user = *created
	case err != nil:
		respondError(c, s.logger, http.StatusInternalServerError, err, "Internal server error")
		return
	}

	if !user.Active {
		respondError(c, s.logger, http.StatusUnauthorized, ErrUserInactive, "invalid access token")
		return
	}

	s.completeLogin(c, &user)
}

// completeLogin issues a session token for user and writes the login reply
func (s *Server) completeLogin(c *gin.Context, user *models.User) {
	token, claims, err := s.issuer.Generate(user.ID, user.OrganizationID, user.IsAdmin)
	if err != nil {
		respondError(c, s.logger, http.StatusInternalServerError, err, "Failed to generate token")
		return
	}

	stored := &models.Session{
		BaseModel:      models.BaseModel{ID: claims.ID},
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		ExpiresAt:      claims.ExpiresAt.Time,
	}
	if err := s.db.Create(stored).Error; err != nil {
		respondError(c, s.logger, http.StatusInternalServerError, err, "Failed to store session")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("organization_id", user.OrganizationID).Msg("User logged in")

	respondData(c, loginReply{
		Auth: true,
		User: loginUser{
			SessionID:      token,
			OrganizationID: user.OrganizationID,
			ID:             user.ID,
			Email:          user.Email,
			Name:           user.Name,
			Roles:          user.RoleList(),
		},
	})
}

// logout revokes the session in Authorization. Unknown or already revoked
// sessions get NOT_OK rather than an error status.
func (s *Server) logout(c *gin.Context) {
	token, err := extractToken(c.GetHeader("Authorization"))
	if err != nil {
		respondError(c, s.logger, http.StatusUnauthorized, err, "Missing session token")
		return
	}

	sessionData, err := resolveSession(s.db, s.issuer, token, s.now())
	if err != nil {
		s.logger.Debug().Err(err).Msg("Logout for inactive session")
		respondData(c, gin.H{"response": logoutNotOK})
		return
	}

	now := s.now()
	if err := s.db.Model(&models.Session{}).Where("id = ?", sessionData.SessionID).Update("revoked_at", &now).Error; err != nil {
		respondError(c, s.logger, http.StatusInternalServerError, err, "Failed to revoke session")
		return
	}

	s.logger.Info().Str("user_id", sessionData.UserID).Msg("User logged out")
	respondData(c, gin.H{"response": logoutOK})
}

func (s *Server) getSession(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondError(c, s.logger, http.StatusBadRequest, ErrMissingAuthHeader, "token is required")
		return
	}

	claims, err := s.issuer.Validate(token)
	if err != nil {
		respondError(c, s.logger, http.StatusNotFound, err, "session not found")
		return
	}

	var stored models.Session
	if err := models.FindByID(s.db, claims.ID, &stored); err != nil {
		respondError(c, s.logger, http.StatusNotFound, err, "session not found")
		return
	}

	respondData(c, sessionInfo{
		Token:          token,
		UserID:         stored.UserID,
		OrganizationID: stored.OrganizationID,
		Active:         stored.Active(s.now()),
		ExpiresAt:      stored.ExpiresAt,
	})
}
