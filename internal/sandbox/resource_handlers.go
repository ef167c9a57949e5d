package sandbox

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sysmanager-dev/sysmanager/internal/models"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID             string    `json:"_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	OrganizationID string    `json:"organizationId"`
	Roles          []string  `json:"roles"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
}

func userDetail(u *models.User) UserDetail {
	return UserDetail{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		OrganizationID: u.OrganizationID,
		Roles:          u.RoleList(),
		Active:         u.Active,
		CreatedAt:      u.CreatedAt,
	}
}

func userDetails(users []models.User) []UserDetail {
	out := make([]UserDetail, len(users))
	for i := range users {
		out[i] = userDetail(&users[i])
	}
	return out
}

// paginate applies page and limit query parameters
func paginate(c *gin.Context, query *gorm.DB) *gorm.DB {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}
	limit = min(limit, maxPageLimit)

	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}

	return query.Limit(limit).Offset((page - 1) * limit)
}

// getUser serves /user/me and /user/:id within the caller's organization
func (s *Server) getUser(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	id := c.Param("id")
	if id == "me" {
		id = sessionData.UserID
	}

	var user models.User
	if err := models.FindByID(s.db, id, &user); err != nil {
		s.respondLookupError(c, err, "user not found")
		return
	}

	if user.OrganizationID != sessionData.OrganizationID && !sessionData.IsAdmin {
		respondError(c, s.logger, http.StatusNotFound, errors.New("cross organization read"), "user not found")
		return
	}

	respondData(c, userDetail(&user))
}

func (s *Server) getOrganization(c *gin.Context) {
	org, ok := s.visibleOrganization(c)
	if !ok {
		return
	}
	respondData(c, org)
}

func (s *Server) listMembers(c *gin.Context) {
	org, ok := s.visibleOrganization(c)
	if !ok {
		return
	}

	var users []models.User
	query := s.db.Where("organization_id = ?", org.ID).Order("id")
	if err := paginate(c, query).Find(&users).Error; err != nil {
		respondError(c, s.logger, http.StatusInternalServerError, err, "Internal server error")
		return
	}

	respondData(c, userDetails(users))
}

// visibleOrganization loads :id when the caller belongs to it or is a super user
func (s *Server) visibleOrganization(c *gin.Context) (*models.Organization, bool) {
	sessionData, _ := GetSessionData(c)
	id := c.Param("id")

	if id != sessionData.OrganizationID && !sessionData.IsAdmin {
		respondError(c, s.logger, http.StatusForbidden, errors.New("cross organization read"), "Access denied")
		return nil, false
	}

	var org models.Organization
	if err := models.FindByID(s.db, id, &org); err != nil {
		s.respondLookupError(c, err, "organization not found")
		return nil, false
	}
	return &org, true
}

func (s *Server) adminListUsers(c *gin.Context) {
	query := s.db.Order("id")
	if orgID := c.Query("organizationId"); orgID != "" {
		query = query.Where("organization_id = ?", orgID)
	}
	if email := c.Query("email"); email != "" {
		query = query.Where("email = ?", email)
	}

	var users []models.User
	if err := paginate(c, query).Find(&users).Error; err != nil {
		respondError(c, s.logger, http.StatusInternalServerError, err, "Internal server error")
		return
	}

	respondData(c, userDetails(users))
}

// adminDeactivateUser disables an account and revokes its sessions
func (s *Server) adminDeactivateUser(c *gin.Context) {
	var user models.User
	if err := models.FindByID(s.db, c.Param("id"), &user); err != nil {
		s.respondLookupError(c, err, "user not found")
		return
	}

	now := s.now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Session{}).
			Where("user_id = ? AND revoked_at IS NULL", user.ID).
			Update("revoked_at", &now).Error
	})
	if err != nil {
		respondError(c, s.logger, http.StatusInternalServerError, err, "Failed to deactivate user")
		return
	}

	user.Active = false
	s.logger.Info().Str("user_id", user.ID).Msg("User deactivated")
	respondData(c, userDetail(&user))
}

func (s *Server) adminListOrganizations(c *gin.Context) {
	var orgs []models.Organization
	if err := paginate(c, s.db.Order("id")).Find(&orgs).Error; err != nil {
		respondError(c, s.logger, http.StatusInternalServerError, err, "Internal server error")
		return
	}

	if orgs == nil {
		orgs = []models.Organization{}
	}
	respondData(c, orgs)
}

func (s *Server) respondLookupError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, s.logger, http.StatusNotFound, err, notFound)
		return
	}
	respondError(c, s.logger, http.StatusInternalServerError, err, "Internal server error")
}
