package sandbox

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sysmanager-dev/sysmanager/internal/auth"
	"github.com/sysmanager-dev/sysmanager/internal/models"
)

const (
	// DefaultOrganizationSlug receives seeded and social signups
	DefaultOrganizationSlug = "sandbox"

	DefaultAdminEmail    = "admin@sandbox.local"
	DefaultAdminPassword = "sandbox-password"
)

// NewUser holds the fields of CreateUser. An empty Password leaves the
// account usable only through API keys and social logins.
type NewUser struct {
	OrganizationID string `validate:"required"`
	Email          string `validate:"required,email"`
	Password       string
	Name           string
	Roles          []string
	IsAdmin        bool
}

// SeedOptions configures Seed
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string

	// APIKey is granted to the admin. A random key is generated when empty.
	APIKey string
}

// SeedResult reports what Seed created or found
type SeedResult struct {
	Organization *models.Organization
	Admin        *models.User

	// APIKey is set only when Seed created a key
	APIKey string
}

// CreateOrganization stores a new organization
func (s *Server) CreateOrganization(name, slug string) (*models.Organization, error) {
	org := &models.Organization{Name: name, Slug: slug}
	if err := s.db.Create(org).Error; err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

// CreateUser stores a new user, hashing the password when one is given
func (s *Server) CreateUser(in NewUser) (*models.User, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	user := &models.User{
		OrganizationID: in.OrganizationID,
		Email:          in.Email,
		Name:           in.Name,
		IsAdmin:        in.IsAdmin,
		Active:         true,
	}
	user.SetRoles(in.Roles)

	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// CreateAPIKey grants key to userID. An empty key is replaced by a random
// one, which is returned.
func (s *Server) CreateAPIKey(userID, key string) (string, error) {
	if key == "" {
		generated, err := randomHex(24)
		if err != nil {
			return "", fmt.Errorf("failed to generate API key: %w", err)
		}
		key = generated
	}

	record := &models.APIKey{UserID: userID, KeyHash: auth.HashAPIKey(key)}
	if err := s.db.Create(record).Error; err != nil {
		return "", fmt.Errorf("failed to create API key: %w", err)
	}
	return key, nil
}

// Seed creates the default organization and a super user with an API key.
// It is idempotent: existing records are reused.
func (s *Server) Seed(opts SeedOptions) (*SeedResult, error) {
	if opts.AdminEmail == "" {
		opts.AdminEmail = DefaultAdminEmail
	}
	if opts.AdminPassword == "" {
		opts.AdminPassword = DefaultAdminPassword
	}

	org, err := s.defaultOrganization()
	if err != nil {
		return nil, err
	}
	result := &SeedResult{Organization: org}

	var admin models.User
	err = s.db.Where("email = ?", opts.AdminEmail).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, createErr := s.CreateUser(NewUser{
			OrganizationID: org.ID,
			Email:          opts.AdminEmail,
			Password:       opts.AdminPassword,
			Name:           "Sandbox Admin",
			Roles:          []string{"admin"},
			IsAdmin:        true,
		})
		if createErr != nil {
			return nil, createErr
		}
		admin = *created
	case err != nil:
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	result.Admin = &admin

	if opts.APIKey != "" {
		var existing int64
		if err := s.db.Model(&models.APIKey{}).Where("key_hash = ?", auth.HashAPIKey(opts.APIKey)).Count(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to look up API key: %w", err)
		}
		if existing > 0 {
			return result, nil
		}
	}

	key, err := s.CreateAPIKey(admin.ID, opts.APIKey)
	if err != nil {
		return nil, err
	}
	result.APIKey = key

	s.logger.Info().Str("organization_id", org.ID).Str("admin_id", admin.ID).Msg("Sandbox seeded")
	return result, nil
}

func (s *Server) defaultOrganization() (*models.Organization, error) {
	org := &models.Organization{}
	err := s.db.Where(models.Organization{Slug: DefaultOrganizationSlug}).
		Attrs(models.Organization{Name: "Sandbox"}).
		FirstOrCreate(org).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load default organization: %w", err)
	}
	return org, nil
}
