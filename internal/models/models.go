package models

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"_id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Organization is a sandbox tenant
type Organization struct {
	BaseModel
	Name string `json:"name" gorm:"not null"`
	Slug string `json:"slug" gorm:"unique;not null"`
}

// User is a sandbox account. Roles are stored comma separated.
type User struct {
	BaseModel
	OrganizationID string    `json:"organizationId" gorm:"not null;index"`
	Email          string    `json:"email" gorm:"unique;not null"`
	PasswordHash   string    `json:"-"`
	Name           string    `json:"name"`
	Roles          string    `json:"-"`
	IsAdmin        bool      `json:"-" gorm:"not null;default:false"`
	Active         bool      `json:"active" gorm:"not null;default:true"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	Organization *Organization `json:"-" gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
}

// RoleList returns the user's roles
func (u *User) RoleList() []string {
	if u.Roles == "" {
		return []string{}
	}
	return strings.Split(u.Roles, ",")
}

// SetRoles stores roles, dropping blanks
func (u *User) SetRoles(roles []string) {
	kept := make([]string, 0, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			kept = append(kept, r)
		}
	}
	u.Roles = strings.Join(kept, ",")
}

// APIKey grants super user logins. Only the digest is stored.
type APIKey struct {
	BaseModel
	UserID  string `json:"userId" gorm:"not null;index"`
	KeyHash string `json:"-" gorm:"unique;not null"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Session is an issued session token, keyed by the token's jti
type Session struct {
	BaseModel
	UserID         string     `json:"userId" gorm:"not null;index"`
	OrganizationID string     `json:"organizationId" gorm:"not null"`
	ExpiresAt      time.Time  `json:"expiresAt" gorm:"not null"`
	RevokedAt      *time.Time `json:"revokedAt,omitempty"`
}

// Active reports whether the session can still authenticate requests
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Organization{}, &User{}, &APIKey{}, &Session{})
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
