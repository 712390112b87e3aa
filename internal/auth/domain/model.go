// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ledgerly/ledgerly/internal/authcontext"
	"gorm.io/datatypes"
)

// User represents a system user account.
type User struct {
	ID                  snowflake.ID      `gorm:"primaryKey"`
	Email               string            `gorm:"column:email;not null;uniqueIndex"`
	Name                string            `gorm:"column:name;type:text"`
	PasswordHash        *string           `gorm:"type:text"`
	Role                string            `gorm:"not null;default:client"`
	ClientID            *snowflake.ID     `gorm:"column:client_id;index"`
	Provider            string            `gorm:"not null;default:local"`
	ExternalID          *string           `gorm:"column:external_id;uniqueIndex"`
	LastPasswordChanged *time.Time        `gorm:"column:last_password_changed"`
	Metadata            datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Caller converts the user into the context principal used by access checks.
func (u User) Caller() authcontext.Caller {
	return authcontext.Caller{
		UserID:   u.ID,
		Email:    u.Email,
		Role:     authcontext.Role(u.Role),
		ClientID: u.ClientID,
	}
}

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Profile is the user shape returned to clients, without credentials.
type Profile struct {
	ID        snowflake.ID  `json:"id"`
	Email     string        `json:"email"`
	Name      string        `json:"name,omitempty"`
	Role      string        `json:"role"`
	ClientID  *snowflake.ID `json:"client_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ProfileOf projects a user onto its client-visible shape.
func ProfileOf(u User) Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		ClientID:  u.ClientID,
		CreatedAt: u.CreatedAt,
	}
}
