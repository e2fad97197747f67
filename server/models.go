package server

import (
	"strings"
	"time"

	"github.com/google/uuid"
	session "github.com/projectflow/go-session"
	"github.com/uptrace/bun"
)

// Account is the stored credential record. PasswordHash never leaves the
// package: every outbound shape goes through Public().
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          string     `bun:"role,notnull" json:"role,omitempty"`
	Avatar        string     `bun:"avatar,notnull" json:"avatar,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Public strips the secret and returns the wire shape the API exposes.
func (a *Account) Public() session.User {
	return session.User{
		ID:     a.ID.String(),
		Name:   a.Name,
		Email:  a.Email,
		Role:   a.Role,
		Avatar: a.Avatar,
	}
}

// NormalizeEmail lowercases and trims an email for the case-insensitive
// uniqueness and lookup rules.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
