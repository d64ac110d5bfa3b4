package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission code constants. The manager capability gating approval,
// rejection and completion of upcycle requests is PermManageUpcycle.
const (
	PermReadUpcycle   = "upcycle.read"
	PermWriteUpcycle  = "upcycle.write"
	PermManageUpcycle = "upcycle.manage"
	PermReadDashboard = "dashboard.read"
	PermReadRewards   = "rewards.read"
	PermReadUsers     = "users.read"
	PermWriteUsers    = "users.write"
	PermDeleteUsers   = "users.delete"
	PermReadAudit     = "audit.read"
	PermWriteCatalog  = "catalog.write"
)

// Role represents a user role with associated permissions
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"` // Prevent deletion of built-in roles
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Permission represents a single permission that can be assigned to roles
type Permission struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"` // e.g. "upcycle.manage"
	Name  string    `gorm:"type:varchar(255);not null" json:"name"`
	Group string    `gorm:"type:varchar(50);not null;index" json:"group"` // "upcycle", "users", "catalog"...
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
