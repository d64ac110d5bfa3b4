package service

import (
	"context"
	"fmt"

	"backend/internal/model"

	"gorm.io/gorm"
)

// CapabilityManageUpcycle gates approval, rejection and completion of
// upcycle requests.
const CapabilityManageUpcycle = model.PermManageUpcycle

// Authorizer answers capability checks for lifecycle actions. Injected so
// the manager gate can be exercised in tests without a permission table.
type Authorizer interface {
	HasCapability(ctx context.Context, userID string, capability string) (bool, error)
}

type dbAuthorizer struct {
	db *gorm.DB
}

// NewAuthorizer returns an Authorizer backed by the roles/permissions
// tables. Admins hold every capability implicitly.
func NewAuthorizer(db *gorm.DB) Authorizer {
	return &dbAuthorizer{db: db}
}

func (a *dbAuthorizer) HasCapability(ctx context.Context, userID string, capability string) (bool, error) {
	var user model.User
	if err := a.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return false, fmt.Errorf("user not found: %w", err)
	}

	if user.Role == model.RoleAdmin {
		return true, nil
	}

	var count int64
	err := a.db.WithContext(ctx).Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Where("roles.name = ? AND permissions.code = ?", user.Role, capability).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check capability: %w", err)
	}

	return count > 0, nil
}
