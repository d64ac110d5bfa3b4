package service

import (
	"context"
	"fmt"

	"backend/internal/model"

	"gorm.io/gorm"
)

// --- DTOs ---

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	db *gorm.DB
}

func NewRoleService(db *gorm.DB) RoleService {
	return &roleService{db: db}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	var roles []model.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("name ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	var perms []model.Permission
	if err := s.db.WithContext(ctx).Order("\"group\" ASC, code ASC").Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

// SeedDefaultRolesAndPermissions ensures the built-in roles and permission
// codes exist. Idempotent: reruns on every startup.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	permissions := []model.Permission{
		{Code: model.PermReadUpcycle, Name: "View upcycle requests", Group: "upcycle"},
		{Code: model.PermWriteUpcycle, Name: "Create and edit upcycle requests", Group: "upcycle"},
		{Code: model.PermManageUpcycle, Name: "Approve, reject and complete upcycle requests", Group: "upcycle"},
		{Code: model.PermReadDashboard, Name: "View the sustainability dashboard", Group: "dashboard"},
		{Code: model.PermReadRewards, Name: "View reward history", Group: "rewards"},
		{Code: model.PermReadUsers, Name: "View users", Group: "users"},
		{Code: model.PermWriteUsers, Name: "Create and edit users", Group: "users"},
		{Code: model.PermDeleteUsers, Name: "Delete users", Group: "users"},
		{Code: model.PermReadAudit, Name: "View audit logs", Group: "audit"},
		{Code: model.PermWriteCatalog, Name: "Manage products and departments", Group: "catalog"},
	}

	roleGrants := map[string][]string{
		model.RoleCSRManager: {
			model.PermReadUpcycle, model.PermWriteUpcycle, model.PermManageUpcycle,
			model.PermReadDashboard, model.PermReadRewards, model.PermReadAudit,
			model.PermWriteCatalog,
		},
		model.RoleEmployee: {
			model.PermReadUpcycle, model.PermWriteUpcycle,
			model.PermReadDashboard, model.PermReadRewards,
		},
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		byCode := make(map[string]model.Permission, len(permissions))
		for _, p := range permissions {
			var perm model.Permission
			if err := tx.Where("code = ?", p.Code).FirstOrCreate(&perm, p).Error; err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", p.Code, err)
			}
			byCode[perm.Code] = perm
		}

		// Admin holds every capability implicitly (see Authorizer), so the
		// admin role carries no explicit grants.
		for _, name := range []string{model.RoleAdmin, model.RoleCSRManager, model.RoleEmployee} {
			var role model.Role
			seed := model.Role{Name: name, IsSystem: true}
			if err := tx.Where("name = ?", name).FirstOrCreate(&role, seed).Error; err != nil {
				return fmt.Errorf("failed to seed role %s: %w", name, err)
			}

			codes, ok := roleGrants[name]
			if !ok {
				continue
			}
			grants := make([]model.Permission, 0, len(codes))
			for _, code := range codes {
				grants = append(grants, byCode[code])
			}
			if err := tx.Model(&role).Association("Permissions").Replace(grants); err != nil {
				return fmt.Errorf("failed to assign permissions to %s: %w", name, err)
			}
		}

		return nil
	})
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}
	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
