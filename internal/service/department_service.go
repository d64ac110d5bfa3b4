package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateDepartmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateDepartmentRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type DepartmentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// --- Interface ---

type DepartmentService interface {
	CreateDepartment(ctx context.Context, actorID string, req CreateDepartmentRequest) (*DepartmentResponse, error)
	GetDepartment(ctx context.Context, id string) (*DepartmentResponse, error)
	ListDepartments(ctx context.Context, page, limit int) ([]DepartmentResponse, int64, error)
	UpdateDepartment(ctx context.Context, actorID string, id string, req UpdateDepartmentRequest) (*DepartmentResponse, error)
	DeleteDepartment(ctx context.Context, actorID string, id string) error
}

type departmentService struct {
	repo repository.DepartmentRepository
	db   *gorm.DB
}

func NewDepartmentService(repo repository.DepartmentRepository, db *gorm.DB) DepartmentService {
	return &departmentService{repo: repo, db: db}
}

// --- Implementation ---

func (s *departmentService) CreateDepartment(ctx context.Context, actorID string, req CreateDepartmentRequest) (*DepartmentResponse, error) {
	department := &model.Department{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, department); err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	s.audit(ctx, actorID, model.ActionCreateDepartment, department)

	resp := toDepartmentResponse(department)
	return &resp, nil
}

func (s *departmentService) GetDepartment(ctx context.Context, id string) (*DepartmentResponse, error) {
	department, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.New("department not found")
	}
	resp := toDepartmentResponse(department)
	return &resp, nil
}

func (s *departmentService) ListDepartments(ctx context.Context, page, limit int) ([]DepartmentResponse, int64, error) {
	departments, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list departments: %w", err)
	}

	responses := make([]DepartmentResponse, 0, len(departments))
	for i := range departments {
		responses = append(responses, toDepartmentResponse(&departments[i]))
	}
	return responses, total, nil
}

func (s *departmentService) UpdateDepartment(ctx context.Context, actorID string, id string, req UpdateDepartmentRequest) (*DepartmentResponse, error) {
	department, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.New("department not found")
	}

	if req.Name != nil {
		department.Name = *req.Name
	}
	if req.Description != nil {
		department.Description = *req.Description
	}

	if err := s.repo.Update(ctx, department); err != nil {
		return nil, fmt.Errorf("failed to update department: %w", err)
	}
	s.audit(ctx, actorID, model.ActionUpdateDepartment, department)

	resp := toDepartmentResponse(department)
	return &resp, nil
}

func (s *departmentService) DeleteDepartment(ctx context.Context, actorID string, id string) error {
	department, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.New("department not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if isForeignKeyViolation(err) {
			return &ValidationError{Message: "Department is still referenced by upcycle requests and cannot be deleted"}
		}
		return fmt.Errorf("failed to delete department: %w", err)
	}
	s.audit(ctx, actorID, model.ActionDeleteDepartment, department)
	return nil
}

func (s *departmentService) audit(ctx context.Context, actorID string, action string, department *model.Department) {
	var userID *uuid.UUID
	if parsed, err := uuid.Parse(actorID); err == nil {
		userID = &parsed
	}
	details, _ := json.Marshal(map[string]interface{}{"name": department.Name})
	s.db.WithContext(ctx).Create(&model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   department.ID.String(),
		EntityName: department.Name,
		Details:    string(details),
	})
}

func toDepartmentResponse(d *model.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:          d.ID.String(),
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
}
