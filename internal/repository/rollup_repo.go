package repository

import (
	"context"
	"fmt"

	"backend/internal/model"

	"gorm.io/gorm"
)

// RollupRepository serves the aggregation queries behind the dashboard and
// the department leaderboard. Only APPROVED and DONE requests contribute.
type RollupRepository interface {
	// DepartmentTotals returns per-department counts and metric sums over
	// qualifying requests, one row per department that has at least one.
	DepartmentTotals(ctx context.Context) ([]model.DepartmentTotals, error)
	// AllDepartments returns every department, for ranking: departments
	// without qualifying requests still hold a leaderboard position.
	AllDepartments(ctx context.Context) ([]model.Department, error)
}

type rollupRepository struct {
	db *gorm.DB
}

func NewRollupRepository(db *gorm.DB) RollupRepository {
	return &rollupRepository{db: db}
}

func (r *rollupRepository) DepartmentTotals(ctx context.Context) ([]model.DepartmentTotals, error) {
	var totals []model.DepartmentTotals
	if err := r.db.WithContext(ctx).Table("upcycle_requests").
		Select("departments.id as department_id, departments.name as department_name, COUNT(*) as request_count, SUM(upcycle_requests.co2e_avoided) as total_co2e, SUM(upcycle_requests.aed_saved) as total_aed, SUM(upcycle_requests.ceits_awarded) as total_ceits").
		Joins("JOIN departments ON departments.id = upcycle_requests.department_id").
		Where("upcycle_requests.state IN ?", []string{model.RequestStateApproved, model.RequestStateDone}).
		Group("departments.id, departments.name").
		Order("total_ceits DESC, departments.name ASC").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to query department totals: %w", err)
	}
	return totals, nil
}

func (r *rollupRepository) AllDepartments(ctx context.Context) ([]model.Department, error) {
	var departments []model.Department
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}
