package service

import (
	"context"
	"fmt"
	"sort"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

const allDepartmentsLabel = "All Departments"

// DashboardService builds the organization rollup and the department
// leaderboard. Everything is computed fresh on each read from the current
// APPROVED and DONE requests; draft, submitted and rejected requests
// contribute nothing.
type DashboardService interface {
	GetOrganizationRollup(ctx context.Context) ([]model.DashboardRow, error)
	GetDepartmentRollup(ctx context.Context, departmentID string) (model.DepartmentRollup, error)
}

type dashboardService struct {
	repo repository.RollupRepository
}

func NewDashboardService(repo repository.RollupRepository) DashboardService {
	return &dashboardService{repo: repo}
}

// GetOrganizationRollup returns one row per department holding qualifying
// requests, ordered by total points descending, plus the synthetic
// "All Departments" total row. Shares are zero-safe: a zero organization
// total yields 0% rather than a division by zero.
func (s *dashboardService) GetOrganizationRollup(ctx context.Context) ([]model.DashboardRow, error) {
	totals, err := s.repo.DepartmentTotals(ctx)
	if err != nil {
		return nil, err
	}

	var overallCO2e, overallAED, overallCEITs float64
	for _, t := range totals {
		overallCO2e += t.TotalCO2e
		overallAED += t.TotalAED
		overallCEITs += t.TotalCEITs
	}

	rows := make([]model.DashboardRow, 0, len(totals)+1)
	for _, t := range totals {
		deptID := t.DepartmentID
		rows = append(rows, model.DashboardRow{
			Name:         t.DepartmentName,
			DepartmentID: &deptID,
			TotalCO2e:    t.TotalCO2e,
			TotalAED:     t.TotalAED,
			TotalCEITs:   t.TotalCEITs,
			OverallCO2e:  overallCO2e,
			OverallAED:   overallAED,
			OverallCEITs: overallCEITs,
			CO2eShare:    share(t.TotalCO2e, overallCO2e),
			AEDShare:     share(t.TotalAED, overallAED),
			CEITsShare:   share(t.TotalCEITs, overallCEITs),
		})
	}

	rows = append(rows, model.DashboardRow{
		Name:         allDepartmentsLabel,
		TotalCO2e:    overallCO2e,
		TotalAED:     overallAED,
		TotalCEITs:   overallCEITs,
		OverallCO2e:  overallCO2e,
		OverallAED:   overallAED,
		OverallCEITs: overallCEITs,
		CO2eShare:    100,
		AEDShare:     100,
		CEITsShare:   100,
		IsTotal:      true,
	})

	return rows, nil
}

// GetDepartmentRollup returns one department's totals and its 1-based rank
// by total points across all departments. Departments without qualifying
// requests rank with zero totals; ties break by department name ascending.
func (s *dashboardService) GetDepartmentRollup(ctx context.Context, departmentID string) (model.DepartmentRollup, error) {
	deptID, err := uuid.Parse(departmentID)
	if err != nil {
		return model.DepartmentRollup{}, fmt.Errorf("invalid department id: %w", err)
	}

	ranked, err := s.rankedTotals(ctx)
	if err != nil {
		return model.DepartmentRollup{}, err
	}

	for rank, t := range ranked {
		if t.DepartmentID == deptID {
			return model.DepartmentRollup{
				DepartmentID:   t.DepartmentID,
				DepartmentName: t.DepartmentName,
				RequestCount:   t.RequestCount,
				TotalCO2e:      t.TotalCO2e,
				TotalAED:       t.TotalAED,
				TotalCEITs:     t.TotalCEITs,
				Rank:           rank + 1,
			}, nil
		}
	}

	return model.DepartmentRollup{}, fmt.Errorf("department %s not found", departmentID)
}

// rankedTotals merges the qualifying-request sums with the full department
// list so every department holds a leaderboard position, then sorts by
// total points descending, name ascending.
func (s *dashboardService) rankedTotals(ctx context.Context) ([]model.DepartmentTotals, error) {
	totals, err := s.repo.DepartmentTotals(ctx)
	if err != nil {
		return nil, err
	}
	departments, err := s.repo.AllDepartments(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.DepartmentTotals, len(totals))
	for _, t := range totals {
		byID[t.DepartmentID] = t
	}

	ranked := make([]model.DepartmentTotals, 0, len(departments))
	for _, d := range departments {
		if t, ok := byID[d.ID]; ok {
			ranked = append(ranked, t)
			continue
		}
		ranked = append(ranked, model.DepartmentTotals{
			DepartmentID:   d.ID,
			DepartmentName: d.Name,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalCEITs != ranked[j].TotalCEITs {
			return ranked[i].TotalCEITs > ranked[j].TotalCEITs
		}
		return ranked[i].DepartmentName < ranked[j].DepartmentName
	})

	return ranked, nil
}

func share(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return value / total * 100
}
