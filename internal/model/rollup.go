package model

import (
	"github.com/google/uuid"
)

// DepartmentTotals holds the per-department sums over APPROVED and DONE
// requests, as produced by the rollup repository's group-by query.
type DepartmentTotals struct {
	DepartmentID   uuid.UUID `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	RequestCount   int64     `json:"request_count"`
	TotalCO2e      float64   `json:"total_co2e"`
	TotalAED       float64   `json:"total_aed"`
	TotalCEITs     float64   `gorm:"column:total_ceits" json:"total_ceits"`
}

// DashboardRow is one line of the organization rollup view: a department's
// totals plus its share of the organization-wide sums. The synthetic
// "All Departments" row carries IsTotal=true and 100% shares.
type DashboardRow struct {
	Name         string     `json:"name"`
	DepartmentID *uuid.UUID `json:"department_id"`
	TotalCO2e    float64    `json:"total_co2e"`
	TotalAED     float64    `json:"total_aed"`
	TotalCEITs   float64    `json:"total_ceits"`
	OverallCO2e  float64    `json:"overall_co2e"`
	OverallAED   float64    `json:"overall_aed"`
	OverallCEITs float64    `json:"overall_ceits"`
	CO2eShare    float64    `json:"co2e_share"`
	AEDShare     float64    `json:"aed_share"`
	CEITsShare   float64    `json:"ceits_share"`
	IsTotal      bool       `json:"is_total"`
}

// DepartmentRollup is the single-department view: totals, request count and
// the department's 1-based leaderboard rank by total CEIT points.
type DepartmentRollup struct {
	DepartmentID   uuid.UUID `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	RequestCount   int64     `json:"request_count"`
	TotalCO2e      float64   `json:"total_co2e"`
	TotalAED       float64   `json:"total_aed"`
	TotalCEITs     float64   `json:"total_ceits"`
	Rank           int       `json:"rank"`
}
