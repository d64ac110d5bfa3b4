package service_test

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDashboardService(t *testing.T) (service.DashboardService, *gorm.DB) {
	db := newTestDB(t)
	svc := service.NewDashboardService(repository.NewRollupRepository(db))
	return svc, db
}

// =============================================================================
// ORGANIZATION ROLLUP TESTS
// =============================================================================

func TestOrganizationRollup_SumsAndShares(t *testing.T) {
	// GIVEN: Two departments with qualifying requests and one draft that
	//        must not count
	// WHEN: Building the organization rollup
	// THEN: Per-department sums, shares and the "All Departments" total row
	//       are all consistent

	svc, db := newDashboardService(t)
	user := seedUser(t, db, model.RoleEmployee)
	ops := seedDepartment(t, db, "Operations")
	hr := seedDepartment(t, db, "Human Resources")

	chair := seedProduct(t, db, "Office Chair", 1.0, 50.0)
	desk := seedProduct(t, db, "Standing Desk", 3.0, 0)

	// Operations: 2 units -> co2e 2, aed 100, ceits 1.4
	seedRequest(t, db, user, &ops, &chair, 2, model.RequestStateApproved)
	// HR: 1 unit -> co2e 3, aed 0, ceits 0.6
	seedRequest(t, db, user, &hr, &desk, 1, model.RequestStateDone)
	// Drafts contribute nothing.
	seedRequest(t, db, user, &hr, &desk, 100, model.RequestStateDraft)

	rows, err := svc.GetOrganizationRollup(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Ordered by total points descending, total row last.
	assert.Equal(t, "Operations", rows[0].Name)
	assert.InDelta(t, 2.0, rows[0].TotalCO2e, 1e-9)
	assert.InDelta(t, 100.0, rows[0].TotalAED, 1e-9)
	assert.InDelta(t, 1.4, rows[0].TotalCEITs, 1e-9)
	assert.InDelta(t, 40.0, rows[0].CO2eShare, 1e-9)
	assert.InDelta(t, 100.0, rows[0].AEDShare, 1e-9)
	assert.InDelta(t, 70.0, rows[0].CEITsShare, 1e-9)

	assert.Equal(t, "Human Resources", rows[1].Name)
	assert.InDelta(t, 3.0, rows[1].TotalCO2e, 1e-9)
	assert.InDelta(t, 60.0, rows[1].CO2eShare, 1e-9)
	assert.InDelta(t, 30.0, rows[1].CEITsShare, 1e-9)

	total := rows[2]
	assert.True(t, total.IsTotal)
	assert.Equal(t, "All Departments", total.Name)
	assert.Nil(t, total.DepartmentID)
	assert.InDelta(t, 5.0, total.TotalCO2e, 1e-9)
	assert.InDelta(t, 100.0, total.TotalAED, 1e-9)
	assert.InDelta(t, 2.0, total.TotalCEITs, 1e-9)
	assert.InDelta(t, 100.0, total.CO2eShare, 1e-9)
	assert.InDelta(t, 100.0, total.CEITsShare, 1e-9)
}

func TestOrganizationRollup_ZeroTotalsAreShareSafe(t *testing.T) {
	// GIVEN: A qualifying request whose metrics are all zero
	// WHEN: Building the rollup
	// THEN: Shares come back 0, never NaN

	svc, db := newDashboardService(t)
	user := seedUser(t, db, model.RoleEmployee)
	ops := seedDepartment(t, db, "Operations")
	free := seedProduct(t, db, "Scrap Pallet", 0, 0)

	seedRequest(t, db, user, &ops, &free, 5, model.RequestStateApproved)

	rows, err := svc.GetOrganizationRollup(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Zero(t, rows[0].CO2eShare)
	assert.Zero(t, rows[0].AEDShare)
	assert.Zero(t, rows[0].CEITsShare)
}

func TestOrganizationRollup_EmptyDatabase(t *testing.T) {
	svc, _ := newDashboardService(t)

	rows, err := svc.GetOrganizationRollup(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsTotal)
	assert.Zero(t, rows[0].TotalCEITs)
}

// =============================================================================
// DEPARTMENT RANK TESTS
// =============================================================================

func TestDepartmentRollup_RanksByPoints(t *testing.T) {
	// GIVEN: Department A with 2.4 points and department B with none
	// WHEN: Asking for each department's rollup
	// THEN: A ranks first, B ranks second with zero totals

	svc, db := newDashboardService(t)
	user := seedUser(t, db, model.RoleEmployee)
	a := seedDepartment(t, db, "Assembly")
	b := seedDepartment(t, db, "Bottling")

	chair := seedProduct(t, db, "Office Chair", 2.5, 10.0)
	seedRequest(t, db, user, &a, &chair, 4, model.RequestStateDone)

	first, err := svc.GetDepartmentRollup(context.Background(), a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Rank)
	assert.InDelta(t, 2.4, first.TotalCEITs, 1e-9)
	assert.EqualValues(t, 1, first.RequestCount)

	second, err := svc.GetDepartmentRollup(context.Background(), b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Rank)
	assert.Zero(t, second.TotalCEITs)
	assert.Zero(t, second.RequestCount)
}

func TestDepartmentRollup_TiesBreakByName(t *testing.T) {
	// Two departments with equal points rank in name order.
	svc, db := newDashboardService(t)
	user := seedUser(t, db, model.RoleEmployee)
	zeta := seedDepartment(t, db, "Zeta")
	alpha := seedDepartment(t, db, "Alpha")

	chair := seedProduct(t, db, "Office Chair", 2.5, 10.0)
	seedRequest(t, db, user, &zeta, &chair, 4, model.RequestStateApproved)
	seedRequest(t, db, user, &alpha, &chair, 4, model.RequestStateApproved)

	alphaRollup, err := svc.GetDepartmentRollup(context.Background(), alpha.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, alphaRollup.Rank)

	zetaRollup, err := svc.GetDepartmentRollup(context.Background(), zeta.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, zetaRollup.Rank)
}

func TestDepartmentRollup_UnknownDepartment(t *testing.T) {
	svc, _ := newDashboardService(t)

	_, err := svc.GetDepartmentRollup(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)
}
