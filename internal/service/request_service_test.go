package service_test

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRequestService(t *testing.T, allowManager bool) (service.UpcycleRequestService, *gorm.DB) {
	db := newTestDB(t)
	svc := service.NewUpcycleRequestService(db, stubAuthorizer{allow: allowManager})
	return svc, db
}

// =============================================================================
// CREATE / UPDATE TESTS
// =============================================================================

func TestCreate_DefaultsAndSnapshot(t *testing.T) {
	// GIVEN: A product with known impact factors
	// WHEN: Creating a request for 4 units without a name
	// THEN: The draft carries the default name, the frozen factors and
	//       computed metrics

	svc, db := newRequestService(t, true)
	ctx := context.Background()

	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)

	qty := 4.0
	resp, err := svc.Create(ctx, user.ID.String(), service.CreateRequestDTO{
		ProductID:    product.ID.String(),
		DepartmentID: dept.ID.String(),
		Quantity:     &qty,
	})
	require.NoError(t, err)

	assert.Equal(t, "New Upcycle Request", resp.Name)
	assert.Equal(t, model.RequestStateDraft, resp.State)
	assert.InDelta(t, 2.5, resp.CO2ePerUnit, 1e-9)
	assert.InDelta(t, 10.0, resp.CostPerUnit, 1e-9)
	assert.InDelta(t, 10.0, resp.CO2eAvoided, 1e-9)
	assert.InDelta(t, 40.0, resp.AEDSaved, 1e-9)
	assert.InDelta(t, 2.4, resp.CEITsAwarded, 1e-9)
}

func TestCreate_NonPositiveQuantity_Rejected(t *testing.T) {
	svc, db := newRequestService(t, true)
	user := seedUser(t, db, model.RoleEmployee)

	qty := 0.0
	_, err := svc.Create(context.Background(), user.ID.String(), service.CreateRequestDTO{Quantity: &qty})

	require.Error(t, err)
	assert.True(t, service.IsValidationError(err), "should be a validation error")
}

func TestUpdate_SnapshotFrozenAgainstCatalogEdits(t *testing.T) {
	// GIVEN: A request snapshotting the product's current factors
	// WHEN: The catalog factors change afterwards
	// THEN: The request's snapshot and metrics keep their original values

	svc, db := newRequestService(t, true)
	ctx := context.Background()

	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)

	qty := 4.0
	resp, err := svc.Create(ctx, user.ID.String(), service.CreateRequestDTO{
		ProductID:    product.ID.String(),
		DepartmentID: dept.ID.String(),
		Quantity:     &qty,
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(&model.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{"co2e_per_unit": 99.0, "cost_per_unit": 500.0}).Error)

	got, err := svc.Get(ctx, resp.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, got.CO2ePerUnit, 1e-9)
	assert.InDelta(t, 10.0, got.CostPerUnit, 1e-9)
	assert.InDelta(t, 2.4, got.CEITsAwarded, 1e-9)
}

func TestUpdate_ProductChangeRefreezesSnapshot(t *testing.T) {
	// GIVEN: A draft snapshotted from one product
	// WHEN: The request is switched to a different product
	// THEN: The snapshot re-freezes from the new product and metrics follow

	svc, db := newRequestService(t, true)
	ctx := context.Background()

	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	first := seedProduct(t, db, "Office Chair", 2.5, 10.0)
	second := seedProduct(t, db, "Standing Desk", 8.0, 120.0)

	qty := 2.0
	resp, err := svc.Create(ctx, user.ID.String(), service.CreateRequestDTO{
		ProductID:    first.ID.String(),
		DepartmentID: dept.ID.String(),
		Quantity:     &qty,
	})
	require.NoError(t, err)

	newProduct := second.ID.String()
	got, err := svc.Update(ctx, user.ID.String(), resp.ID, service.UpdateRequestDTO{ProductID: &newProduct})
	require.NoError(t, err)

	assert.InDelta(t, 8.0, got.CO2ePerUnit, 1e-9)
	assert.InDelta(t, 120.0, got.CostPerUnit, 1e-9)
	assert.InDelta(t, 16.0, got.CO2eAvoided, 1e-9)
	assert.InDelta(t, 240.0, got.AEDSaved, 1e-9)
	// 16/5 + 240/100
	assert.InDelta(t, 5.6, got.CEITsAwarded, 1e-9)
}

func TestUpdate_ExplicitOverrideWinsOverCatalog(t *testing.T) {
	svc, db := newRequestService(t, true)
	ctx := context.Background()

	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)

	override := 5.0
	qty := 1.0
	resp, err := svc.Create(ctx, user.ID.String(), service.CreateRequestDTO{
		ProductID:    product.ID.String(),
		DepartmentID: dept.ID.String(),
		Quantity:     &qty,
		CO2ePerUnit:  &override,
	})
	require.NoError(t, err)

	assert.InDelta(t, 5.0, resp.CO2ePerUnit, 1e-9)
	assert.InDelta(t, 10.0, resp.CostPerUnit, 1e-9, "cost still comes from the catalog")
}

// =============================================================================
// SUBMIT GATE TESTS
// =============================================================================

func TestSubmit_MissingFields_NamedIndividually(t *testing.T) {
	// GIVEN: A draft with neither product nor department
	// WHEN: Submitting it
	// THEN: The validation error names both missing fields and the draft
	//       stays a draft

	svc, db := newRequestService(t, true)
	user := seedUser(t, db, model.RoleEmployee)
	draft := seedRequest(t, db, user, nil, nil, 1, model.RequestStateDraft)

	_, err := svc.Submit(context.Background(), user.ID.String(), []string{draft.ID.String()})

	require.Error(t, err)
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "Product")
	assert.Contains(t, ve.Fields, "Department")
	assert.NotContains(t, ve.Fields, "Quantity")

	assert.Equal(t, model.RequestStateDraft, reloadRequest(t, db, draft.ID).State)
}

func TestSubmit_IncompleteRecordAbortsBatch(t *testing.T) {
	// GIVEN: One complete draft and one missing its department
	// WHEN: Submitting both in a single call
	// THEN: The whole batch fails and the complete draft is not submitted

	svc, db := newRequestService(t, true)
	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)

	complete := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateDraft)
	incomplete := seedRequest(t, db, user, nil, &product, 1, model.RequestStateDraft)

	_, err := svc.Submit(context.Background(), user.ID.String(), []string{complete.ID.String(), incomplete.ID.String()})

	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
	assert.Equal(t, model.RequestStateDraft, reloadRequest(t, db, complete.ID).State)
	assert.Equal(t, model.RequestStateDraft, reloadRequest(t, db, incomplete.ID).State)
}

func TestSubmit_MovesDraftToSubmitted(t *testing.T) {
	svc, db := newRequestService(t, true)
	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)
	draft := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateDraft)

	result, err := svc.Submit(context.Background(), user.ID.String(), []string{draft.ID.String()})

	require.NoError(t, err)
	assert.Equal(t, []string{draft.ID.String()}, result.Updated)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, model.RequestStateSubmitted, reloadRequest(t, db, draft.ID).State)
}

// =============================================================================
// MANAGER GATE TESTS
// =============================================================================

func TestApprove_RequiresManagerCapability(t *testing.T) {
	// GIVEN: An actor without the manage capability
	// WHEN: Approving a submitted request
	// THEN: The call fails with a validation error and no state changes

	svc, db := newRequestService(t, false)
	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)
	submitted := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateSubmitted)

	_, err := svc.Approve(context.Background(), user.ID.String(), []string{submitted.ID.String()})

	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
	assert.Equal(t, model.RequestStateSubmitted, reloadRequest(t, db, submitted.ID).State)
}

func TestMarkDone_RequiresManagerCapability(t *testing.T) {
	svc, db := newRequestService(t, false)
	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)
	approved := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateApproved)

	_, err := svc.MarkDone(context.Background(), user.ID.String(), []string{approved.ID.String()})

	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
	assert.Equal(t, model.RequestStateApproved, reloadRequest(t, db, approved.ID).State)
}

// =============================================================================
// BULK ACTION STATE TESTS
// =============================================================================

func TestApprove_SkipsRecordsOutsideSourceState(t *testing.T) {
	// GIVEN: One submitted and one draft request
	// WHEN: Approving both
	// THEN: The submitted one is approved, the draft is skipped without error

	svc, db := newRequestService(t, true)
	manager := seedUser(t, db, model.RoleCSRManager)
	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)

	submitted := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateSubmitted)
	draft := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateDraft)

	result, err := svc.Approve(context.Background(), manager.ID.String(), []string{submitted.ID.String(), draft.ID.String()})

	require.NoError(t, err)
	assert.Equal(t, []string{submitted.ID.String()}, result.Updated)
	assert.Equal(t, []string{draft.ID.String()}, result.Skipped)

	approved := reloadRequest(t, db, submitted.ID)
	assert.Equal(t, model.RequestStateApproved, approved.State)
	assert.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, model.RequestStateDraft, reloadRequest(t, db, draft.ID).State)
}

func TestReject_SkipsDraftAndDone(t *testing.T) {
	svc, db := newRequestService(t, true)
	manager := seedUser(t, db, model.RoleCSRManager)
	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)

	submitted := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateSubmitted)
	approved := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateApproved)
	done := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateDone)

	result, err := svc.Reject(context.Background(), manager.ID.String(), []string{
		submitted.ID.String(), approved.ID.String(), done.ID.String(),
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{submitted.ID.String(), approved.ID.String()}, result.Updated)
	assert.Equal(t, []string{done.ID.String()}, result.Skipped)
	assert.Equal(t, model.RequestStateRejected, reloadRequest(t, db, submitted.ID).State)
	assert.Equal(t, model.RequestStateRejected, reloadRequest(t, db, approved.ID).State)
	assert.Equal(t, model.RequestStateDone, reloadRequest(t, db, done.ID).State)
}

// =============================================================================
// COMPLETION AND REWARD TESTS
// =============================================================================

func TestMarkDone_GrantsRewardOnce(t *testing.T) {
	// GIVEN: An approved request completed, reset and completed again
	// WHEN: Counting the requester's rewards
	// THEN: Exactly one reward exists for the request

	svc, db := newRequestService(t, true)
	ctx := context.Background()

	manager := seedUser(t, db, model.RoleCSRManager)
	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)
	req := seedRequest(t, db, user, &dept, &product, 4, model.RequestStateApproved)

	_, err := svc.MarkDone(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)

	_, err = svc.ResetToDraft(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, user.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)
	_, err = svc.MarkDone(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&model.Reward{}).
		Where("request_id = ? AND user_id = ?", req.ID, user.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var reward model.Reward
	require.NoError(t, db.First(&reward, "request_id = ?", req.ID).Error)
	assert.InDelta(t, 2.4, reward.Points, 1e-9)
}

func TestMarkDone_SkipsAlreadyDone(t *testing.T) {
	// A second completion call finds the record in DONE and skips it.
	svc, db := newRequestService(t, true)
	ctx := context.Background()

	manager := seedUser(t, db, model.RoleCSRManager)
	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)
	req := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateApproved)

	first, err := svc.MarkDone(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)
	assert.Len(t, first.Updated, 1)

	second, err := svc.MarkDone(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)
	assert.Empty(t, second.Updated)
	assert.Equal(t, []string{req.ID.String()}, second.Skipped)
}

func TestResetToDraft_ClearsBothTimestamps(t *testing.T) {
	// GIVEN: A completed request carrying approval and completion times
	// WHEN: Resetting it to draft
	// THEN: Both timestamps are cleared together

	svc, db := newRequestService(t, true)
	ctx := context.Background()

	manager := seedUser(t, db, model.RoleCSRManager)
	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)
	req := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateSubmitted)

	_, err := svc.Approve(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)
	_, err = svc.MarkDone(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)

	completed := reloadRequest(t, db, req.ID)
	require.NotNil(t, completed.ApprovedAt)
	require.NotNil(t, completed.CompletedAt)

	_, err = svc.ResetToDraft(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)

	reset := reloadRequest(t, db, req.ID)
	assert.Equal(t, model.RequestStateDraft, reset.State)
	assert.Nil(t, reset.ApprovedAt)
	assert.Nil(t, reset.CompletedAt)
}

// =============================================================================
// AUDIT TRAIL TESTS
// =============================================================================

func TestLifecycleActions_WriteAuditRows(t *testing.T) {
	svc, db := newRequestService(t, true)
	ctx := context.Background()

	manager := seedUser(t, db, model.RoleCSRManager)
	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)
	req := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateDraft)

	_, err := svc.Submit(ctx, user.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)
	_, err = svc.MarkDone(ctx, manager.ID.String(), []string{req.ID.String()})
	require.NoError(t, err)

	var actions []string
	require.NoError(t, db.Model(&model.AuditLog{}).
		Where("entity_id = ?", req.ID.String()).
		Order("created_at ASC").
		Pluck("action", &actions).Error)

	assert.Contains(t, actions, model.ActionSubmitRequest)
	assert.Contains(t, actions, model.ActionApproveRequest)
	assert.Contains(t, actions, model.ActionCompleteRequest)
	assert.Contains(t, actions, model.ActionGrantReward)
}
