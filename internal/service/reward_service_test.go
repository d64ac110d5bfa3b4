package service_test

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedReward(t *testing.T, db *gorm.DB, user model.User, req model.UpcycleRequest, points float64, date time.Time) model.Reward {
	reward := model.Reward{
		Name:      "Reward for " + req.Name,
		UserID:    user.ID,
		Points:    points,
		Date:      date,
		RequestID: req.ID,
	}
	require.NoError(t, db.Create(&reward).Error)
	return reward
}

// =============================================================================
// REWARD HISTORY TESTS
// =============================================================================

func TestListByUser_NewestFirst(t *testing.T) {
	// GIVEN: Three rewards granted on different dates
	// WHEN: Listing the user's history
	// THEN: Rewards come back newest first

	db := newTestDB(t)
	svc := service.NewRewardService(db)

	user := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)

	r1 := seedRequest(t, db, user, &dept, &product, 1, model.RequestStateDone)
	r2 := seedRequest(t, db, user, &dept, &product, 2, model.RequestStateDone)
	r3 := seedRequest(t, db, user, &dept, &product, 3, model.RequestStateDone)

	seedReward(t, db, user, r1, 1.0, time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC))
	seedReward(t, db, user, r2, 2.0, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC))
	seedReward(t, db, user, r3, 3.0, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))

	rewards, total, err := svc.ListByUser(context.Background(), user.ID.String(), 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, rewards, 3)

	assert.InDelta(t, 2.0, rewards[0].Points, 1e-9)
	assert.InDelta(t, 3.0, rewards[1].Points, 1e-9)
	assert.InDelta(t, 1.0, rewards[2].Points, 1e-9)
}

func TestListByUser_OnlyOwnRewards(t *testing.T) {
	db := newTestDB(t)
	svc := service.NewRewardService(db)

	owner := seedUser(t, db, model.RoleEmployee)
	other := seedUser(t, db, model.RoleEmployee)
	dept := seedDepartment(t, db, "Operations")
	product := seedProduct(t, db, "Office Chair", 2.5, 10.0)

	ownReq := seedRequest(t, db, owner, &dept, &product, 1, model.RequestStateDone)
	otherReq := seedRequest(t, db, other, &dept, &product, 1, model.RequestStateDone)

	seedReward(t, db, owner, ownReq, 2.4, time.Now())
	seedReward(t, db, other, otherReq, 9.9, time.Now())

	rewards, total, err := svc.ListByUser(context.Background(), owner.ID.String(), 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rewards, 1)
	assert.Equal(t, owner.ID.String(), rewards[0].UserID)
	assert.InDelta(t, 2.4, rewards[0].Points, 1e-9)
}

func TestListByUser_EmptyHistory(t *testing.T) {
	db := newTestDB(t)
	svc := service.NewRewardService(db)
	user := seedUser(t, db, model.RoleEmployee)

	rewards, total, err := svc.ListByUser(context.Background(), user.ID.String(), 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rewards)
}
