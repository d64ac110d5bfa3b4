package service_test

import (
	"context"
	"testing"
	"time"

	"backend/internal/database"
	"backend/internal/model"
	"backend/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newTestDB opens an in-memory sqlite database with the production schema.
// Connections are capped at one so every query sees the same memory store.
func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// stubAuthorizer answers every capability check with a fixed verdict.
type stubAuthorizer struct {
	allow bool
}

func (s stubAuthorizer) HasCapability(ctx context.Context, userID string, capability string) (bool, error) {
	return s.allow, nil
}

func seedUser(t *testing.T, db *gorm.DB, role string) model.User {
	suffix := uuid.NewString()[:8]
	user := model.User{
		Username: "user-" + suffix,
		Email:    "user-" + suffix + "@example.com",
		Password: "hashed",
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedDepartment(t *testing.T, db *gorm.DB, name string) model.Department {
	dept := model.Department{Name: name}
	require.NoError(t, db.Create(&dept).Error)
	return dept
}

func seedProduct(t *testing.T, db *gorm.DB, name string, co2ePerUnit, costPerUnit float64) model.Product {
	product := model.Product{
		SKU:         "sku-" + uuid.NewString()[:8],
		Name:        name,
		Upcyclable:  true,
		CO2ePerUnit: co2ePerUnit,
		CostPerUnit: costPerUnit,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

// seedRequest inserts a request directly in the given state with its
// snapshot and metrics already consistent, bypassing the lifecycle.
func seedRequest(t *testing.T, db *gorm.DB, user model.User, dept *model.Department, product *model.Product, quantity float64, state string) model.UpcycleRequest {
	req := model.UpcycleRequest{
		Name:        "Request " + uuid.NewString()[:8],
		RequestDate: time.Now(),
		RequestedBy: user.ID,
		Quantity:    quantity,
		State:       state,
	}
	if dept != nil {
		req.DepartmentID = &dept.ID
	}
	if product != nil {
		req.ProductID = &product.ID
		req.CO2ePerUnit = product.CO2ePerUnit
		req.CostPerUnit = product.CostPerUnit
	}
	impacts := service.ComputeImpacts(req.Quantity, req.CO2ePerUnit, req.CostPerUnit)
	req.CO2eAvoided = impacts.CO2eAvoided
	req.AEDSaved = impacts.AEDSaved
	req.CEITsAwarded = impacts.CEITsAwarded

	require.NoError(t, db.Create(&req).Error)
	return req
}

func reloadRequest(t *testing.T, db *gorm.DB, id uuid.UUID) model.UpcycleRequest {
	var record model.UpcycleRequest
	require.NoError(t, db.First(&record, "id = ?", id).Error)
	return record
}
