package service_test

import (
	"testing"

	"backend/internal/service"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// IMPACT COMPUTATION TESTS
// =============================================================================

func TestComputeImpacts_ReferenceExample(t *testing.T) {
	// GIVEN: A product avoiding 2.5 kg CO2e and recovering 10.00 AED per unit
	// WHEN: Four units are upcycled
	// THEN: 10.0 kg avoided, 40.00 AED saved, 2.4 CEIT points

	impacts := service.ComputeImpacts(4, 2.5, 10.0)

	assert.InDelta(t, 10.0, impacts.CO2eAvoided, 1e-9)
	assert.InDelta(t, 40.0, impacts.AEDSaved, 1e-9)
	assert.InDelta(t, 2.4, impacts.CEITsAwarded, 1e-9)
}

func TestComputeImpacts_ZeroInputs(t *testing.T) {
	// GIVEN: No snapshot factors at all
	// WHEN: Computing impacts
	// THEN: Every metric is zero, nothing blows up

	impacts := service.ComputeImpacts(5, 0, 0)

	assert.Zero(t, impacts.CO2eAvoided)
	assert.Zero(t, impacts.AEDSaved)
	assert.Zero(t, impacts.CEITsAwarded)
}

func TestComputeImpacts_ZeroQuantity(t *testing.T) {
	impacts := service.ComputeImpacts(0, 2.5, 10.0)

	assert.Zero(t, impacts.CO2eAvoided)
	assert.Zero(t, impacts.AEDSaved)
	assert.Zero(t, impacts.CEITsAwarded)
}

func TestComputeImpacts_PointsRoundHalfUp(t *testing.T) {
	// GIVEN: Factors producing exactly 0.025 raw points (0.125/5)
	// WHEN: Rounding to 2 decimal places
	// THEN: The tie rounds up to 0.03, not down to 0.02

	impacts := service.ComputeImpacts(1, 0.125, 0)

	assert.InDelta(t, 0.03, impacts.CEITsAwarded, 1e-9)
}

func TestComputeImpacts_PointsCombineBothMetrics(t *testing.T) {
	// co2e 2/5 = 0.4, aed 100/100 = 1.0
	impacts := service.ComputeImpacts(2, 1.0, 50.0)

	assert.InDelta(t, 2.0, impacts.CO2eAvoided, 1e-9)
	assert.InDelta(t, 100.0, impacts.AEDSaved, 1e-9)
	assert.InDelta(t, 1.4, impacts.CEITsAwarded, 1e-9)
}
