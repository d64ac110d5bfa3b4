package service

import (
	"backend/internal/model"

	"github.com/shopspring/decimal"
)

// Impacts holds the three derived metrics of an upcycle request.
type Impacts struct {
	CO2eAvoided  float64 `json:"co2e_avoided"`
	AEDSaved     float64 `json:"aed_saved"`
	CEITsAwarded float64 `json:"ceits_awarded"`
}

// ComputeImpacts derives the sustainability metrics from quantity and the
// snapshot per-unit factors:
//
//	co2eAvoided = quantity * co2ePerUnit
//	aedSaved    = quantity * costPerUnit
//	ceits       = round(co2eAvoided/5 + aedSaved/100, 2)
//
// Points are rounded half-up (away from zero) to 2 decimal places.
// Zero-valued inputs simply produce zero metrics.
func ComputeImpacts(quantity, co2ePerUnit, costPerUnit float64) Impacts {
	co2e := quantity * co2ePerUnit
	aed := quantity * costPerUnit
	ceits, _ := decimal.NewFromFloat(co2e).Div(decimal.NewFromInt(5)).
		Add(decimal.NewFromFloat(aed).Div(decimal.NewFromInt(100))).
		Round(2).Float64()
	return Impacts{CO2eAvoided: co2e, AEDSaved: aed, CEITsAwarded: ceits}
}

// applyImpacts recomputes the stored metrics from the request's current
// quantity and snapshot factors. Called on every create/update so the
// persisted values can never go stale against their inputs.
func applyImpacts(req *model.UpcycleRequest) {
	impacts := ComputeImpacts(req.Quantity, req.CO2ePerUnit, req.CostPerUnit)
	req.CO2eAvoided = impacts.CO2eAvoided
	req.AEDSaved = impacts.AEDSaved
	req.CEITsAwarded = impacts.CEITsAwarded
}

// applySnapshot freezes the product's current per-unit factors onto the
// request. Caller-supplied override values win; the snapshot only fills in
// factors the caller left unset. The catalog itself is never touched.
func applySnapshot(req *model.UpcycleRequest, product *model.Product, co2eOverride, costOverride *float64) {
	if co2eOverride != nil {
		req.CO2ePerUnit = *co2eOverride
	} else if product != nil {
		req.CO2ePerUnit = product.CO2ePerUnit
	}
	if costOverride != nil {
		req.CostPerUnit = *costOverride
	} else if product != nil {
		req.CostPerUnit = product.CostPerUnit
	}
}
