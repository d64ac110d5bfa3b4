package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Request lifecycle state constants
const (
	RequestStateDraft     = "DRAFT"
	RequestStateSubmitted = "SUBMITTED"
	RequestStateApproved  = "APPROVED"
	RequestStateRejected  = "REJECTED"
	RequestStateDone      = "DONE"
)

// UpcycleRequest records a department's decision to reuse surplus product
// units instead of disposing of them. CO2ePerUnit and CostPerUnit are a
// snapshot taken when the product was selected; later catalog edits never
// affect an existing request. The three derived metrics are recomputed on
// every write that touches quantity or the snapshot factors.
type UpcycleRequest struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	RequestDate time.Time `gorm:"type:date;not null" json:"request_date"`
	// Product and department stay nullable in the schema: a draft may be
	// incomplete, the submit gate is what enforces their presence.
	ProductID    *uuid.UUID  `gorm:"type:uuid;index" json:"product_id"`
	Product      *Product    `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	CO2ePerUnit  float64     `gorm:"column:co2e_per_unit;type:decimal(16,4);not null;default:0" json:"co2e_per_unit"`
	CostPerUnit  float64     `gorm:"type:decimal(16,2);not null;default:0" json:"cost_per_unit"`
	DepartmentID *uuid.UUID  `gorm:"type:uuid;index" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID;constraint:OnDelete:RESTRICT" json:"department,omitempty"`
	RequestedBy  uuid.UUID   `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester    *User       `gorm:"foreignKey:RequestedBy;constraint:OnDelete:RESTRICT" json:"requester,omitempty"`
	Quantity     float64     `gorm:"not null;default:1;check:quantity > 0" json:"quantity"`
	Notes        string      `gorm:"type:text" json:"notes"`

	// Derived metrics — always quantity * snapshot factors, never live ones.
	CO2eAvoided  float64 `gorm:"column:co2e_avoided;not null;default:0" json:"co2e_avoided"`
	AEDSaved     float64 `gorm:"column:aed_saved;not null;default:0" json:"aed_saved"`
	CEITsAwarded float64 `gorm:"column:ceits_awarded;not null;default:0" json:"ceits_awarded"`

	State       string     `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"state"`
	ApprovedAt  *time.Time `json:"approved_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r *UpcycleRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
