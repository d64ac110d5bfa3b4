package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reward is an append-only grant of CEIT points to the user whose upcycle
// request reached DONE. The composite unique index on (request_id, user_id)
// is the idempotency guarantee: concurrent completion attempts on the same
// request can never produce a duplicate grant.
type Reward struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_rewards_request_user" json:"user_id"`
	User      *User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Points    float64         `gorm:"not null;default:0" json:"points"`
	Reason    string          `gorm:"type:text" json:"reason"`
	Date      time.Time       `gorm:"type:date;not null" json:"date"`
	RequestID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_rewards_request_user" json:"request_id"`
	Request   *UpcycleRequest `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"request,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (r *Reward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
