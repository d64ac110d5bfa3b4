package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RewardResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UserID    string  `json:"user_id"`
	Username  string  `json:"username,omitempty"`
	Points    float64 `json:"points"`
	Reason    string  `json:"reason"`
	Date      string  `json:"date"`
	RequestID string  `json:"request_id"`
}

// RewardService reads the append-only reward ledger. Grants themselves only
// happen inside the MarkDone transaction, never through this interface.
type RewardService interface {
	ListByUser(ctx context.Context, userID string, page, limit int) ([]RewardResponse, int64, error)
}

type rewardService struct {
	db *gorm.DB
}

func NewRewardService(db *gorm.DB) RewardService {
	return &rewardService{db: db}
}

// ListByUser returns a user's reward history, newest first; id descending
// breaks date ties so the order is stable.
func (s *rewardService) ListByUser(ctx context.Context, userID string, page, limit int) ([]RewardResponse, int64, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid user id: %w", err)
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Reward{}).Where("user_id = ?", id).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count rewards: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	offset := (page - 1) * limit

	var rewards []model.Reward
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", id).
		Order("date DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rewards).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch rewards: %w", err)
	}

	result := make([]RewardResponse, 0, len(rewards))
	for _, r := range rewards {
		result = append(result, toRewardResponse(r))
	}
	return result, total, nil
}

// grantReward creates the reward for a completed request, at most once per
// (request, user) pair. Runs inside the MarkDone transaction; the composite
// unique index catches the race two concurrent completions would otherwise
// open between the lookup and the insert. Returns whether a grant was made.
func grantReward(tx *gorm.DB, record *model.UpcycleRequest) (bool, error) {
	if record.RequestedBy == uuid.Nil {
		return false, nil
	}

	var existing model.Reward
	err := tx.Where("request_id = ? AND user_id = ?", record.ID, record.RequestedBy).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	reward := model.Reward{
		Name:      fmt.Sprintf("Reward for %s", record.Name),
		UserID:    record.RequestedBy,
		Points:    record.CEITsAwarded,
		Reason:    fmt.Sprintf("Automatic reward for completing %q.", record.Name),
		Date:      time.Now(),
		RequestID: record.ID,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reward)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func toRewardResponse(r model.Reward) RewardResponse {
	resp := RewardResponse{
		ID:        r.ID.String(),
		Name:      r.Name,
		UserID:    r.UserID.String(),
		Points:    r.Points,
		Reason:    r.Reason,
		Date:      r.Date.Format("2006-01-02"),
		RequestID: r.RequestID.String(),
	}
	if r.User != nil {
		resp.Username = r.User.Username
	}
	return resp
}
