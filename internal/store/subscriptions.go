package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"hostel-allocation-backend/internal/model"
)

// SaveSubscription creates the subscription or replaces the keys and owner of
// an existing endpoint.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to save subscription for user %d: %w", sub.UserID, err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, userID int64, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	q := s.db.WithContext(ctx).Where("user_id = ? AND endpoint = ?", userID, endpoint)
	if err := first(q, &sub, "subscription of user", userID); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, userID int64, endpoint string) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND endpoint = ?", userID, endpoint).Delete(&model.PushSubscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription of user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subscription of user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// RemoveSubscription deletes an endpoint regardless of owner, used when the
// push service reports it gone.
func (s *gormStore) RemoveSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("failed to remove subscription: %w", err)
	}
	return nil
}

func (s *gormStore) UserSubscriptions(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions of user %d: %w", userID, err)
	}
	return subs, nil
}

func (s *gormStore) SaveRun(ctx context.Context, run *model.AllocationRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save allocation run %s: %w", run.RunID, err)
	}
	return nil
}
