package store

import (
	"context"
	"fmt"
	"time"

	"hostel-allocation-backend/internal/model"
)

func (s *gormStore) CreatePayment(ctx context.Context, payment *model.Payment) error {
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment for user %d: %w", payment.UserID, err)
	}
	return nil
}

func (s *gormStore) FindPricingPlan(ctx context.Context, semester, year int) (*model.PricingPlan, error) {
	var plan model.PricingPlan
	q := s.db.WithContext(ctx).Where("semester = ? AND year = ?", semester, year)
	if err := first(q, &plan, "pricing plan", fmt.Sprintf("%d/%d", semester, year)); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListUnpaidPayments returns pending and overdue payments with their owner.
func (s *gormStore) ListUnpaidPayments(ctx context.Context) ([]model.Payment, error) {
	var payments []model.Payment
	if err := s.db.WithContext(ctx).Preload("User").
		Where("status IN ?", []model.PaymentStatus{model.PaymentPending, model.PaymentOverdue}).
		Order("due_date").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list unpaid payments: %w", err)
	}
	return payments, nil
}

// ApplyPenalty raises the stored penalty to the given value and marks the
// payment overdue. It reports false when the stored penalty is already as high.
func (s *gormStore) ApplyPenalty(ctx context.Context, paymentID int64, penalty float64, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND penalty < ? AND status <> ?", paymentID, penalty, model.PaymentPaid).
		Updates(map[string]any{
			"penalty":    penalty,
			"status":     model.PaymentOverdue,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to apply penalty to payment %d: %w", paymentID, res.Error)
	}
	return res.RowsAffected > 0, nil
}
