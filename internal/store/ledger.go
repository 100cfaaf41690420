package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hostel-allocation-backend/internal/model"
)

// Allot takes one seat in the room and records an active allocation for the
// student. The decrement only succeeds while the room still has a vacant seat,
// so a concurrent writer that took the last seat yields ErrNoVacancy.
func (s *gormStore) Allot(ctx context.Context, student *model.Student, roomID int64, now time.Time) (*model.RoomAllocation, error) {
	allocation := &model.RoomAllocation{
		StudentID: student.ID,
		RoomID:    roomID,
		Semester:  student.Semester,
		Year:      student.Year,
		IsActive:  true,
		CreatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Room{}).
			Where("id = ? AND vacant_seats > 0", roomID).
			Updates(map[string]any{
				"vacant_seats": gorm.Expr("vacant_seats - ?", 1),
				"updated_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to take seat in room %d: %w", roomID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("room %d: %w", roomID, ErrNoVacancy)
		}

		if err := tx.Create(allocation).Error; err != nil {
			return fmt.Errorf("failed to record allocation for student %d: %w", student.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allocation, nil
}

// Release deactivates the allocation and gives its seat back to the room.
// When stamp is set the deallocation time is recorded on the row.
func (s *gormStore) Release(ctx context.Context, allocation *model.RoomAllocation, stamp bool, now time.Time) error {
	updates := map[string]any{"is_active": false}
	if stamp {
		updates["deallocated_at"] = now
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.RoomAllocation{}).
			Where("id = ? AND is_active = ?", allocation.ID, true).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to deactivate allocation %d: %w", allocation.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("allocation %d: %w", allocation.ID, ErrNotActive)
		}

		res = tx.Model(&model.Room{}).
			Where("id = ? AND vacant_seats < total_seats", allocation.RoomID).
			Updates(map[string]any{
				"vacant_seats": gorm.Expr("vacant_seats + ?", 1),
				"updated_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to free seat in room %d: %w", allocation.RoomID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("room %d: %w", allocation.RoomID, ErrSeatDrift)
		}
		return nil
	})
	if err != nil {
		return err
	}

	allocation.IsActive = false
	if stamp {
		allocation.DeallocatedAt = &now
	}
	return nil
}

// PurgeStudent frees the student's seat, if any, and removes the student
// together with allocation history, payments, push subscriptions and identity.
func (s *gormStore) PurgeStudent(ctx context.Context, student *model.Student, now time.Time) error {
	return s.Transaction(ctx, func(tx Store) error {
		active, err := tx.ActiveAllocation(ctx, student.ID)
		switch {
		case err == nil:
			if err := tx.Release(ctx, active, false, now); err != nil {
				return err
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		db := tx.(*gormStore).db.WithContext(ctx)
		steps := []struct {
			what string
			run  func() error
		}{
			{"allocations", func() error {
				return db.Where("student_id = ?", student.ID).Delete(&model.RoomAllocation{}).Error
			}},
			{"payments", func() error {
				return db.Where("user_id = ?", student.UserID).Delete(&model.Payment{}).Error
			}},
			{"push subscriptions", func() error {
				return db.Where("user_id = ?", student.UserID).Delete(&model.PushSubscription{}).Error
			}},
			{"student", func() error {
				return db.Delete(&model.Student{}, student.ID).Error
			}},
			{"user", func() error {
				return db.Delete(&model.User{}, student.UserID).Error
			}},
		}
		for _, step := range steps {
			if err := step.run(); err != nil {
				return fmt.Errorf("failed to delete %s of student %d: %w", step.what, student.ID, err)
			}
		}
		return nil
	})
}
