package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"hostel-allocation-backend/internal/model"
)

func (s *gormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := first(s.db.WithContext(ctx).Where("id = ?", id), &user, "user", id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	var student model.Student
	if err := first(s.db.WithContext(ctx).Where("id = ?", id), &student, "student", id); err != nil {
		return nil, err
	}
	return &student, nil
}

func (s *gormStore) GetStudentByUser(ctx context.Context, userID int64) (*model.Student, error) {
	var student model.Student
	if err := first(s.db.WithContext(ctx).Where("user_id = ?", userID), &student, "student of user", userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// LockStudent loads the student and holds a row lock on it until the
// surrounding transaction ends, serialising writers for the same student.
func (s *gormStore) LockStudent(ctx context.Context, id int64) (*model.Student, error) {
	var student model.Student
	q := s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	if err := first(q, &student, "student", id); err != nil {
		return nil, err
	}
	return &student, nil
}

func (s *gormStore) ActiveAllocation(ctx context.Context, studentID int64) (*model.RoomAllocation, error) {
	var allocation model.RoomAllocation
	q := s.db.WithContext(ctx).Where("student_id = ? AND is_active = ?", studentID, true)
	if err := first(q, &allocation, "active allocation of student", studentID); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// ListUnallocatedStudents returns students without an active allocation,
// farthest from college first. Ties keep id order.
func (s *gormStore) ListUnallocatedStudents(ctx context.Context) ([]model.Student, error) {
	var students []model.Student
	if err := s.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM room_allocations WHERE room_allocations.student_id = students.id AND room_allocations.is_active = ?)", true).
		Order("distance_from_college DESC").
		Order("id ASC").
		Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to list unallocated students: %w", err)
	}
	return students, nil
}
