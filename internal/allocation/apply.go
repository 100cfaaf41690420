package allocation

import (
	"context"
	"errors"
	"log"
	"strings"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
)

// ApplyResult is the seat a student received by applying.
type ApplyResult struct {
	Allocation *model.RoomAllocation `json:"allocation"`
	HostelID   int64                 `json:"hostelId"`
	RoomID     int64                 `json:"roomId"`
	RoomNumber string                `json:"roomNumber"`
}

// hostelTypeFor maps a student's gender to the hostel type they may live in.
func hostelTypeFor(gender string) (model.HostelType, bool) {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "male", "m":
		return model.HostelTypeBoys, true
	case "female", "f":
		return model.HostelTypeGirls, true
	}
	return "", false
}

// Apply places the student behind userID in the first vacant seat of a
// hostel matching their gender. Hostels are scanned by id and rooms in
// natural room-number order. A room that fills up between the scan and the
// seat decrement is skipped.
func (s *Service) Apply(ctx context.Context, userID int64) (*ApplyResult, error) {
	now := s.now()
	var (
		res     ApplyResult
		student *model.Student
		room    *model.Room
	)

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		found, err := tx.GetStudentByUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Student not found")
		}
		if err != nil {
			return err
		}
		student, err = lockStudent(ctx, tx, found.ID)
		if err != nil {
			return err
		}

		if _, err := tx.ActiveAllocation(ctx, student.ID); err == nil {
			return apperr.Conflict("Application already exists").
				WithDetails(map[string]any{"studentId": student.ID})
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		hostelType, ok := hostelTypeFor(student.Gender)
		if !ok {
			return apperr.Validation("Student gender must be Male or Female").
				WithDetails(map[string]any{"gender": student.Gender})
		}

		rooms, err := tx.VacantRoomsOfType(ctx, hostelType)
		if err != nil {
			return err
		}
		for i := range rooms {
			res.Allocation, err = tx.Allot(ctx, student, rooms[i].ID, now)
			if errors.Is(err, store.ErrNoVacancy) {
				continue
			}
			if err != nil {
				return err
			}
			room = &rooms[i]
			return nil
		}
		return apperr.NotFound("No vacant rooms available").
			WithDetails(map[string]any{"hostelType": hostelType})
	})
	if err != nil {
		return nil, s.internal(err, "Failed to apply for hostel")
	}

	res.HostelID = room.HostelID
	res.RoomID = room.ID
	res.RoomNumber = room.RoomNumber

	s.metrics.Allocated("apply")
	log.Printf("Student %d applied and got room %d (allocation %d)", student.ID, room.ID, res.Allocation.ID)
	s.notifyAllocation(ctx, student, room, AllocateResult{Allocation: res.Allocation})
	return &res, nil
}
