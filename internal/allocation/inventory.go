package allocation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
)

const roomTypeMessage = "roomType must be one of: SINGLE, DOUBLE, TRIPLE"

// HostelInput describes a new hostel.
type HostelInput struct {
	Name string           `json:"name" binding:"required"`
	Type model.HostelType `json:"type" binding:"required"`
}

// CreateHostel adds an empty hostel with a unique name.
func (s *Service) CreateHostel(ctx context.Context, in HostelInput) (*model.Hostel, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required").WithDetails(map[string]any{"name": "required"})
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation("type must be one of: BOYS, GIRLS").WithDetails(map[string]any{"type": string(in.Type)})
	}

	hostel := &model.Hostel{Name: name, Type: in.Type}
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		taken, err := tx.HostelNameTaken(ctx, name)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("Hostel already exists").WithDetails(map[string]any{"name": name})
		}
		return tx.CreateHostel(ctx, hostel)
	})
	if err != nil {
		return nil, s.internal(err, "Failed to create hostel")
	}
	return hostel, nil
}

// DeleteHostel removes a hostel that has no active students and no wardens.
func (s *Service) DeleteHostel(ctx context.Context, hostelID int64) error {
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetHostel(ctx, hostelID); errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Hostel not found")
		} else if err != nil {
			return err
		}

		active, err := tx.CountActiveInHostel(ctx, hostelID)
		if err != nil {
			return err
		}
		if active > 0 {
			return apperr.Conflict("Cannot delete hostel with active students").
				WithDetails(map[string]any{"activeStudents": active})
		}

		wardens, err := tx.CountHostelWardens(ctx, hostelID)
		if err != nil {
			return err
		}
		if wardens > 0 {
			return apperr.Conflict("Cannot delete hostel with assigned wardens").
				WithDetails(map[string]any{"assignedWardens": wardens})
		}

		return tx.DeleteHostel(ctx, hostelID)
	})
	if err != nil {
		return s.internal(err, "Failed to delete hostel")
	}
	log.Printf("Deleted hostel %d", hostelID)
	return nil
}

// RoomInput describes a new room.
type RoomInput struct {
	HostelID   int64          `json:"hostelId" binding:"required,gt=0"`
	RoomNumber string         `json:"roomNumber" binding:"required"`
	RoomType   model.RoomType `json:"roomType" binding:"required"`
	TotalSeats int            `json:"totalSeats" binding:"required"`
}

// CreateRoom adds an empty room whose seat count matches its type.
func (s *Service) CreateRoom(ctx context.Context, in RoomInput) (*model.Room, error) {
	number := strings.TrimSpace(in.RoomNumber)
	if number == "" {
		return nil, apperr.Validation("roomNumber is required").WithDetails(map[string]any{"roomNumber": "required"})
	}
	if !in.RoomType.Valid() {
		return nil, apperr.Validation(roomTypeMessage).WithDetails(map[string]any{"roomType": string(in.RoomType)})
	}
	if want := in.RoomType.Seats(); in.TotalSeats != want {
		return nil, apperr.Validation(fmt.Sprintf("Total seats must be %d for %s room type", want, in.RoomType)).
			WithDetails(map[string]any{"totalSeats": in.TotalSeats, "expectedTotalSeats": want})
	}

	room := &model.Room{
		HostelID:    in.HostelID,
		RoomNumber:  number,
		RoomType:    in.RoomType,
		TotalSeats:  in.TotalSeats,
		VacantSeats: in.TotalSeats,
	}
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetHostel(ctx, in.HostelID); errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Hostel not found")
		} else if err != nil {
			return err
		}

		taken, err := tx.RoomNumberTaken(ctx, in.HostelID, number, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("Room already exists in this hostel").WithDetails(map[string]any{"roomNumber": number})
		}
		return tx.CreateRoom(ctx, room)
	})
	if err != nil {
		return nil, s.internal(err, "Failed to create room")
	}
	return room, nil
}

// DeleteRoom removes a room nobody is allocated to.
func (s *Service) DeleteRoom(ctx context.Context, roomID int64) error {
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		room, err := tx.LockRoom(ctx, roomID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Room not found")
		}
		if err != nil {
			return err
		}

		active, err := tx.CountActiveInRoom(ctx, room.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return apperr.Conflict("Cannot delete room with active allocations").
				WithDetails(map[string]any{"activeAllocations": active})
		}
		return tx.DeleteRoom(ctx, room)
	})
	if err != nil {
		return s.internal(err, "Failed to delete room")
	}
	log.Printf("Deleted room %d", roomID)
	return nil
}

// RoomUpdate holds the optional fields of a room update.
type RoomUpdate struct {
	TotalSeats  *int            `json:"totalSeats"`
	VacantSeats *int            `json:"vacantSeats"`
	RoomType    *model.RoomType `json:"roomType"`
	RoomNumber  *string         `json:"roomNumber"`
}

// CapacityResult is the updated room and whether its vacancy changed.
type CapacityResult struct {
	Room            *model.Room `json:"room"`
	VacancyAdjusted bool        `json:"vacancyAdjusted"`
}

func (u RoomUpdate) validate() error {
	if u.TotalSeats != nil && (*u.TotalSeats < 1 || *u.TotalSeats > 3) {
		return apperr.Validation("totalSeats must be between 1 and 3").
			WithDetails(map[string]any{"totalSeats": *u.TotalSeats})
	}
	if u.RoomType != nil && !u.RoomType.Valid() {
		return apperr.Validation(roomTypeMessage).WithDetails(map[string]any{"roomType": string(*u.RoomType)})
	}
	if u.TotalSeats != nil && u.RoomType != nil && u.RoomType.Seats() != *u.TotalSeats {
		return apperr.Validation(fmt.Sprintf("Total seats must be %d for %s room type", u.RoomType.Seats(), *u.RoomType)).
			WithDetails(map[string]any{"totalSeats": *u.TotalSeats, "expectedTotalSeats": u.RoomType.Seats()})
	}
	if u.VacantSeats != nil && *u.VacantSeats < 0 {
		return apperr.Validation("vacantSeats must not be negative").
			WithDetails(map[string]any{"vacantSeats": *u.VacantSeats})
	}
	if u.RoomNumber != nil && strings.TrimSpace(*u.RoomNumber) == "" {
		return apperr.Validation("roomNumber must not be empty").WithDetails(map[string]any{"roomNumber": "required"})
	}
	return nil
}

// UpdateRoomCapacity changes a room's size, type or number. The vacancy is
// always recomputed from the seats already taken; a caller-supplied vacancy
// that disagrees is rejected. Giving seats alone re-derives the room type and
// the other way round.
func (s *Service) UpdateRoomCapacity(ctx context.Context, roomID int64, u RoomUpdate) (*CapacityResult, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}

	var res CapacityResult
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		room, err := tx.LockRoom(ctx, roomID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Room not found")
		}
		if err != nil {
			return err
		}

		newTotal, newType := room.TotalSeats, room.RoomType
		switch {
		case u.TotalSeats != nil:
			newTotal = *u.TotalSeats
			newType, _ = model.RoomTypeForSeats(newTotal)
		case u.RoomType != nil:
			newType = *u.RoomType
			newTotal = newType.Seats()
		}

		occupied := room.OccupiedSeats()
		if newTotal < occupied {
			return apperr.Conflict(fmt.Sprintf(
				"Total seats cannot be less than occupied seats (currentOccupiedSeats=%d, requestedTotalSeats=%d)", occupied, newTotal)).
				WithDetails(map[string]any{"currentOccupiedSeats": occupied, "requestedTotalSeats": newTotal})
		}

		vacant := newTotal - occupied
		if u.VacantSeats != nil && *u.VacantSeats != vacant {
			return apperr.Conflict(fmt.Sprintf(
				"Vacant seats must equal total seats minus occupied seats (expectedVacantSeats=%d, requestedVacantSeats=%d)", vacant, *u.VacantSeats)).
				WithDetails(map[string]any{"expectedVacantSeats": vacant, "requestedVacantSeats": *u.VacantSeats})
		}

		if u.RoomNumber != nil {
			number := strings.TrimSpace(*u.RoomNumber)
			if number != room.RoomNumber {
				taken, err := tx.RoomNumberTaken(ctx, room.HostelID, number, room.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperr.Conflict("Room already exists in this hostel").WithDetails(map[string]any{"roomNumber": number})
				}
				room.RoomNumber = number
			}
		}

		res.VacancyAdjusted = vacant != room.VacantSeats
		room.TotalSeats = newTotal
		room.RoomType = newType
		room.VacantSeats = vacant
		if err := tx.SaveRoom(ctx, room); err != nil {
			return err
		}
		res.Room = room
		return nil
	})
	if err != nil {
		return nil, s.internal(err, "Failed to update room")
	}
	return &res, nil
}

// HostelSummaries lists every hostel with its seat totals.
func (s *Service) HostelSummaries(ctx context.Context) ([]store.HostelSummary, error) {
	summaries, err := s.store.HostelSummaries(ctx)
	if err != nil {
		return nil, s.internal(err, "Failed to retrieve hostels")
	}
	return summaries, nil
}

// HostelRooms lists the rooms of a hostel with their occupants.
func (s *Service) HostelRooms(ctx context.Context, hostelID int64) ([]store.RoomOccupancy, error) {
	if _, err := s.store.GetHostel(ctx, hostelID); errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Hostel not found")
	} else if err != nil {
		return nil, s.internal(err, "Failed to retrieve rooms")
	}
	rooms, err := s.store.HostelRooms(ctx, hostelID)
	if err != nil {
		return nil, s.internal(err, "Failed to retrieve rooms")
	}
	return rooms, nil
}

// RoomHostelID returns the hostel owning the room.
func (s *Service) RoomHostelID(ctx context.Context, roomID int64) (int64, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, apperr.NotFound("Room not found")
	}
	if err != nil {
		return 0, s.internal(err, "Failed to load room")
	}
	return room.HostelID, nil
}
