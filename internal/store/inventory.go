package store

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/parse"
)

func (s *gormStore) CreateHostel(ctx context.Context, hostel *model.Hostel) error {
	if err := s.db.WithContext(ctx).Create(hostel).Error; err != nil {
		return fmt.Errorf("failed to create hostel %q: %w", hostel.Name, err)
	}
	return nil
}

func (s *gormStore) GetHostel(ctx context.Context, id int64) (*model.Hostel, error) {
	var hostel model.Hostel
	if err := first(s.db.WithContext(ctx).Where("id = ?", id), &hostel, "hostel", id); err != nil {
		return nil, err
	}
	return &hostel, nil
}

func (s *gormStore) HostelNameTaken(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Hostel{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check hostel name %q: %w", name, err)
	}
	return count > 0, nil
}

// DeleteHostel removes the hostel, its rooms, their allocation history and
// any warden assignments.
func (s *gormStore) DeleteHostel(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roomIDs := tx.Model(&model.Room{}).Select("id").Where("hostel_id = ?", id)
		if err := tx.Where("room_id IN (?)", roomIDs).Delete(&model.RoomAllocation{}).Error; err != nil {
			return fmt.Errorf("failed to delete allocations of hostel %d: %w", id, err)
		}
		if err := tx.Where("hostel_id = ?", id).Delete(&model.Room{}).Error; err != nil {
			return fmt.Errorf("failed to delete rooms of hostel %d: %w", id, err)
		}
		if err := tx.Where("hostel_id = ?", id).Delete(&model.WardenHostel{}).Error; err != nil {
			return fmt.Errorf("failed to delete warden assignments of hostel %d: %w", id, err)
		}
		res := tx.Delete(&model.Hostel{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete hostel %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("hostel %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// CreateRoom inserts the room and counts it on its hostel.
func (s *gormStore) CreateRoom(ctx context.Context, room *model.Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return fmt.Errorf("failed to create room %q: %w", room.RoomNumber, err)
		}
		res := tx.Model(&model.Hostel{}).
			Where("id = ?", room.HostelID).
			Updates(map[string]any{
				"total_rooms":  gorm.Expr("total_rooms + ?", 1),
				"vacant_rooms": gorm.Expr("vacant_rooms + ?", 1),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to count room on hostel %d: %w", room.HostelID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("hostel %d: %w", room.HostelID, ErrNotFound)
		}
		return nil
	})
}

func (s *gormStore) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	if err := first(s.db.WithContext(ctx).Where("id = ?", id), &room, "room", id); err != nil {
		return nil, err
	}
	return &room, nil
}

// LockRoom loads the room and holds a row lock on it until the surrounding
// transaction ends. Drivers without row locks ignore the clause.
func (s *gormStore) LockRoom(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	q := s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	if err := first(q, &room, "room", id); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *gormStore) SaveRoom(ctx context.Context, room *model.Room) error {
	if err := s.db.WithContext(ctx).Save(room).Error; err != nil {
		return fmt.Errorf("failed to save room %d: %w", room.ID, err)
	}
	return nil
}

// DeleteRoom removes the room with its inactive allocation history and
// uncounts it from its hostel. Callers make sure no active allocation remains.
func (s *gormStore) DeleteRoom(ctx context.Context, room *model.Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ? AND is_active = ?", room.ID, false).Delete(&model.RoomAllocation{}).Error; err != nil {
			return fmt.Errorf("failed to delete allocation history of room %d: %w", room.ID, err)
		}
		res := tx.Delete(&model.Room{}, room.ID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete room %d: %w", room.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("room %d: %w", room.ID, ErrNotFound)
		}
		if err := tx.Model(&model.Hostel{}).
			Where("id = ? AND total_rooms > 0", room.HostelID).
			Updates(map[string]any{
				"total_rooms":  gorm.Expr("total_rooms - ?", 1),
				"vacant_rooms": gorm.Expr("CASE WHEN vacant_rooms > 0 THEN vacant_rooms - 1 ELSE 0 END"),
			}).Error; err != nil {
			return fmt.Errorf("failed to uncount room on hostel %d: %w", room.HostelID, err)
		}
		return nil
	})
}

func (s *gormStore) RoomNumberTaken(ctx context.Context, hostelID int64, number string, excludeID int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Room{}).
		Where("hostel_id = ? AND room_number = ? AND id <> ?", hostelID, number, excludeID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check room number %q: %w", number, err)
	}
	return count > 0, nil
}

// FindVacantRoom returns the room only if it belongs to the hostel and has a
// vacant seat right now.
func (s *gormStore) FindVacantRoom(ctx context.Context, hostelID, roomID int64) (*model.Room, error) {
	var room model.Room
	q := s.db.WithContext(ctx).Where("id = ? AND hostel_id = ? AND vacant_seats > 0", roomID, hostelID)
	if err := first(q, &room, "vacant room", roomID); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListVacantRooms returns every room with a vacant seat in scan order: hostel
// id, then natural room number, then room id.
func (s *gormStore) ListVacantRooms(ctx context.Context) ([]RoomVacancy, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).Where("vacant_seats > 0").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list vacant rooms: %w", err)
	}
	sortRooms(rooms)

	ids := make([]int64, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}
	counts, err := s.activeCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]RoomVacancy, len(rooms))
	for i, r := range rooms {
		out[i] = RoomVacancy{Room: r, ActiveCount: counts[r.ID]}
	}
	return out, nil
}

// VacantRoomsOfType returns the rooms with a vacant seat in hostels of the
// given type, in the same scan order as ListVacantRooms.
func (s *gormStore) VacantRoomsOfType(ctx context.Context, hostelType model.HostelType) ([]model.Room, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).
		Joins("JOIN hostels ON hostels.id = rooms.hostel_id").
		Where("hostels.type = ? AND rooms.vacant_seats > 0", hostelType).
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list vacant %s rooms: %w", hostelType, err)
	}
	sortRooms(rooms)
	return rooms, nil
}

func (s *gormStore) activeCounts(ctx context.Context, roomIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return counts, nil
	}

	type countRow struct {
		RoomID int64
		Active int64
	}
	var rows []countRow
	if err := s.db.WithContext(ctx).Model(&model.RoomAllocation{}).
		Select("room_id AS room_id, COUNT(*) AS active").
		Where("is_active = ? AND room_id IN ?", true, roomIDs).
		Group("room_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count active allocations: %w", err)
	}
	for _, r := range rows {
		counts[r.RoomID] = r.Active
	}
	return counts, nil
}

// HostelRooms lists the rooms of a hostel in natural order with their current
// occupants.
func (s *gormStore) HostelRooms(ctx context.Context, hostelID int64) ([]RoomOccupancy, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).Where("hostel_id = ?", hostelID).Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms of hostel %d: %w", hostelID, err)
	}
	sortRooms(rooms)

	ids := make([]int64, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}

	var allocations []model.RoomAllocation
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Preload("Student").
			Where("is_active = ? AND room_id IN ?", true, ids).
			Order("id").
			Find(&allocations).Error; err != nil {
			return nil, fmt.Errorf("failed to list occupants of hostel %d: %w", hostelID, err)
		}
	}

	occupants := make(map[int64][]Occupant, len(rooms))
	for _, a := range allocations {
		o := Occupant{AllocationID: a.ID, StudentID: a.StudentID, Semester: a.Semester, Year: a.Year}
		if a.Student != nil {
			o.FullName = a.Student.FullName
			o.RollNo = a.Student.RollNo
			o.Department = a.Student.Department
		}
		occupants[a.RoomID] = append(occupants[a.RoomID], o)
	}

	out := make([]RoomOccupancy, len(rooms))
	for i, r := range rooms {
		list := occupants[r.ID]
		if list == nil {
			list = []Occupant{}
		}
		out[i] = RoomOccupancy{Room: r, Occupants: list}
	}
	return out, nil
}

// HostelSummaries aggregates seat counts per hostel in one query.
func (s *gormStore) HostelSummaries(ctx context.Context) ([]HostelSummary, error) {
	var hostels []model.Hostel
	if err := s.db.WithContext(ctx).Order("id").Find(&hostels).Error; err != nil {
		return nil, fmt.Errorf("failed to list hostels: %w", err)
	}

	type aggRow struct {
		HostelID    int64
		TotalSeats  int64
		VacantSeats int64
	}
	var aggs []aggRow
	if err := s.db.WithContext(ctx).Model(&model.Room{}).
		Select("hostel_id AS hostel_id, COALESCE(SUM(total_seats), 0) AS total_seats, COALESCE(SUM(vacant_seats), 0) AS vacant_seats").
		Group("hostel_id").
		Scan(&aggs).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate rooms: %w", err)
	}
	aggMap := make(map[int64]aggRow, len(aggs))
	for _, a := range aggs {
		aggMap[a.HostelID] = a
	}

	out := make([]HostelSummary, 0, len(hostels))
	for _, h := range hostels {
		a := aggMap[h.ID]
		out = append(out, HostelSummary{
			ID:          h.ID,
			Name:        h.Name,
			Type:        h.Type,
			TotalRooms:  h.TotalRooms,
			VacantRooms: h.VacantRooms,
			TotalSeats:  a.TotalSeats,
			VacantSeats: a.VacantSeats,
		})
	}
	return out, nil
}

func (s *gormStore) CountActiveInRoom(ctx context.Context, roomID int64) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.RoomAllocation{}).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count allocations of room %d: %w", roomID, err)
	}
	return count, nil
}

func (s *gormStore) CountActiveInHostel(ctx context.Context, hostelID int64) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.RoomAllocation{}).
		Joins("JOIN rooms ON rooms.id = room_allocations.room_id").
		Where("rooms.hostel_id = ? AND room_allocations.is_active = ?", hostelID, true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count allocations of hostel %d: %w", hostelID, err)
	}
	return count, nil
}

func (s *gormStore) CountHostelWardens(ctx context.Context, hostelID int64) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.WardenHostel{}).
		Where("hostel_id = ?", hostelID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count wardens of hostel %d: %w", hostelID, err)
	}
	return count, nil
}

// WardenHostelIDs returns the hostels assigned to the warden owning the given
// identity. Wardens that are not approved have no hostels.
func (s *gormStore) WardenHostelIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&model.WardenHostel{}).
		Joins("JOIN wardens ON wardens.id = warden_hostels.warden_id").
		Where("wardens.user_id = ? AND wardens.is_approved = ?", userID, true).
		Order("warden_hostels.hostel_id").
		Pluck("warden_hostels.hostel_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list hostels of warden user %d: %w", userID, err)
	}
	return ids, nil
}

func sortRooms(rooms []model.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		if a.HostelID != b.HostelID {
			return a.HostelID < b.HostelID
		}
		if a.RoomNumber != b.RoomNumber {
			return parse.Less(a.RoomNumber, b.RoomNumber)
		}
		return a.ID < b.ID
	})
}
