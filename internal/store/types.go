package store

import "hostel-allocation-backend/internal/model"

// RoomVacancy is a room that still has at least one vacant seat, with the
// number of active allocations counted from the ledger.
type RoomVacancy struct {
	Room        model.Room
	ActiveCount int64
}

// Occupant is a student currently holding a seat in a room.
type Occupant struct {
	AllocationID int64  `json:"allocationId"`
	StudentID    int64  `json:"studentId"`
	FullName     string `json:"fullName"`
	RollNo       string `json:"rollNo"`
	Department   string `json:"department"`
	Semester     int    `json:"semester"`
	Year         int    `json:"year"`
}

// RoomOccupancy is a room together with its current occupants.
type RoomOccupancy struct {
	model.Room
	Occupants []Occupant `json:"occupants"`
}

// HostelSummary aggregates seat counts over all rooms of a hostel.
type HostelSummary struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Type        model.HostelType `json:"type"`
	TotalRooms  int              `json:"totalRooms"`
	VacantRooms int              `json:"vacantRooms"`
	TotalSeats  int64            `json:"totalSeats"`
	VacantSeats int64            `json:"vacantSeats"`
}
