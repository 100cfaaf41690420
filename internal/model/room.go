package model

import "time"

// RoomType fixes how many seats a room has.
type RoomType string

const (
	RoomTypeSingle RoomType = "SINGLE"
	RoomTypeDouble RoomType = "DOUBLE"
	RoomTypeTriple RoomType = "TRIPLE"
)

// Seats returns the capacity implied by the room type, or 0 for an unknown type.
func (t RoomType) Seats() int {
	switch t {
	case RoomTypeSingle:
		return 1
	case RoomTypeDouble:
		return 2
	case RoomTypeTriple:
		return 3
	}
	return 0
}

// Valid reports whether t is a known room type.
func (t RoomType) Valid() bool {
	return t.Seats() > 0
}

// RoomTypeForSeats is the inverse of Seats.
func RoomTypeForSeats(seats int) (RoomType, bool) {
	switch seats {
	case 1:
		return RoomTypeSingle, true
	case 2:
		return RoomTypeDouble, true
	case 3:
		return RoomTypeTriple, true
	}
	return "", false
}

// Room is a room inside a hostel. VacantSeats equals TotalSeats minus the
// number of active allocations referencing the room.
type Room struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	HostelID    int64     `gorm:"uniqueIndex:idx_rooms_hostel_number;not null" json:"hostelId"`
	RoomNumber  string    `gorm:"uniqueIndex:idx_rooms_hostel_number;size:32;not null" json:"roomNumber"`
	RoomType    RoomType  `gorm:"size:16;not null" json:"roomType"`
	TotalSeats  int       `gorm:"not null" json:"totalSeats"`
	VacantSeats int       `gorm:"not null" json:"vacantSeats"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Hostel *Hostel `gorm:"constraint:OnDelete:CASCADE" json:"hostel,omitempty"`
}

// OccupiedSeats is the number of seats currently taken.
func (r Room) OccupiedSeats() int {
	return r.TotalSeats - r.VacantSeats
}
