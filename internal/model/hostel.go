package model

import "time"

// HostelType is the residents a hostel accepts.
type HostelType string

const (
	HostelTypeBoys  HostelType = "BOYS"
	HostelTypeGirls HostelType = "GIRLS"
)

// Valid reports whether t is a known hostel type.
func (t HostelType) Valid() bool {
	return t == HostelTypeBoys || t == HostelTypeGirls
}

// Hostel represents a hostel building. TotalRooms and VacantRooms are kept in
// step with room creation and removal.
type Hostel struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Type        HostelType `gorm:"size:16;not null" json:"type"`
	TotalRooms  int        `gorm:"not null;default:0" json:"totalRooms"`
	VacantRooms int        `gorm:"not null;default:0" json:"vacantRooms"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
}
