package model

import "time"

// Warden is a staff profile. Wardens act only on hostels they are assigned to.
type Warden struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"uniqueIndex;not null" json:"userId"`
	FullName   string    `gorm:"size:128;not null" json:"fullName"`
	IsApproved bool      `gorm:"not null;default:false" json:"isApproved"`
	CreatedAt  time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Hostels []WardenHostel `gorm:"foreignKey:WardenID" json:"hostels,omitempty"`
}

// WardenHostel assigns a warden to a hostel.
type WardenHostel struct {
	WardenID  int64     `gorm:"primaryKey" json:"wardenId"`
	HostelID  int64     `gorm:"primaryKey" json:"hostelId"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
