package model

import (
	"time"

	"gorm.io/datatypes"
)

// RoomAllocation links a student to a room for a semester. At most one row per
// student is active; inactive rows are kept as history and never seat-counted.
type RoomAllocation struct {
	ID            int64      `gorm:"primaryKey" json:"id"`
	StudentID     int64      `gorm:"not null;index" json:"studentId"`
	RoomID        int64      `gorm:"not null;index" json:"roomId"`
	Semester      int        `gorm:"not null" json:"semester"`
	Year          int        `gorm:"not null" json:"year"`
	IsActive      bool       `gorm:"not null;index" json:"isActive"`
	CreatedAt     time.Time  `gorm:"not null" json:"createdAt"`
	DeallocatedAt *time.Time `json:"deallocatedAt"`

	// Associations
	Student *Student `json:"student,omitempty"`
	Room    *Room    `json:"room,omitempty"`
}

// AllocationRun is the audit record of one bulk allocation pass.
type AllocationRun struct {
	ID            int64          `gorm:"primaryKey" json:"id"`
	RunID         string         `gorm:"uniqueIndex;size:36;not null" json:"runId"`
	StartedAt     time.Time      `gorm:"not null" json:"startedAt"`
	FinishedAt    time.Time      `gorm:"not null" json:"finishedAt"`
	TotalStudents int            `gorm:"not null" json:"totalStudents"`
	Allocated     int            `gorm:"not null" json:"allocated"`
	Failed        int            `gorm:"not null" json:"failed"`
	Report        datatypes.JSON `json:"report"`
}
