package model

import "time"

// Student is a student profile. Exactly one User owns each student.
type Student struct {
	ID                  int64     `gorm:"primaryKey" json:"id"`
	UserID              int64     `gorm:"uniqueIndex;not null" json:"userId"`
	FullName            string    `gorm:"size:128;not null" json:"fullName"`
	FatherName          string    `gorm:"size:128" json:"fatherName"`
	Gender              string    `gorm:"size:16" json:"gender"`
	Department          string    `gorm:"size:128" json:"department"`
	Rank                int       `json:"rank"`
	RegistrationNo      string    `gorm:"uniqueIndex;size:64;not null" json:"registrationNo"`
	RollNo              string    `gorm:"uniqueIndex;size:64;not null" json:"rollNo"`
	Year                int       `gorm:"not null" json:"year"`
	Semester            int       `gorm:"not null" json:"semester"`
	MobileNo            string    `gorm:"size:32" json:"mobileNo"`
	Address             string    `gorm:"size:512" json:"address"`
	PinCode             string    `gorm:"size:16" json:"pinCode"`
	DistanceFromCollege float64   `gorm:"not null;default:0;index" json:"distanceFromCollege"`
	CreatedAt           time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt           time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	User *User `json:"user,omitempty"`
}
