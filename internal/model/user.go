package model

import "time"

// Role is the role attached to an identity.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleWarden  Role = "WARDEN"
	RoleStudent Role = "STUDENT"
)

// User is the identity record that owns a student, warden or admin profile.
// Credentials are managed by the identity service and are not stored here.
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:256;not null" json:"email"`
	Role      Role      `gorm:"size:16;not null" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}
