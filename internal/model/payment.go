package model

import "time"

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentOverdue PaymentStatus = "OVERDUE"
)

// Payment is a fee owed by an identity.
type Payment struct {
	ID          int64         `gorm:"primaryKey" json:"id"`
	UserID      int64         `gorm:"not null;index" json:"userId"`
	Amount      float64       `gorm:"not null" json:"amount"`
	Penalty     float64       `gorm:"not null;default:0" json:"penalty"`
	Description string        `gorm:"size:256" json:"description"`
	DueDate     time.Time     `gorm:"not null" json:"dueDate"`
	Semester    int           `json:"semester"`
	Year        int           `json:"year"`
	Status      PaymentStatus `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	PaidAt      *time.Time    `json:"paidAt"`
	CreatedAt   time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updatedAt"`

	// Associations
	User *User `json:"-"`
}

// PricingPlan is the hostel fee for a semester of a given year.
type PricingPlan struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Semester  int       `gorm:"uniqueIndex:idx_pricing_semester_year;not null" json:"semester"`
	Year      int       `gorm:"uniqueIndex:idx_pricing_semester_year;not null" json:"year"`
	Price     float64   `gorm:"not null" json:"price"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}
