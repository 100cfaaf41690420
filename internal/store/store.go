package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hostel-allocation-backend/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNoVacancy is returned when a seat decrement found no vacant seat.
	ErrNoVacancy = errors.New("no vacant seat")
	// ErrNotActive is returned when releasing an allocation that is already inactive.
	ErrNotActive = errors.New("allocation is not active")
	// ErrSeatDrift is returned when a seat increment would exceed the room capacity.
	ErrSeatDrift = errors.New("vacant seats already at capacity")
)

// Store defines the interface for all database operations.
type Store interface {
	// Transaction runs fn in one database transaction. The Store passed to fn
	// is bound to that transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	// Ping checks that the database answers.
	Ping(ctx context.Context) error

	// Inventory
	CreateHostel(ctx context.Context, hostel *model.Hostel) error
	GetHostel(ctx context.Context, id int64) (*model.Hostel, error)
	HostelNameTaken(ctx context.Context, name string) (bool, error)
	DeleteHostel(ctx context.Context, id int64) error
	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	LockRoom(ctx context.Context, id int64) (*model.Room, error)
	SaveRoom(ctx context.Context, room *model.Room) error
	DeleteRoom(ctx context.Context, room *model.Room) error
	RoomNumberTaken(ctx context.Context, hostelID int64, number string, excludeID int64) (bool, error)
	FindVacantRoom(ctx context.Context, hostelID, roomID int64) (*model.Room, error)
	ListVacantRooms(ctx context.Context) ([]RoomVacancy, error)
	VacantRoomsOfType(ctx context.Context, hostelType model.HostelType) ([]model.Room, error)
	HostelRooms(ctx context.Context, hostelID int64) ([]RoomOccupancy, error)
	HostelSummaries(ctx context.Context) ([]HostelSummary, error)
	CountActiveInRoom(ctx context.Context, roomID int64) (int64, error)
	CountActiveInHostel(ctx context.Context, hostelID int64) (int64, error)
	CountHostelWardens(ctx context.Context, hostelID int64) (int64, error)

	// Students
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetStudent(ctx context.Context, id int64) (*model.Student, error)
	GetStudentByUser(ctx context.Context, userID int64) (*model.Student, error)
	LockStudent(ctx context.Context, id int64) (*model.Student, error)
	ActiveAllocation(ctx context.Context, studentID int64) (*model.RoomAllocation, error)
	ListUnallocatedStudents(ctx context.Context) ([]model.Student, error)

	// Ledger
	Allot(ctx context.Context, student *model.Student, roomID int64, now time.Time) (*model.RoomAllocation, error)
	Release(ctx context.Context, allocation *model.RoomAllocation, stamp bool, now time.Time) error
	PurgeStudent(ctx context.Context, student *model.Student, now time.Time) error

	// Payments
	CreatePayment(ctx context.Context, payment *model.Payment) error
	FindPricingPlan(ctx context.Context, semester, year int) (*model.PricingPlan, error)
	ListUnpaidPayments(ctx context.Context) ([]model.Payment, error)
	ApplyPenalty(ctx context.Context, paymentID int64, penalty float64, now time.Time) (bool, error)

	// Staff
	WardenHostelIDs(ctx context.Context, userID int64) ([]int64, error)

	// Push subscriptions
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, userID int64, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID int64, endpoint string) error
	UserSubscriptions(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	RemoveSubscription(ctx context.Context, endpoint string) error

	// Bulk runs
	SaveRun(ctx context.Context, run *model.AllocationRun) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// first loads a single row into dest and maps a missing row to ErrNotFound.
func first(q *gorm.DB, dest any, what string, id any) error {
	if err := q.First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
		}
		return fmt.Errorf("failed to load %s %v: %w", what, id, err)
	}
	return nil
}
