// Package testutil builds throwaway databases and fixtures for tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/db"
	"hostel-allocation-backend/internal/model"
)

var seq atomic.Int64

// NewDB opens a migrated SQLite database in a temp file owned by t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_foreign_keys=1"
	gormDB, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gormDB
}

// Hostel inserts a boys' hostel with zeroed counters.
func Hostel(t *testing.T, gormDB *gorm.DB, name string) *model.Hostel {
	t.Helper()
	return HostelOfType(t, gormDB, name, model.HostelTypeBoys)
}

// HostelOfType inserts a hostel of the given type with zeroed counters.
func HostelOfType(t *testing.T, gormDB *gorm.DB, name string, hostelType model.HostelType) *model.Hostel {
	t.Helper()
	h := &model.Hostel{Name: name, Type: hostelType}
	require.NoError(t, gormDB.Create(h).Error)
	return h
}

// Room inserts an empty room with the given seat count and counts it on its hostel.
func Room(t *testing.T, gormDB *gorm.DB, hostelID int64, number string, seats int) *model.Room {
	t.Helper()
	roomType, ok := model.RoomTypeForSeats(seats)
	require.True(t, ok, "invalid seat count %d", seats)

	r := &model.Room{HostelID: hostelID, RoomNumber: number, RoomType: roomType, TotalSeats: seats, VacantSeats: seats}
	require.NoError(t, gormDB.Create(r).Error)
	require.NoError(t, gormDB.Model(&model.Hostel{}).Where("id = ?", hostelID).
		Updates(map[string]any{
			"total_rooms":  gorm.Expr("total_rooms + 1"),
			"vacant_rooms": gorm.Expr("vacant_rooms + 1"),
		}).Error)
	return r
}

// Student inserts a student and its owning identity.
func Student(t *testing.T, gormDB *gorm.DB, name string, distance float64) *model.Student {
	t.Helper()
	n := seq.Add(1)
	u := &model.User{Email: fmt.Sprintf("student%d@example.edu", n), Role: model.RoleStudent}
	require.NoError(t, gormDB.Create(u).Error)

	s := &model.Student{
		UserID:              u.ID,
		FullName:            name,
		RegistrationNo:      fmt.Sprintf("REG-%d", n),
		RollNo:              fmt.Sprintf("ROLL-%d", n),
		Year:                2,
		Semester:            3,
		DistanceFromCollege: distance,
	}
	require.NoError(t, gormDB.Create(s).Error)
	return s
}

// Warden inserts an approved warden assigned to the given hostels.
func Warden(t *testing.T, gormDB *gorm.DB, approved bool, hostelIDs ...int64) *model.Warden {
	t.Helper()
	n := seq.Add(1)
	u := &model.User{Email: fmt.Sprintf("warden%d@example.edu", n), Role: model.RoleWarden}
	require.NoError(t, gormDB.Create(u).Error)

	w := &model.Warden{UserID: u.ID, FullName: fmt.Sprintf("Warden %d", n), IsApproved: approved}
	require.NoError(t, gormDB.Create(w).Error)
	for _, id := range hostelIDs {
		require.NoError(t, gormDB.Create(&model.WardenHostel{WardenID: w.ID, HostelID: id, CreatedAt: time.Now()}).Error)
	}
	return w
}

// Allocate records an active allocation and takes the seat, bypassing the service.
func Allocate(t *testing.T, gormDB *gorm.DB, student *model.Student, room *model.Room) *model.RoomAllocation {
	t.Helper()
	a := &model.RoomAllocation{
		StudentID: student.ID,
		RoomID:    room.ID,
		Semester:  student.Semester,
		Year:      student.Year,
		IsActive:  true,
	}
	require.NoError(t, gormDB.Create(a).Error)
	require.NoError(t, gormDB.Model(&model.Room{}).Where("id = ?", room.ID).
		UpdateColumn("vacant_seats", gorm.Expr("vacant_seats - 1")).Error)
	return a
}

// ReloadRoom reads the room back from the database.
func ReloadRoom(t *testing.T, gormDB *gorm.DB, id int64) model.Room {
	t.Helper()
	var r model.Room
	require.NoError(t, gormDB.First(&r, id).Error)
	return r
}

// ActiveCount counts active allocations in a room.
func ActiveCount(t *testing.T, gormDB *gorm.DB, roomID int64) int {
	t.Helper()
	var n int64
	require.NoError(t, gormDB.Model(&model.RoomAllocation{}).
		Where("room_id = ? AND is_active = ?", roomID, true).Count(&n).Error)
	return int(n)
}

// Token signs an HS256 bearer token for the given identity.
func Token(t *testing.T, secret string, userID int64, role model.Role) string {
	t.Helper()
	claims := jwt.MapClaims{
		"id":   userID,
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}
