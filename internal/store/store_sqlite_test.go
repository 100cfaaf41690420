package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/testutil"
)

func TestAllot_TakesSeatAndRecordsAllocation(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	h := testutil.Hostel(t, db, "North")
	r := testutil.Room(t, db, h.ID, "A-101", 2)
	st := testutil.Student(t, db, "Asha", 40)

	a, err := s.Allot(ctx, st, r.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, a.IsActive)

	got := testutil.ReloadRoom(t, db, r.ID)
	assert.Equal(t, 1, got.VacantSeats)
	assert.Equal(t, 1, testutil.ActiveCount(t, db, r.ID))
}

func TestAllot_NoVacancyLeavesNoRow(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	h := testutil.Hostel(t, db, "North")
	r := testutil.Room(t, db, h.ID, "A-101", 1)
	first := testutil.Student(t, db, "Asha", 40)
	second := testutil.Student(t, db, "Bilal", 30)

	_, err := s.Allot(ctx, first, r.ID, time.Now())
	require.NoError(t, err)

	_, err = s.Allot(ctx, second, r.ID, time.Now())
	assert.ErrorIs(t, err, store.ErrNoVacancy)

	_, err = s.ActiveAllocation(ctx, second.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 0, testutil.ReloadRoom(t, db, r.ID).VacantSeats)
}

func TestAllot_SecondActiveAllocationRejectedByIndex(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	h := testutil.Hostel(t, db, "North")
	r1 := testutil.Room(t, db, h.ID, "A-101", 2)
	r2 := testutil.Room(t, db, h.ID, "A-102", 2)
	st := testutil.Student(t, db, "Asha", 40)

	_, err := s.Allot(ctx, st, r1.ID, time.Now())
	require.NoError(t, err)

	_, err = s.Allot(ctx, st, r2.ID, time.Now())
	require.Error(t, err)

	// The decrement is rolled back with the failed insert.
	assert.Equal(t, 2, testutil.ReloadRoom(t, db, r2.ID).VacantSeats)
	assert.Equal(t, 0, testutil.ActiveCount(t, db, r2.ID))
}

func TestRelease_TwiceFailsWithoutTouchingSeats(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	h := testutil.Hostel(t, db, "North")
	r := testutil.Room(t, db, h.ID, "A-101", 2)
	st := testutil.Student(t, db, "Asha", 40)
	a := testutil.Allocate(t, db, st, r)

	require.NoError(t, s.Release(ctx, a, true, time.Now()))
	assert.Equal(t, 2, testutil.ReloadRoom(t, db, r.ID).VacantSeats)

	stale := &model.RoomAllocation{ID: a.ID, RoomID: r.ID, IsActive: true}
	err := s.Release(ctx, stale, true, time.Now())
	assert.ErrorIs(t, err, store.ErrNotActive)
	assert.Equal(t, 2, testutil.ReloadRoom(t, db, r.ID).VacantSeats)

	var stored model.RoomAllocation
	require.NoError(t, db.First(&stored, a.ID).Error)
	assert.False(t, stored.IsActive)
	assert.NotNil(t, stored.DeallocatedAt)
}

func TestRelease_SeatDriftRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	h := testutil.Hostel(t, db, "North")
	r := testutil.Room(t, db, h.ID, "A-101", 2)
	st := testutil.Student(t, db, "Asha", 40)
	a := testutil.Allocate(t, db, st, r)
	require.NoError(t, db.Model(&model.Room{}).Where("id = ?", r.ID).Update("vacant_seats", 2).Error)

	err := s.Release(ctx, a, false, time.Now())
	assert.ErrorIs(t, err, store.ErrSeatDrift)

	active, err := s.ActiveAllocation(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)
}

func TestPurgeStudent_RemovesEverything(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	h := testutil.Hostel(t, db, "North")
	r := testutil.Room(t, db, h.ID, "A-101", 3)
	st := testutil.Student(t, db, "Asha", 40)
	testutil.Allocate(t, db, st, r)
	require.NoError(t, db.Create(&model.Payment{UserID: st.UserID, Amount: 100, DueDate: time.Now()}).Error)
	require.NoError(t, db.Create(&model.PushSubscription{Endpoint: "https://push/1", UserID: st.UserID, P256DH: "k", Auth: "a"}).Error)

	require.NoError(t, s.PurgeStudent(ctx, st, time.Now()))

	assert.Equal(t, 3, testutil.ReloadRoom(t, db, r.ID).VacantSeats)
	for _, m := range []any{&model.RoomAllocation{}, &model.Payment{}, &model.PushSubscription{}, &model.Student{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}
	_, err := s.GetUser(ctx, st.UserID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	h := testutil.Hostel(t, db, "North")
	r := testutil.Room(t, db, h.ID, "A-101", 2)
	st := testutil.Student(t, db, "Asha", 40)

	boom := errors.New("notification failed")
	err := s.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.Allot(ctx, st, r.ID, time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, testutil.ReloadRoom(t, db, r.ID).VacantSeats)
	assert.Equal(t, 0, testutil.ActiveCount(t, db, r.ID))
}

func TestListUnallocatedStudents_FarthestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)

	h := testutil.Hostel(t, db, "North")
	r := testutil.Room(t, db, h.ID, "A-101", 1)
	near := testutil.Student(t, db, "Near", 5)
	far := testutil.Student(t, db, "Far", 90)
	tieA := testutil.Student(t, db, "TieA", 20)
	tieB := testutil.Student(t, db, "TieB", 20)
	housed := testutil.Student(t, db, "Housed", 500)
	testutil.Allocate(t, db, housed, r)

	students, err := s.ListUnallocatedStudents(context.Background())
	require.NoError(t, err)

	ids := make([]int64, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	assert.Equal(t, []int64{far.ID, tieA.ID, tieB.ID, near.ID}, ids)
}

func TestListVacantRooms_NaturalOrder(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)

	h1 := testutil.Hostel(t, db, "North")
	h2 := testutil.Hostel(t, db, "South")
	testutil.Room(t, db, h2.ID, "A-1", 1)
	testutil.Room(t, db, h1.ID, "A-110", 2)
	full := testutil.Room(t, db, h1.ID, "A-2", 1)
	testutil.Room(t, db, h1.ID, "A-20", 3)
	testutil.Allocate(t, db, testutil.Student(t, db, "X", 1), full)

	rooms, err := s.ListVacantRooms(context.Background())
	require.NoError(t, err)

	var labels []string
	for _, r := range rooms {
		labels = append(labels, r.Room.RoomNumber)
	}
	assert.Equal(t, []string{"A-20", "A-110", "A-1"}, labels)
}

func TestVacantRoomsOfType(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)

	girls := testutil.HostelOfType(t, db, "Girls", model.HostelTypeGirls)
	boys := testutil.Hostel(t, db, "Boys")
	annex := testutil.Hostel(t, db, "Annex")
	testutil.Room(t, db, girls.ID, "G-1", 2)
	testutil.Room(t, db, annex.ID, "A-1", 1)
	testutil.Room(t, db, boys.ID, "B-10", 1)
	full := testutil.Room(t, db, boys.ID, "B-1", 1)
	testutil.Room(t, db, boys.ID, "B-2", 1)
	testutil.Allocate(t, db, testutil.Student(t, db, "X", 1), full)

	rooms, err := s.VacantRoomsOfType(context.Background(), model.HostelTypeBoys)
	require.NoError(t, err)

	var labels []string
	for _, r := range rooms {
		labels = append(labels, r.RoomNumber)
	}
	assert.Equal(t, []string{"B-2", "B-10", "A-1"}, labels)

	rooms, err = s.VacantRoomsOfType(context.Background(), model.HostelTypeGirls)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, girls.ID, rooms[0].HostelID)
}

func TestRoomLifecycle_CountersFollowRooms(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	h := &model.Hostel{Name: "East", Type: model.HostelTypeGirls}
	require.NoError(t, s.CreateHostel(ctx, h))

	room := &model.Room{HostelID: h.ID, RoomNumber: "B-12", RoomType: model.RoomTypeDouble, TotalSeats: 2, VacantSeats: 2}
	require.NoError(t, s.CreateRoom(ctx, room))

	got, err := s.GetHostel(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalRooms)
	assert.Equal(t, 1, got.VacantRooms)

	taken, err := s.RoomNumberTaken(ctx, h.ID, "B-12", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.RoomNumberTaken(ctx, h.ID, "B-12", room.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, s.DeleteRoom(ctx, room))
	got, err = s.GetHostel(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalRooms)
	assert.Equal(t, 0, got.VacantRooms)

	_, err = s.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHostelSummariesAndRooms(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	h := testutil.Hostel(t, db, "North")
	empty := testutil.Hostel(t, db, "Empty")
	r1 := testutil.Room(t, db, h.ID, "A-101", 3)
	testutil.Room(t, db, h.ID, "A-102", 1)
	st := testutil.Student(t, db, "Asha", 40)
	testutil.Allocate(t, db, st, r1)

	summaries, err := s.HostelSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, h.ID, summaries[0].ID)
	assert.Equal(t, int64(4), summaries[0].TotalSeats)
	assert.Equal(t, int64(3), summaries[0].VacantSeats)
	assert.Equal(t, empty.ID, summaries[1].ID)
	assert.Zero(t, summaries[1].TotalSeats)

	rooms, err := s.HostelRooms(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.Len(t, rooms[0].Occupants, 1)
	assert.Equal(t, "Asha", rooms[0].Occupants[0].FullName)
	assert.Empty(t, rooms[1].Occupants)

	n, err := s.CountActiveInHostel(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWardenHostelIDs_ApprovedOnly(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	h1 := testutil.Hostel(t, db, "North")
	h2 := testutil.Hostel(t, db, "South")
	approved := testutil.Warden(t, db, true, h2.ID, h1.ID)
	pending := testutil.Warden(t, db, false, h1.ID)

	ids, err := s.WardenHostelIDs(ctx, approved.UserID)
	require.NoError(t, err)
	assert.Equal(t, []int64{h1.ID, h2.ID}, ids)

	ids, err = s.WardenHostelIDs(ctx, pending.UserID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	n, err := s.CountHostelWardens(ctx, h1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSubscriptions_ScopedToUser(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	sub := &model.PushSubscription{Endpoint: "https://push/abc", UserID: 7, P256DH: "p", Auth: "a"}
	require.NoError(t, s.SaveSubscription(ctx, sub))
	sub.Auth = "b"
	require.NoError(t, s.SaveSubscription(ctx, sub))

	got, err := s.GetSubscription(ctx, 7, "https://push/abc")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Auth)

	_, err = s.GetSubscription(ctx, 8, "https://push/abc")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteSubscription(ctx, 8, "https://push/abc"), store.ErrNotFound)

	require.NoError(t, s.RemoveSubscription(ctx, "https://push/abc"))
	subs, err := s.UserSubscriptions(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
