package dues

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/testutil"
)

type fakeStore struct {
	payments []model.Payment
	students map[int64]*model.Student
	applied  map[int64]float64
}

func (f *fakeStore) ListUnpaidPayments(ctx context.Context) ([]model.Payment, error) {
	return f.payments, nil
}

func (f *fakeStore) GetStudentByUser(ctx context.Context, userID int64) (*model.Student, error) {
	if s, ok := f.students[userID]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("student of user %d: %w", userID, store.ErrNotFound)
}

func (f *fakeStore) ApplyPenalty(ctx context.Context, paymentID int64, penalty float64, now time.Time) (bool, error) {
	f.applied[paymentID] = penalty
	return true, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (r *recordingNotifier) Dispatch(msg notification.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return true
}

func TestDayDiff(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DayDiff(today, today.AddDate(0, 0, 1)))
	assert.Equal(t, 0, DayDiff(today, today))
	assert.Equal(t, -3, DayDiff(today, today.AddDate(0, 0, -3)))
}

func TestDayDiff_AcrossClockChanges(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}

	tests := []struct {
		name       string
		today, due time.Time
		want       int
	}{
		{"fall back", time.Date(2026, 11, 1, 0, 0, 0, 0, loc), time.Date(2026, 11, 2, 0, 0, 0, 0, loc), 1},
		{"spring forward", time.Date(2026, 3, 8, 0, 0, 0, 0, loc), time.Date(2026, 3, 9, 0, 0, 0, 0, loc), 1},
		{"overdue across fall back", time.Date(2026, 11, 3, 0, 0, 0, 0, loc), time.Date(2026, 10, 31, 0, 0, 0, 0, loc), -3},
		{"time of day ignored", time.Date(2026, 11, 1, 23, 0, 0, 0, loc), time.Date(2026, 11, 2, 1, 0, 0, 0, loc), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayDiff(tt.today, tt.due))
		})
	}
}

func TestProcessOnce(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)
	day := func(offset int) time.Time { return now.AddDate(0, 0, offset) }
	user := &model.User{ID: 1, Email: "asha@example.edu"}

	testCases := []struct {
		name          string
		payment       model.Payment
		wantReminder  bool
		wantPenalty   float64
		wantSubject   string
		expectNoEmail bool
	}{
		{name: "due tomorrow sends reminder", payment: model.Payment{ID: 1, DueDate: day(1)}, wantReminder: true, wantSubject: "Payment Reminder"},
		{name: "due in five days does nothing", payment: model.Payment{ID: 2, DueDate: day(5)}, expectNoEmail: true},
		{name: "one day late is grace", payment: model.Payment{ID: 3, DueDate: day(-1)}, expectNoEmail: true},
		{name: "three days late charges two days", payment: model.Payment{ID: 4, DueDate: day(-3)}, wantPenalty: 200, wantSubject: "Payment Overdue"},
		{name: "penalty already charged", payment: model.Payment{ID: 5, DueDate: day(-3), Penalty: 200}, expectNoEmail: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.payment
			p.UserID = user.ID
			p.User = user
			p.Amount = 5000

			fs := &fakeStore{
				payments: []model.Payment{p},
				students: map[int64]*model.Student{user.ID: {FullName: "Asha"}},
				applied:  map[int64]float64{},
			}
			n := &recordingNotifier{}
			svc := NewService(config.DuesConfig{PenaltyPerDay: 100, Timezone: "UTC"}, fs, n, nil)
			svc.now = func() time.Time { return now }

			res := svc.ProcessOnce(context.Background())

			if tc.expectNoEmail {
				assert.Empty(t, n.msgs)
				assert.Empty(t, fs.applied)
				return
			}
			require.Len(t, n.msgs, 1)
			assert.Equal(t, tc.wantSubject, n.msgs[0].Subject)
			assert.Equal(t, "asha@example.edu", n.msgs[0].To)
			assert.Contains(t, n.msgs[0].HTML, "Dear Asha,")
			if tc.wantReminder {
				assert.Equal(t, 1, res.Reminders)
			}
			if tc.wantPenalty > 0 {
				assert.Equal(t, tc.wantPenalty, fs.applied[p.ID])
				assert.Equal(t, 1, res.Penalties)
				assert.Contains(t, n.msgs[0].HTML, "overdue by 2 day(s)")
			}
		})
	}
}

func TestProcessOnce_SkipsPaymentsWithoutStudent(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		payments: []model.Payment{{ID: 1, UserID: 9, User: &model.User{ID: 9, Email: "x@example.edu"}, DueDate: now.AddDate(0, 0, 1)}},
		students: map[int64]*model.Student{},
		applied:  map[int64]float64{},
	}
	n := &recordingNotifier{}
	svc := NewService(config.DuesConfig{PenaltyPerDay: 100}, fs, n, nil)
	svc.now = func() time.Time { return now }

	svc.ProcessOnce(context.Background())
	assert.Empty(t, n.msgs)
}

func TestProcessOnce_PersistsPenalty(t *testing.T) {
	db := testutil.NewDB(t)
	s := store.NewGormStore(db)
	st := testutil.Student(t, db, "Asha", 10)

	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	payment := &model.Payment{UserID: st.UserID, Amount: 5000, DueDate: now.AddDate(0, 0, -4), Status: model.PaymentPending}
	require.NoError(t, db.Create(payment).Error)

	n := &recordingNotifier{}
	svc := NewService(config.DuesConfig{PenaltyPerDay: 100, Timezone: "UTC"}, s, n, nil)
	svc.now = func() time.Time { return now }

	res := svc.ProcessOnce(context.Background())
	assert.Equal(t, 1, res.Penalties)

	var stored model.Payment
	require.NoError(t, db.First(&stored, payment.ID).Error)
	assert.Equal(t, 300.0, stored.Penalty)
	assert.Equal(t, model.PaymentOverdue, stored.Status)

	// Same day again: the penalty is not re-applied.
	res = svc.ProcessOnce(context.Background())
	assert.Zero(t, res.Penalties)
	assert.Len(t, n.msgs, 1)
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	svc := NewService(config.DuesConfig{Enabled: false}, &fakeStore{}, &recordingNotifier{}, nil)

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for a disabled scheduler")
	}
}
