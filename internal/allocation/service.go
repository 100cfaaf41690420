// Package allocation assigns students to rooms and reverses those
// assignments while keeping room seat counters in step with the ledger.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"time"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/document"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/store"
)

// Notifier queues notifications without blocking.
type Notifier interface {
	Dispatch(msg notification.Message) bool
}

type discard struct{}

func (discard) Dispatch(notification.Message) bool { return false }

// Service runs allocation operations. Every seat counter change and its
// allocation row change happen in one store transaction.
type Service struct {
	store    store.Store
	notifier Notifier
	docs     *document.Renderer
	metrics  *metrics.Metrics
	cfg      config.AllocationConfig
	now      func() time.Time
}

// NewService creates a Service. A nil notifier drops notifications.
func NewService(s store.Store, n Notifier, docs *document.Renderer, m *metrics.Metrics, cfg config.AllocationConfig) *Service {
	if n == nil {
		n = discard{}
	}
	if docs == nil {
		docs = document.NewRenderer()
	}
	if cfg.DueDays <= 0 {
		cfg.DueDays = 15
	}
	return &Service{store: s, notifier: n, docs: docs, metrics: m, cfg: cfg, now: time.Now}
}

// AllocateRequest names the student and the room they should get.
type AllocateRequest struct {
	StudentID int64 `json:"studentId" binding:"required,gt=0"`
	HostelID  int64 `json:"hostelId" binding:"required,gt=0"`
	RoomID    int64 `json:"roomId" binding:"required,gt=0"`
}

// AllocateOptions selects the allocation variant.
type AllocateOptions struct {
	// ChargeFee creates a pending hostel fee for the student with the allocation.
	ChargeFee bool
	// InScope restricts the hostels the caller may allocate into. Nil allows all.
	InScope func(hostelID int64) bool
}

// AllocateResult is the committed allocation and the fee created with it.
type AllocateResult struct {
	Allocation *model.RoomAllocation `json:"allocation"`
	Payment    *model.Payment        `json:"payment,omitempty"`
}

// AllocateRoom assigns the student to the room. Preconditions are checked in
// order: the student exists, has no active allocation, the hostel is in the
// caller's scope, and the room belongs to the hostel with a vacant seat. A
// hostel out of scope or a room in another hostel is reported the same as a
// missing room.
func (s *Service) AllocateRoom(ctx context.Context, req AllocateRequest, opts AllocateOptions) (*AllocateResult, error) {
	now := s.now()
	var (
		res     AllocateResult
		student *model.Student
		room    *model.Room
	)

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		student, err = lockStudent(ctx, tx, req.StudentID)
		if err != nil {
			return err
		}

		if _, err := tx.ActiveAllocation(ctx, student.ID); err == nil {
			return apperr.Conflict("Student already has an active room allocation").
				WithDetails(map[string]any{"studentId": student.ID})
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if opts.InScope != nil && !opts.InScope(req.HostelID) {
			return roomUnavailable(req)
		}

		room, err = tx.FindVacantRoom(ctx, req.HostelID, req.RoomID)
		if errors.Is(err, store.ErrNotFound) {
			return roomUnavailable(req)
		}
		if err != nil {
			return err
		}

		res.Allocation, err = tx.Allot(ctx, student, room.ID, now)
		if errors.Is(err, store.ErrNoVacancy) {
			return roomUnavailable(req)
		}
		if err != nil {
			return err
		}

		if opts.ChargeFee {
			res.Payment, err = s.createFee(ctx, tx, student, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.internal(err, "Failed to allocate room")
	}

	s.metrics.Allocated("single")
	log.Printf("Allocated student %d to room %d (allocation %d)", student.ID, room.ID, res.Allocation.ID)
	s.notifyAllocation(ctx, student, room, res)
	return &res, nil
}

func roomUnavailable(req AllocateRequest) error {
	return apperr.NotFound("Room not found or no vacant seats available").
		WithDetails(map[string]any{"hostelId": req.HostelID, "roomId": req.RoomID})
}

// createFee writes the hostel fee owed for the allocation. The amount comes
// from the pricing plan for the student's semester and year when one exists.
func (s *Service) createFee(ctx context.Context, tx store.Store, student *model.Student, now time.Time) (*model.Payment, error) {
	amount := s.cfg.FeeAmount
	plan, err := tx.FindPricingPlan(ctx, student.Semester, student.Year)
	switch {
	case err == nil:
		amount = plan.Price
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	payment := &model.Payment{
		UserID:      student.UserID,
		Amount:      amount,
		Description: s.cfg.FeeDescription,
		DueDate:     now.AddDate(0, 0, s.cfg.DueDays),
		Semester:    student.Semester,
		Year:        student.Year,
		Status:      model.PaymentPending,
	}
	if err := tx.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// Mode selects how an active allocation is ended.
type Mode string

const (
	// ModeRemove ends the allocation without recording when.
	ModeRemove Mode = "remove"
	// ModeDeallocate ends the allocation and stamps the deallocation time.
	ModeDeallocate Mode = "deallocate"
)

func (m Mode) notAllocated() string {
	if m == ModeRemove {
		return "Student is not allocated to any hostel"
	}
	return "Student is not allocated to any room"
}

// Deallocate ends the student's active allocation and frees the seat.
// Calling it again fails without touching the room.
func (s *Service) Deallocate(ctx context.Context, studentID int64, mode Mode) (*model.RoomAllocation, error) {
	now := s.now()
	var allocation *model.RoomAllocation

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		student, err := lockStudent(ctx, tx, studentID)
		if err != nil {
			return err
		}

		allocation, err = tx.ActiveAllocation(ctx, student.ID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Conflict(mode.notAllocated())
		}
		if err != nil {
			return err
		}

		err = tx.Release(ctx, allocation, mode == ModeDeallocate, now)
		if errors.Is(err, store.ErrNotActive) {
			return apperr.Conflict(mode.notAllocated())
		}
		return err
	})
	if err != nil {
		return nil, s.internal(err, "Failed to deallocate room")
	}

	s.metrics.Released(string(mode))
	log.Printf("Released allocation %d of student %d (%s)", allocation.ID, studentID, mode)
	return allocation, nil
}

// DeleteStudent frees the student's seat, if any, and deletes the student with
// its allocation history, payments and identity.
func (s *Service) DeleteStudent(ctx context.Context, studentID int64) error {
	now := s.now()
	var (
		student *model.Student
		user    *model.User
		seated  bool
	)

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		student, err = lockStudent(ctx, tx, studentID)
		if err != nil {
			return err
		}

		if _, err := tx.ActiveAllocation(ctx, student.ID); err == nil {
			seated = true
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		user, err = tx.GetUser(ctx, student.UserID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		return tx.PurgeStudent(ctx, student, now)
	})
	if err != nil {
		return s.internal(err, "Failed to delete student")
	}

	if seated {
		s.metrics.Released("delete")
	}
	log.Printf("Deleted student %d", studentID)

	if user != nil {
		s.notifier.Dispatch(notification.Message{
			To:      user.Email,
			Subject: "Your Account Deleted",
			HTML:    fmt.Sprintf("<p>Hello %s,</p><p>Your student account has been deleted from the system.</p>", html.EscapeString(student.FullName)),
		})
	}
	return nil
}

// StudentHostelID returns the hostel of the student's active allocation.
func (s *Service) StudentHostelID(ctx context.Context, studentID int64) (int64, error) {
	allocation, err := s.store.ActiveAllocation(ctx, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, apperr.NotFound("Student not found in your assigned hostels")
	}
	if err != nil {
		return 0, s.internal(err, "Failed to load student")
	}
	room, err := s.store.GetRoom(ctx, allocation.RoomID)
	if err != nil {
		return 0, s.internal(err, "Failed to load student")
	}
	return room.HostelID, nil
}

func lockStudent(ctx context.Context, tx store.Store, id int64) (*model.Student, error) {
	student, err := tx.LockStudent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Student not found")
	}
	return student, err
}

// internal passes typed errors through and hides everything else behind a
// generic message.
func (s *Service) internal(err error, msg string) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	log.Printf("%s: %v", msg, err)
	return apperr.Internal(msg, err)
}

// notifyAllocation emails the allocation letter, and the invoice when a fee
// was created. Failures are logged only.
func (s *Service) notifyAllocation(ctx context.Context, student *model.Student, room *model.Room, res AllocateResult) {
	user, err := s.store.GetUser(ctx, student.UserID)
	if err != nil {
		log.Printf("Error loading user %d for allocation notice: %v", student.UserID, err)
		return
	}
	hostelName := fmt.Sprintf("Hostel %d", room.HostelID)
	if hostel, err := s.store.GetHostel(ctx, room.HostelID); err != nil {
		log.Printf("Error loading hostel %d for allocation notice: %v", room.HostelID, err)
	} else {
		hostelName = hostel.Name
	}

	msg := notification.Message{
		To:      user.Email,
		Subject: "Room Allocated",
		HTML: fmt.Sprintf("<p>Dear %s,</p><p>You have been allotted room %s in %s.</p>",
			html.EscapeString(student.FullName), html.EscapeString(room.RoomNumber), html.EscapeString(hostelName)),
		UserID: user.ID,
		Push:   fmt.Sprintf("Room %s in %s has been allotted to you", room.RoomNumber, hostelName),
	}

	letter, err := s.docs.Letter(document.AllocationLetter{
		StudentName:    student.FullName,
		RollNo:         student.RollNo,
		RegistrationNo: student.RegistrationNo,
		HostelName:     hostelName,
		RoomNumber:     room.RoomNumber,
		RoomType:       string(room.RoomType),
		Semester:       res.Allocation.Semester,
		Year:           res.Allocation.Year,
		IssuedAt:       res.Allocation.CreatedAt,
	})
	if err != nil {
		log.Printf("Error rendering allocation letter for student %d: %v", student.ID, err)
	} else {
		msg.Attachments = append(msg.Attachments, notification.Attachment{Name: "allocation-letter.html", ContentType: "text/html", Data: letter})
	}

	if p := res.Payment; p != nil {
		invoice, err := s.docs.Invoice(document.Invoice{
			Number:      fmt.Sprintf("INV-%d", p.ID),
			StudentName: student.FullName,
			Email:       user.Email,
			Description: p.Description,
			Amount:      p.Amount,
			DueDate:     p.DueDate,
			Semester:    p.Semester,
			Year:        p.Year,
			IssuedAt:    p.CreatedAt,
		})
		if err != nil {
			log.Printf("Error rendering invoice for payment %d: %v", p.ID, err)
		} else {
			msg.Attachments = append(msg.Attachments, notification.Attachment{Name: "invoice.html", ContentType: "text/html", Data: invoice})
		}
	}

	s.notifier.Dispatch(msg)
}
