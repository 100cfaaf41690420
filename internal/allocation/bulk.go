package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
)

const (
	failNoRooms   = "No rooms available"
	failAllocRoom = "Failed to allocate room"
)

// BulkAllocation is one successful pairing of a bulk run.
type BulkAllocation struct {
	StudentID   int64  `json:"studentId"`
	StudentName string `json:"studentName"`
	RoomID      int64  `json:"roomId"`
	RoomNumber  string `json:"roomNumber"`
	HostelName  string `json:"hostelName"`
}

// BulkFailure is a student a bulk run could not place.
type BulkFailure struct {
	StudentID   int64  `json:"studentId"`
	StudentName string `json:"studentName"`
	Error       string `json:"error"`
}

// BulkReport is the outcome of a bulk run.
type BulkReport struct {
	RunID         string           `json:"runId"`
	TotalStudents int              `json:"totalStudents"`
	Allocated     int              `json:"allocated"`
	Failed        int              `json:"failed"`
	Allocations   []BulkAllocation `json:"allocations"`
	Errors        []BulkFailure    `json:"errors"`
}

// candidate tracks a room during a bulk run. consumed starts at the active
// allocation count and grows as the run fills the room.
type candidate struct {
	room      model.Room
	consumed  int64
	exhausted bool
}

func (c *candidate) liveVacancy() int64 {
	if c.exhausted {
		return 0
	}
	return int64(c.room.TotalSeats) - c.consumed
}

// AllocateUnallocatedBulk places every student without an active allocation,
// farthest from college first, into the first room that still has a seat.
// Rooms are scanned by hostel id, natural room number, then room id. Each
// pairing commits on its own, so a failed student never undoes earlier ones
// and the run can simply be repeated.
func (s *Service) AllocateUnallocatedBulk(ctx context.Context) (*BulkReport, error) {
	startedAt := s.now()
	report := &BulkReport{
		RunID:       uuid.NewString(),
		Allocations: []BulkAllocation{},
		Errors:      []BulkFailure{},
	}

	students, err := s.store.ListUnallocatedStudents(ctx)
	if err != nil {
		return nil, s.internal(err, "Failed to run bulk allocation")
	}
	vacant, err := s.store.ListVacantRooms(ctx)
	if err != nil {
		return nil, s.internal(err, "Failed to run bulk allocation")
	}

	candidates := make([]*candidate, len(vacant))
	for i, v := range vacant {
		candidates[i] = &candidate{room: v.Room, consumed: v.ActiveCount}
	}
	hostelNames := s.hostelNames(ctx, vacant)

	log.Printf("Bulk run %s: %d students, %d candidate rooms", report.RunID, len(students), len(candidates))
	report.TotalStudents = len(students)

	for i := range students {
		student := &students[i]
		placed, failure := s.placeStudent(ctx, student, candidates)
		if failure != "" {
			report.Errors = append(report.Errors, BulkFailure{
				StudentID:   student.ID,
				StudentName: student.FullName,
				Error:       failure,
			})
			continue
		}
		report.Allocations = append(report.Allocations, BulkAllocation{
			StudentID:   student.ID,
			StudentName: student.FullName,
			RoomID:      placed.ID,
			RoomNumber:  placed.RoomNumber,
			HostelName:  hostelNames[placed.HostelID],
		})
		s.metrics.Allocated("bulk")
	}

	report.Allocated = len(report.Allocations)
	report.Failed = len(report.Errors)
	s.metrics.BulkFailed(report.Failed)
	log.Printf("Bulk run %s complete: %d allocated, %d failed", report.RunID, report.Allocated, report.Failed)

	s.saveRun(ctx, report, startedAt)
	return report, nil
}

// placeStudent commits the student into the first candidate with a live seat.
// A candidate that lost its last seat to a concurrent writer is marked
// exhausted and the scan moves on. Any other failure ends the student's turn.
func (s *Service) placeStudent(ctx context.Context, student *model.Student, candidates []*candidate) (*model.Room, string) {
	for _, c := range candidates {
		if c.liveVacancy() <= 0 {
			continue
		}

		_, err := s.store.Allot(ctx, student, c.room.ID, s.now())
		if errors.Is(err, store.ErrNoVacancy) {
			c.exhausted = true
			continue
		}
		if err != nil {
			log.Printf("Error allocating student %d to room %d: %v", student.ID, c.room.ID, err)
			return nil, failAllocRoom
		}

		c.consumed++
		return &c.room, ""
	}
	return nil, failNoRooms
}

func (s *Service) hostelNames(ctx context.Context, rooms []store.RoomVacancy) map[int64]string {
	names := make(map[int64]string)
	for _, r := range rooms {
		id := r.Room.HostelID
		if _, ok := names[id]; ok {
			continue
		}
		hostel, err := s.store.GetHostel(ctx, id)
		if err != nil {
			log.Printf("Error loading hostel %d for bulk report: %v", id, err)
			names[id] = ""
			continue
		}
		names[id] = hostel.Name
	}
	return names
}

// saveRun records the report for auditing. Failures are logged only.
func (s *Service) saveRun(ctx context.Context, report *BulkReport, startedAt time.Time) {
	body, err := json.Marshal(report)
	if err != nil {
		log.Printf("Error encoding bulk run %s: %v", report.RunID, err)
		return
	}
	run := &model.AllocationRun{
		RunID:         report.RunID,
		StartedAt:     startedAt,
		FinishedAt:    s.now(),
		TotalStudents: report.TotalStudents,
		Allocated:     report.Allocated,
		Failed:        report.Failed,
		Report:        datatypes.JSON(body),
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		log.Printf("Error saving bulk run %s: %v", report.RunID, err)
	}
}
