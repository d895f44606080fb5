package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCanceled  AppointmentStatus = "canceled"
)

// IsTerminal reports whether no further status transition is allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// ManualBlockType is the closed set of block types staff may create by hand.
// Appointment blocks are never a member; they can only be created by the
// booking path, so a manual request cannot forge one.
type ManualBlockType string

const (
	BlockBreak    ManualBlockType = "break"
	BlockMeeting  ManualBlockType = "meeting"
	BlockVacation ManualBlockType = "vacation"
	BlockDayOff   ManualBlockType = "day_off"
	BlockOther    ManualBlockType = "other"
)

// SystemBlockType is the closed set of block types the engine creates itself.
type SystemBlockType string

const BlockAppointment SystemBlockType = "appointment"

// ParseManualBlockType validates a wire-level type string against the manual
// set. "appointment" (or anything else outside the set) is rejected.
func ParseManualBlockType(s string) (ManualBlockType, error) {
	switch t := ManualBlockType(s); t {
	case BlockBreak, BlockMeeting, BlockVacation, BlockDayOff, BlockOther:
		return t, nil
	}
	return "", fmt.Errorf("%w: invalid manual block type %q", ErrValidation, s)
}

// TimeRange is a wall-clock interval within a single day, expressed in
// minutes since midnight. StartMinute < EndMinute always.
type TimeRange struct {
	StartMinute int
	EndMinute   int
}

// On anchors the range to a concrete calendar date.
func (r TimeRange) On(date time.Time) (start, end time.Time) {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return midnight.Add(time.Duration(r.StartMinute) * time.Minute),
		midnight.Add(time.Duration(r.EndMinute) * time.Minute)
}

// WorkDay is an employee's recurring availability for one weekday. Ranges are
// ordered and pairwise non-overlapping; producers of schedule data guarantee
// that.
type WorkDay struct {
	Active bool
	Ranges []TimeRange
}

type Employee struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Name      string
	Week      map[time.Weekday]WorkDay
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkDayOn resolves the recurring schedule entry for a weekday. The second
// return is false when no entry exists at all.
func (e *Employee) WorkDayOn(day time.Weekday) (WorkDay, bool) {
	wd, ok := e.Week[day]
	return wd, ok
}

// Block marks an employee unavailable for an interval. Type is either a
// ManualBlockType value or BlockAppointment; appointment blocks carry the
// owning appointment's id.
type Block struct {
	ID            uuid.UUID
	OrgID         uuid.UUID
	EmployeeID    uuid.UUID
	Start         time.Time
	End           time.Time
	Type          string
	AppointmentID *uuid.UUID
	Description   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsAppointment reports whether the block was produced by a booking.
func (b *Block) IsAppointment() bool {
	return b.Type == string(BlockAppointment)
}

type ClosureType string

const (
	ClosureHoliday ClosureType = "holiday"
	ClosureBlock   ClosureType = "block"
)

type ClosureOrigin string

const (
	OriginManual         ClosureOrigin = "manual"
	OriginNationalImport ClosureOrigin = "national_import"
)

// OrgClosure is an organization-wide date range during which no employee is
// bookable. StartDate and EndDate are inclusive calendar dates (midnight in
// the org's location).
type OrgClosure struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Type      ClosureType
	Active    bool
	Origin    ClosureOrigin
	YearRef   *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Covers reports whether the closure suspends booking on the given date.
func (c *OrgClosure) Covers(date time.Time) bool {
	if !c.Active {
		return false
	}
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return !d.Before(truncateToDay(c.StartDate)) && !d.After(truncateToDay(c.EndDate))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ServiceOffering is a bookable service with a fixed duration.
type ServiceOffering struct {
	ID              uuid.UUID
	OrgID           uuid.UUID
	Name            string
	DurationMinutes int
	PriceCents      int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Appointment is a booking of one or more services performed by one or more
// employees. It stores the service durations as booked; the occupied interval
// is always recomputed from them rather than persisted.
type Appointment struct {
	ID               uuid.UUID
	OrgID            uuid.UUID
	ClientID         uuid.UUID
	EmployeeIDs      []uuid.UUID
	ServiceIDs       []uuid.UUID
	ServiceDurations []int
	Start            time.Time
	Status           AppointmentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TotalDuration sums the booked service durations.
func (a *Appointment) TotalDuration() time.Duration {
	total := 0
	for _, m := range a.ServiceDurations {
		total += m
	}
	return time.Duration(total) * time.Minute
}

// End derives the occupied interval's end from the service durations.
func (a *Appointment) End() time.Time {
	return a.Start.Add(a.TotalDuration())
}

// Slot is a bookable interval offered to a client.
type Slot struct {
	Start time.Time
	End   time.Time
}

type EventLog struct {
	ID            int64
	OrgID         uuid.UUID
	EventType     string
	AppointmentID *uuid.UUID
	BlockID       *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
