package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCanceled  = "APPOINTMENT_CANCELED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventBlockCreated         = "BLOCK_CREATED"
	EventBlockRemoved         = "BLOCK_REMOVED"
)

// Locker guards the check-then-create window for a single employee. Two
// concurrent writers for the same key must never run fn at the same time.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// BlockReleasePolicy decides what happens to an appointment's per-employee
// blocks when the appointment is canceled.
type BlockReleasePolicy string

const (
	// ReleaseOnCancel deletes the blocks so the window becomes bookable again.
	ReleaseOnCancel BlockReleasePolicy = "release"
	// RetainOnCancel keeps the blocks; staff free the window by hand.
	RetainOnCancel BlockReleasePolicy = "retain"
)

// ParseBlockReleasePolicy validates a configured policy string.
func ParseBlockReleasePolicy(s string) (BlockReleasePolicy, error) {
	switch p := BlockReleasePolicy(s); p {
	case ReleaseOnCancel, RetainOnCancel:
		return p, nil
	}
	return "", fmt.Errorf("%w: invalid block release policy %q", ErrValidation, s)
}

// ConflictReport lists appointments that occupy part of a requested manual
// block. It is returned as data, not an error: resolving it (reschedule or
// cancel the appointments first) is a human decision.
type ConflictReport struct {
	Appointments []Appointment
}

// BlockList is the result of a block range listing: the employee's own
// blocks plus the organization-wide closures intersecting the range.
type BlockList struct {
	Blocks   []Block
	Closures []OrgClosure
}

type Options struct {
	Tolerance    time.Duration
	CancelPolicy BlockReleasePolicy
	Logger       *zap.Logger
}

// Service is the availability and booking engine. All operations take the
// organization id explicitly; there is no ambient tenant state.
type Service struct {
	repo         Repository
	locker       Locker
	tolerance    time.Duration
	cancelPolicy BlockReleasePolicy
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(repo Repository, locker Locker, opts Options) *Service {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.CancelPolicy == "" {
		opts.CancelPolicy = ReleaseOnCancel
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		repo:         repo,
		locker:       locker,
		tolerance:    opts.Tolerance,
		cancelPolicy: opts.CancelPolicy,
		logger:       opts.Logger,
		now:          time.Now,
	}
}

// GetAvailableSlots computes the bookable slots for an employee on a date,
// long enough for all requested services performed back to back.
func (s *Service) GetAvailableSlots(ctx context.Context, orgID, employeeID uuid.UUID, date time.Time, serviceIDs []uuid.UUID) ([]Slot, error) {
	emp, err := s.employee(ctx, orgID, employeeID)
	if err != nil {
		return nil, err
	}

	required, err := s.requiredDuration(ctx, orgID, serviceIDs)
	if err != nil {
		return nil, err
	}

	closed, err := s.orgClosed(ctx, orgID, date)
	if err != nil {
		return nil, err
	}
	if closed {
		return []Slot{}, nil
	}

	wd, ok := emp.WorkDayOn(date.Weekday())
	if !ok || !wd.Active {
		return []Slot{}, nil
	}

	dayStart := truncateToDay(date)
	blocks, err := s.repo.ListBlocksInRange(ctx, employeeID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	busy := make([]Interval, 0, len(blocks))
	for _, b := range blocks {
		busy = append(busy, Interval{Start: b.Start, End: b.End})
	}

	slots := ComputeDaySlots(wd, date, busy, required, s.tolerance)
	if slots == nil {
		slots = []Slot{}
	}
	return slots, nil
}

// CreateAppointment books all requested services with every assigned
// employee at once. Validation runs for every employee before anything is
// written, so a failure for one employee books nothing for the others.
func (s *Service) CreateAppointment(ctx context.Context, orgID, clientID uuid.UUID, employeeIDs, serviceIDs []uuid.UUID, start time.Time) (*Appointment, error) {
	if len(employeeIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one employee is required", ErrValidation)
	}
	employeeIDs = dedupeIDs(employeeIDs)

	if start.Before(s.now()) {
		return nil, fmt.Errorf("%w: %s", ErrPastDate, start.Format(time.RFC3339))
	}

	services, err := s.repo.GetServicesByIDs(ctx, orgID, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	required, durations := sumDurations(services)
	if required <= 0 {
		return nil, fmt.Errorf("%w: total service duration must be positive", ErrValidation)
	}

	window := Interval{Start: start, End: start.Add(required)}

	closed, err := s.orgClosed(ctx, orgID, start)
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, fmt.Errorf("%w: organization is closed on %s", ErrScheduleConflict, start.Format("2006-01-02"))
	}

	var created *Appointment

	err = s.withEmployeeLocks(ctx, employeeIDs, func(lockCtx context.Context) error {
		// Phase 1: validate every employee, mutate nothing.
		for _, empID := range employeeIDs {
			emp, err := s.employee(lockCtx, orgID, empID)
			if err != nil {
				return err
			}

			wd, ok := emp.WorkDayOn(start.Weekday())
			if !ok || !coveredByWorkDay(wd, start, window) {
				return fmt.Errorf("%w: employee %s on %s", ErrOutsideWorkHours, empID, start.Weekday())
			}

			overlapping, err := s.blocksOverlapping(lockCtx, empID, window)
			if err != nil {
				return err
			}
			if len(overlapping) > 0 {
				return fmt.Errorf("%w: employee %s", ErrScheduleConflict, empID)
			}
		}

		// Phase 2: commit the appointment plus one block per employee.
		appt := &Appointment{
			ID:               uuid.New(),
			OrgID:            orgID,
			ClientID:         clientID,
			EmployeeIDs:      employeeIDs,
			ServiceIDs:       serviceIDs,
			ServiceDurations: durations,
			Start:            start,
			Status:           StatusScheduled,
		}

		blocks := make([]Block, 0, len(employeeIDs))
		for _, empID := range employeeIDs {
			apptID := appt.ID
			blocks = append(blocks, Block{
				ID:            uuid.New(),
				OrgID:         orgID,
				EmployeeID:    empID,
				Start:         window.Start,
				End:           window.End,
				Type:          string(BlockAppointment),
				AppointmentID: &apptID,
				Description:   "appointment",
			})
		}

		if err := s.repo.CreateAppointmentWithBlocks(lockCtx, appt, blocks); err != nil {
			return fmt.Errorf("commit appointment: %w", err)
		}

		created = appt
		s.logEvent(lockCtx, EventAppointmentBooked, orgID, &appt.ID, nil, map[string]any{
			"employee_ids": employeeIDs,
			"start":        start,
			"end":          window.End,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.Int("employees", len(employeeIDs)),
		zap.Time("start", start))

	return created, nil
}

// CancelAppointment moves any non-terminal appointment to canceled. Whether
// its per-employee blocks are released is the configured policy, not a fixed
// behavior.
func (s *Service) CancelAppointment(ctx context.Context, orgID, id uuid.UUID) error {
	appt, err := s.appointment(ctx, orgID, id)
	if err != nil {
		return err
	}
	if appt.Status.IsTerminal() {
		return fmt.Errorf("%w: appointment is %s", ErrInvalidStatusTransition, appt.Status)
	}

	if _, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, StatusCanceled); err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}

	if s.cancelPolicy == ReleaseOnCancel {
		if err := s.repo.DeleteBlocksByAppointment(ctx, id); err != nil {
			return fmt.Errorf("release blocks: %w", err)
		}
	}

	s.logEvent(ctx, EventAppointmentCanceled, orgID, &id, nil, map[string]any{
		"block_policy": string(s.cancelPolicy),
	})
	return nil
}

// CompleteAppointment moves a pending or scheduled appointment to completed.
// Blocks are untouched: the time was genuinely spent.
func (s *Service) CompleteAppointment(ctx context.Context, orgID, id uuid.UUID) error {
	appt, err := s.appointment(ctx, orgID, id)
	if err != nil {
		return err
	}
	if appt.Status != StatusPending && appt.Status != StatusScheduled {
		return fmt.Errorf("%w: appointment is %s", ErrInvalidStatusTransition, appt.Status)
	}

	if _, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, StatusCompleted); err != nil {
		return fmt.Errorf("complete appointment: %w", err)
	}

	s.logEvent(ctx, EventAppointmentCompleted, orgID, &id, nil, nil)
	return nil
}

// GetAppointment loads an appointment, enforcing organization ownership.
func (s *Service) GetAppointment(ctx context.Context, orgID, id uuid.UUID) (*Appointment, error) {
	return s.appointment(ctx, orgID, id)
}

// CreateManualBlock reserves an interval by hand (break, vacation, ...).
// Overlap with existing manual blocks is a hard conflict. Overlap with
// appointments is reported back as a ConflictReport without creating the
// block, because appointments need an explicit reschedule or cancel first.
func (s *Service) CreateManualBlock(ctx context.Context, orgID, employeeID uuid.UUID, start, end time.Time, blockType ManualBlockType, description string) (*Block, *ConflictReport, error) {
	emp, err := s.employee(ctx, orgID, employeeID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := ParseManualBlockType(string(blockType)); err != nil {
		return nil, nil, err
	}
	if !end.After(start) {
		return nil, nil, fmt.Errorf("%w: end must be after start", ErrValidation)
	}
	if !sameDay(start, end) {
		return nil, nil, fmt.Errorf("%w: block must start and end on the same day", ErrValidation)
	}
	if start.Before(s.now()) {
		return nil, nil, fmt.Errorf("%w: %s", ErrPastDate, start.Format(time.RFC3339))
	}

	window := Interval{Start: start, End: end}
	wd, ok := emp.WorkDayOn(start.Weekday())
	if !ok || !coveredByWorkDay(wd, start, window) {
		return nil, nil, fmt.Errorf("%w: employee %s on %s", ErrOutsideWorkHours, employeeID, start.Weekday())
	}

	var (
		created *Block
		report  *ConflictReport
	)

	err = s.locker.WithLock(ctx, employeeLockKey(employeeID), func(lockCtx context.Context) error {
		overlapping, err := s.blocksOverlapping(lockCtx, employeeID, window)
		if err != nil {
			return err
		}
		for _, b := range overlapping {
			// Appointment blocks are handled below through the appointment
			// table, so a stale or retained block does not mask the report.
			if !b.IsAppointment() {
				return fmt.Errorf("%w: overlaps block %s", ErrScheduleConflict, b.ID)
			}
		}

		conflicting, err := s.FindConflictingAppointments(lockCtx, employeeID, start, end)
		if err != nil {
			return err
		}
		if len(conflicting) > 0 {
			report = &ConflictReport{Appointments: conflicting}
			return nil
		}

		b := &Block{
			ID:          uuid.New(),
			OrgID:       orgID,
			EmployeeID:  employeeID,
			Start:       start,
			End:         end,
			Type:        string(blockType),
			Description: description,
		}
		if err := s.repo.CreateBlock(lockCtx, b); err != nil {
			return fmt.Errorf("create block: %w", err)
		}

		created = b
		s.logEvent(lockCtx, EventBlockCreated, orgID, nil, &b.ID, map[string]any{
			"employee_id": employeeID,
			"type":        string(blockType),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return created, report, nil
}

// RemoveManualBlock deletes a manual block. Appointment blocks cannot be
// removed this way; the appointment has to be canceled instead.
func (s *Service) RemoveManualBlock(ctx context.Context, orgID, employeeID, blockID uuid.UUID) error {
	b, err := s.repo.GetBlockByID(ctx, blockID)
	if err != nil {
		return fmt.Errorf("load block: %w", err)
	}
	if b.OrgID != orgID {
		return fmt.Errorf("%w: block %s", ErrForbidden, blockID)
	}
	if b.EmployeeID != employeeID {
		return fmt.Errorf("%w: block %s does not belong to employee %s", ErrBlockNotFound, blockID, employeeID)
	}
	if b.IsAppointment() {
		return fmt.Errorf("%w: appointment blocks are removed by canceling the appointment", ErrValidation)
	}

	if err := s.repo.DeleteBlock(ctx, blockID); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}

	s.logEvent(ctx, EventBlockRemoved, orgID, nil, &blockID, map[string]any{
		"employee_id": employeeID,
	})
	return nil
}

// ListBlocks returns the employee's blocks and the organization closures
// intersecting [from, to).
func (s *Service) ListBlocks(ctx context.Context, orgID, employeeID uuid.UUID, from, to time.Time) (*BlockList, error) {
	if _, err := s.employee(ctx, orgID, employeeID); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: range end must be after range start", ErrValidation)
	}

	blocks, err := s.repo.ListBlocksInRange(ctx, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	closures, err := s.repo.ListClosuresInRange(ctx, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}

	return &BlockList{Blocks: blocks, Closures: closures}, nil
}

// FindConflictingAppointments returns the employee's non-terminal
// appointments whose occupied interval, recomputed from their service
// durations, overlaps [from, to). It is a query: callers decide how the
// conflict is resolved.
func (s *Service) FindConflictingAppointments(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	candidates, err := s.repo.FindAppointmentsNear(ctx, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("find appointments: %w", err)
	}

	window := Interval{Start: from, End: to}
	var conflicting []Appointment
	for _, a := range candidates {
		if a.Status.IsTerminal() {
			continue
		}
		if window.Overlaps(Interval{Start: a.Start, End: a.End()}) {
			conflicting = append(conflicting, a)
		}
	}
	return conflicting, nil
}

// Helpers

func (s *Service) employee(ctx context.Context, orgID, id uuid.UUID) (*Employee, error) {
	emp, err := s.repo.GetEmployeeByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if emp.OrgID != orgID {
		return nil, fmt.Errorf("%w: employee %s", ErrForbidden, id)
	}
	return emp, nil
}

func (s *Service) appointment(ctx context.Context, orgID, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.OrgID != orgID {
		return nil, fmt.Errorf("%w: appointment %s", ErrForbidden, id)
	}
	return appt, nil
}

func (s *Service) requiredDuration(ctx context.Context, orgID uuid.UUID, serviceIDs []uuid.UUID) (time.Duration, error) {
	services, err := s.repo.GetServicesByIDs(ctx, orgID, serviceIDs)
	if err != nil {
		return 0, fmt.Errorf("load services: %w", err)
	}
	required, _ := sumDurations(services)
	if required <= 0 {
		return 0, fmt.Errorf("%w: total service duration must be positive", ErrValidation)
	}
	return required, nil
}

func (s *Service) orgClosed(ctx context.Context, orgID uuid.UUID, date time.Time) (bool, error) {
	day := truncateToDay(date)
	closures, err := s.repo.ListClosuresInRange(ctx, orgID, day, day)
	if err != nil {
		return false, fmt.Errorf("list closures: %w", err)
	}
	for _, c := range closures {
		if c.Covers(date) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) blocksOverlapping(ctx context.Context, employeeID uuid.UUID, window Interval) ([]Block, error) {
	blocks, err := s.repo.ListBlocksInRange(ctx, employeeID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	overlapping := blocks[:0]
	for _, b := range blocks {
		if window.Overlaps(Interval{Start: b.Start, End: b.End}) {
			overlapping = append(overlapping, b)
		}
	}
	return overlapping, nil
}

// withEmployeeLocks acquires one lock per employee in sorted id order, so two
// bookings sharing a pair of employees cannot deadlock against each other.
func (s *Service) withEmployeeLocks(ctx context.Context, employeeIDs []uuid.UUID, fn func(ctx context.Context) error) error {
	if len(employeeIDs) == 0 {
		return fn(ctx)
	}
	head, rest := employeeIDs[0], employeeIDs[1:]
	return s.locker.WithLock(ctx, employeeLockKey(head), func(lockCtx context.Context) error {
		return s.withEmployeeLocks(lockCtx, rest, fn)
	})
}

func employeeLockKey(id uuid.UUID) string {
	return fmt.Sprintf("employee:%s", id)
}

func (s *Service) logEvent(ctx context.Context, eventType string, orgID uuid.UUID, appointmentID, blockID *uuid.UUID, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	ev := EventLog{
		OrgID:         orgID,
		EventType:     eventType,
		AppointmentID: appointmentID,
		BlockID:       blockID,
		Payload:       data,
		CreatedAt:     s.now(),
	}
	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("insert event log", zap.String("event", eventType), zap.Error(err))
	}
}

func sumDurations(services []ServiceOffering) (time.Duration, []int) {
	total := 0
	durations := make([]int, 0, len(services))
	for _, svc := range services {
		total += svc.DurationMinutes
		durations = append(durations, svc.DurationMinutes)
	}
	return time.Duration(total) * time.Minute, durations
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
