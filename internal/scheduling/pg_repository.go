package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block
	var appointmentID *uuid.UUID

	err := row.Scan(
		&b.ID,
		&b.OrgID,
		&b.EmployeeID,
		&b.Start,
		&b.End,
		&b.Type,
		&appointmentID,
		&b.Description,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}

	b.AppointmentID = appointmentID
	return &b, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.OrgID,
		&a.ClientID,
		&a.EmployeeIDs,
		&a.ServiceIDs,
		&a.ServiceDurations,
		&a.Start,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanClosure(row pgx.Row) (*OrgClosure, error) {
	var c OrgClosure
	var yearRef *int

	err := row.Scan(
		&c.ID,
		&c.OrgID,
		&c.StartDate,
		&c.EndDate,
		&c.Type,
		&c.Active,
		&c.Origin,
		&yearRef,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.YearRef = yearRef
	return &c, nil
}

// Interface methods

func (r *PgRepository) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM organizations
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetEmployeeByID(ctx context.Context, id uuid.UUID) (*Employee, error) {
	var e Employee
	err := r.pool.QueryRow(ctx, `
		SELECT id, org_id, name, created_at, updated_at
		FROM employees
		WHERE id = $1
	`, id).Scan(&e.ID, &e.OrgID, &e.Name, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}

	week, err := r.loadWeek(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load work schedule: %w", err)
	}
	e.Week = week

	return &e, nil
}

// loadWeek assembles the recurring weekly schedule from the work_days and
// work_day_ranges tables. Ranges come back ordered by start minute.
func (r *PgRepository) loadWeek(ctx context.Context, employeeID uuid.UUID) (map[time.Weekday]WorkDay, error) {
	week := make(map[time.Weekday]WorkDay)

	rows, err := r.pool.Query(ctx, `
		SELECT weekday, active
		FROM work_days
		WHERE employee_id = $1
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var weekday int
		var active bool
		if err := rows.Scan(&weekday, &active); err != nil {
			return nil, err
		}
		week[time.Weekday(weekday)] = WorkDay{Active: active}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rangeRows, err := r.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute
		FROM work_day_ranges
		WHERE employee_id = $1
		ORDER BY weekday, start_minute
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rangeRows.Close()

	for rangeRows.Next() {
		var weekday, startMinute, endMinute int
		if err := rangeRows.Scan(&weekday, &startMinute, &endMinute); err != nil {
			return nil, err
		}
		day := week[time.Weekday(weekday)]
		day.Ranges = append(day.Ranges, TimeRange{StartMinute: startMinute, EndMinute: endMinute})
		week[time.Weekday(weekday)] = day
	}
	return week, rangeRows.Err()
}

func (r *PgRepository) GetServicesByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]ServiceOffering, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, org_id, name, duration_minutes, price_cents, created_at, updated_at
		FROM services
		WHERE org_id = $1 AND id = ANY($2)
	`, orgID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]ServiceOffering, len(ids))
	for rows.Next() {
		var s ServiceOffering
		if err := rows.Scan(&s.ID, &s.OrgID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve the requested order; duplicates book the service twice.
	result := make([]ServiceOffering, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, id)
		}
		result = append(result, s)
	}
	return result, nil
}

func (r *PgRepository) ListBlocksInRange(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]Block, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, org_id, employee_id, start_at, end_at, type, appointment_id, description, created_at, updated_at
		FROM blocks
		WHERE employee_id = $1
		  AND start_at < $3
		  AND end_at > $2
		ORDER BY start_at
	`, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetBlockByID(ctx context.Context, id uuid.UUID) (*Block, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, org_id, employee_id, start_at, end_at, type, appointment_id, description, created_at, updated_at
		FROM blocks
		WHERE id = $1
	`, id)
	return scanBlock(row)
}

func (r *PgRepository) CreateBlock(ctx context.Context, b *Block) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO blocks (id, org_id, employee_id, start_at, end_at, type, appointment_id, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`, b.ID, b.OrgID, b.EmployeeID, b.Start, b.End, b.Type, b.AppointmentID, b.Description)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

func (r *PgRepository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}

func (r *PgRepository) DeleteBlocksByAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM blocks WHERE appointment_id = $1`, appointmentID)
	if err != nil {
		return fmt.Errorf("delete appointment blocks: %w", err)
	}
	return nil
}

func (r *PgRepository) ListClosuresInRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]OrgClosure, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, org_id, start_date, end_date, type, active, origin, year_ref, created_at, updated_at
		FROM org_closures
		WHERE org_id = $1
		  AND active
		  AND start_date <= $3
		  AND end_date >= $2
		ORDER BY start_date
	`, orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OrgClosure
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpsertImportedClosure(ctx context.Context, c *OrgClosure) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO org_closures (id, org_id, start_date, end_date, type, active, origin, year_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (org_id, origin, start_date)
		DO UPDATE SET end_date = EXCLUDED.end_date,
		              active = EXCLUDED.active,
		              year_ref = EXCLUDED.year_ref,
		              updated_at = now()
	`, c.ID, c.OrgID, c.StartDate, c.EndDate, c.Type, c.Active, c.Origin, c.YearRef)
	if err != nil {
		return fmt.Errorf("upsert closure: %w", err)
	}
	return nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, org_id, client_id, employee_ids, service_ids, service_durations, start_at, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindAppointmentsNear(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	// The occupied end is derived from service durations, so the query
	// over-fetches by a day and the service applies the exact overlap test.
	rows, err := r.pool.Query(ctx, `
		SELECT id, org_id, client_id, employee_ids, service_ids, service_durations, start_at, status, created_at, updated_at
		FROM appointments
		WHERE $1 = ANY(employee_ids)
		  AND status IN ('pending', 'scheduled')
		  AND start_at < $3
		  AND start_at > $2 - interval '24 hours'
		ORDER BY start_at
	`, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateAppointmentWithBlocks(ctx context.Context, a *Appointment, blocks []Block) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, org_id, client_id, employee_ids, service_ids, service_durations, start_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`, a.ID, a.OrgID, a.ClientID, a.EmployeeIDs, a.ServiceIDs, a.ServiceDurations, a.Start, a.Status)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	for _, b := range blocks {
		_, err = tx.Exec(ctx, `
			INSERT INTO blocks (id, org_id, employee_id, start_at, end_at, type, appointment_id, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		`, b.ID, b.OrgID, b.EmployeeID, b.Start, b.End, b.Type, b.AppointmentID, b.Description)
		if err != nil {
			return fmt.Errorf("insert appointment block: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, org_id, client_id, employee_ids, service_ids, service_durations, start_at, status, created_at, updated_at
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (org_id, event_type, appointment_id, block_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`, ev.OrgID, ev.EventType, ev.AppointmentID, ev.BlockID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
