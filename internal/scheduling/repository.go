package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all storage interactions needed by the engine. Reads
// that feed a conflict check are range-filtered so the overlap test itself
// stays in the service.
type Repository interface {
	ListOrganizations(ctx context.Context) ([]Organization, error)

	GetEmployeeByID(ctx context.Context, id uuid.UUID) (*Employee, error)

	// GetServicesByIDs resolves offerings in the order requested and fails
	// with ErrServiceNotFound if any id is unknown.
	GetServicesByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]ServiceOffering, error)

	// ListBlocksInRange returns the employee's blocks strictly overlapping
	// [from, to).
	ListBlocksInRange(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]Block, error)
	GetBlockByID(ctx context.Context, id uuid.UUID) (*Block, error)
	CreateBlock(ctx context.Context, b *Block) error
	DeleteBlock(ctx context.Context, id uuid.UUID) error
	DeleteBlocksByAppointment(ctx context.Context, appointmentID uuid.UUID) error

	// ListClosuresInRange returns active closures of the organization whose
	// date span intersects [from, to] (inclusive dates).
	ListClosuresInRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]OrgClosure, error)
	UpsertImportedClosure(ctx context.Context, c *OrgClosure) error

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindAppointmentsNear returns non-terminal appointments assigned to the
	// employee that may occupy time inside [from, to). Occupied intervals are
	// derived from service durations, so the query over-fetches by a day and
	// the caller applies the exact overlap test.
	FindAppointmentsNear(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// CreateAppointmentWithBlocks persists the appointment and one block per
	// assigned employee as a single atomic unit. Either everything is
	// written or nothing is.
	CreateAppointmentWithBlocks(ctx context.Context, a *Appointment, blocks []Block) error
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// Organization is the owning tenant of employees, closures, and appointments.
type Organization struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
