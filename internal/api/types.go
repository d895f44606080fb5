package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/salon-scheduling/internal/scheduling"
)

type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type CreateAppointmentRequest struct {
	ClientID    string   `json:"client_id"`
	EmployeeIDs []string `json:"employee_ids"`
	ServiceIDs  []string `json:"service_ids"`
	Start       string   `json:"start"`
}

type AppointmentResponse struct {
	ID               uuid.UUID   `json:"id"`
	OrgID            uuid.UUID   `json:"org_id"`
	ClientID         uuid.UUID   `json:"client_id"`
	EmployeeIDs      []uuid.UUID `json:"employee_ids"`
	ServiceIDs       []uuid.UUID `json:"service_ids"`
	ServiceDurations []int       `json:"service_durations"`
	Start            time.Time   `json:"start"`
	End              time.Time   `json:"end"`
	Status           string      `json:"status"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               a.ID,
		OrgID:            a.OrgID,
		ClientID:         a.ClientID,
		EmployeeIDs:      a.EmployeeIDs,
		ServiceIDs:       a.ServiceIDs,
		ServiceDurations: a.ServiceDurations,
		Start:            a.Start,
		End:              a.End(),
		Status:           string(a.Status),
	}
}

type CreateBlockRequest struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type BlockResponse struct {
	ID            uuid.UUID  `json:"id"`
	EmployeeID    uuid.UUID  `json:"employee_id"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	Type          string     `json:"type"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Description   string     `json:"description,omitempty"`
}

func toBlockResponse(b *scheduling.Block) BlockResponse {
	return BlockResponse{
		ID:            b.ID,
		EmployeeID:    b.EmployeeID,
		Start:         b.Start,
		End:           b.End,
		Type:          b.Type,
		AppointmentID: b.AppointmentID,
		Description:   b.Description,
	}
}

type ClosureResponse struct {
	ID        uuid.UUID `json:"id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Type      string    `json:"type"`
	Origin    string    `json:"origin"`
}

type BlockListResponse struct {
	Blocks   []BlockResponse   `json:"blocks"`
	Closures []ClosureResponse `json:"closures"`
}

// ConflictReportResponse is the soft-failure payload for a manual block that
// overlaps existing appointments: nothing was created, the caller decides.
type ConflictReportResponse struct {
	ConflictingAppointments []AppointmentResponse `json:"conflicting_appointments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
