package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/glowdesk/salon-scheduling/internal/scheduling"
)

func getSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, employeeID, ok := pathOrgEmployee(w, r)
		if !ok {
			return
		}

		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		serviceIDs, err := parseUUIDList(r.URL.Query().Get("service_ids"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_ids", "service_ids must be comma-separated UUIDs")
			return
		}

		slots, err := svc.GetAvailableSlots(r.Context(), orgID, employeeID, date, serviceIDs)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, SlotResponse{Start: s.Start, End: s.End})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := pathOrg(w, r)
		if !ok {
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}

		employeeIDs, err := parseUUIDs(req.EmployeeIDs)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_employee_ids", "employee_ids must be valid UUIDs")
			return
		}

		serviceIDs, err := parseUUIDs(req.ServiceIDs)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_ids", "service_ids must be valid UUIDs")
			return
		}

		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC3339")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), orgID, clientID, employeeIDs, serviceIDs, start)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := pathOrg(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), orgID, id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := pathOrg(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		if err := svc.CancelAppointment(r.Context(), orgID, id); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func completeAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := pathOrg(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		if err := svc.CompleteAppointment(r.Context(), orgID, id); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createBlockHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, employeeID, ok := pathOrgEmployee(w, r)
		if !ok {
			return
		}

		var req CreateBlockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		blockType, err := scheduling.ParseManualBlockType(req.Type)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC3339")
			return
		}
		end, err := time.Parse(time.RFC3339, req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end", "end must be RFC3339")
			return
		}

		block, report, err := svc.CreateManualBlock(r.Context(), orgID, employeeID, start, end, blockType, req.Description)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		if report != nil {
			resp := ConflictReportResponse{
				ConflictingAppointments: make([]AppointmentResponse, 0, len(report.Appointments)),
			}
			for i := range report.Appointments {
				resp.ConflictingAppointments = append(resp.ConflictingAppointments, toAppointmentResponse(&report.Appointments[i]))
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}

		writeJSON(w, http.StatusCreated, toBlockResponse(block))
	}
}

func removeBlockHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, employeeID, ok := pathOrgEmployee(w, r)
		if !ok {
			return
		}
		blockID, err := uuid.Parse(chi.URLParam(r, "blockID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_block_id", "blockID must be a valid UUID")
			return
		}

		if err := svc.RemoveManualBlock(r.Context(), orgID, employeeID, blockID); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listBlocksHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, employeeID, ok := pathOrgEmployee(w, r)
		if !ok {
			return
		}

		from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC3339")
			return
		}
		to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC3339")
			return
		}

		list, err := svc.ListBlocks(r.Context(), orgID, employeeID, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := BlockListResponse{
			Blocks:   make([]BlockResponse, 0, len(list.Blocks)),
			Closures: make([]ClosureResponse, 0, len(list.Closures)),
		}
		for i := range list.Blocks {
			resp.Blocks = append(resp.Blocks, toBlockResponse(&list.Blocks[i]))
		}
		for _, c := range list.Closures {
			resp.Closures = append(resp.Closures, ClosureResponse{
				ID:        c.ID,
				StartDate: c.StartDate.Format("2006-01-02"),
				EndDate:   c.EndDate.Format("2006-01-02"),
				Type:      string(c.Type),
				Origin:    string(c.Origin),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Path helpers

func pathOrg(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_org_id", "orgID must be a valid UUID")
		return uuid.Nil, false
	}
	return orgID, true
}

func pathOrgEmployee(w http.ResponseWriter, r *http.Request) (orgID, employeeID uuid.UUID, ok bool) {
	orgID, ok = pathOrg(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	employeeID, err := uuid.Parse(chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_employee_id", "employeeID must be a valid UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, employeeID, true
}

func parseUUIDList(raw string) ([]uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	return parseUUIDs(strings.Split(raw, ","))
}

func parseUUIDs(in []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
