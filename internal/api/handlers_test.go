package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glowdesk/salon-scheduling/internal/scheduling"
)

type testEnv struct {
	server   *httptest.Server
	repo     *scheduling.MemoryRepository
	orgID    uuid.UUID
	employee uuid.UUID
	service  uuid.UUID
	clientID uuid.UUID
}

// The fixture schedule covers every weekday, so any far-future weekday works;
// 2030-01-07 is a Monday.
func bookingStart(hour, min int) time.Time {
	return time.Date(2030, time.January, 7, hour, min, 0, 0, time.UTC)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:     scheduling.NewMemoryRepository(),
		orgID:    uuid.New(),
		employee: uuid.New(),
		service:  uuid.New(),
		clientID: uuid.New(),
	}

	env.repo.AddOrganization(scheduling.Organization{ID: env.orgID, Name: "Main Street Salon"})
	env.repo.AddService(scheduling.ServiceOffering{
		ID: env.service, OrgID: env.orgID, Name: "Haircut", DurationMinutes: 60,
	})

	week := make(map[time.Weekday]scheduling.WorkDay)
	for d := time.Monday; d <= time.Friday; d++ {
		week[d] = scheduling.WorkDay{
			Active: true,
			Ranges: []scheduling.TimeRange{{StartMinute: 9 * 60, EndMinute: 18 * 60}},
		}
	}
	env.repo.AddEmployee(scheduling.Employee{ID: env.employee, OrgID: env.orgID, Name: "Stylist", Week: week})

	svc := scheduling.NewService(env.repo, scheduling.NewLocalLocker(), scheduling.Options{Logger: zap.NewNop()})

	env.server = httptest.NewServer(NewRouter(RouterConfig{
		Service: svc,
		Logger:  zap.NewNop(),
		Env:     "test",
		Version: "test",
	}))
	t.Cleanup(env.server.Close)

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) book(t *testing.T, start time.Time) AppointmentResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, fmt.Sprintf("/orgs/%s/appointments/", e.orgID), CreateAppointmentRequest{
		ClientID:    e.clientID.String(),
		EmployeeIDs: []string{e.employee.String()},
		ServiceIDs:  []string{e.service.String()},
		Start:       start.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[AppointmentResponse](t, resp)
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetSlots(t *testing.T) {
	env := newTestEnv(t)

	path := fmt.Sprintf("/orgs/%s/employees/%s/slots?date=2030-01-07&service_ids=%s",
		env.orgID, env.employee, env.service)
	resp := env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	slots := decode[[]SlotResponse](t, resp)
	require.Len(t, slots, 7)
	assert.Equal(t, bookingStart(9, 0), slots[0].Start.UTC())
	assert.Equal(t, bookingStart(10, 0), slots[0].End.UTC())
}

func TestGetSlotsBadDate(t *testing.T) {
	env := newTestEnv(t)

	path := fmt.Sprintf("/orgs/%s/employees/%s/slots?date=07-01-2030&service_ids=%s",
		env.orgID, env.employee, env.service)
	resp := env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "invalid_date", body.Error)
}

func TestGetSlotsNoServices(t *testing.T) {
	env := newTestEnv(t)

	path := fmt.Sprintf("/orgs/%s/employees/%s/slots?date=2030-01-07", env.orgID, env.employee)
	resp := env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSlotsUnknownEmployee(t *testing.T) {
	env := newTestEnv(t)

	path := fmt.Sprintf("/orgs/%s/employees/%s/slots?date=2030-01-07&service_ids=%s",
		env.orgID, uuid.New(), env.service)
	resp := env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAppointment(t *testing.T) {
	env := newTestEnv(t)

	appt := env.book(t, bookingStart(10, 0))
	assert.Equal(t, env.orgID, appt.OrgID)
	assert.Equal(t, "scheduled", appt.Status)
	assert.Equal(t, bookingStart(11, 0), appt.End.UTC())
}

func TestCreateAppointmentConflictStatus(t *testing.T) {
	env := newTestEnv(t)

	env.book(t, bookingStart(10, 0))

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/orgs/%s/appointments/", env.orgID), CreateAppointmentRequest{
		ClientID:    uuid.NewString(),
		EmployeeIDs: []string{env.employee.String()},
		ServiceIDs:  []string{env.service.String()},
		Start:       bookingStart(10, 30).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateAppointmentPastDateStatus(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/orgs/%s/appointments/", env.orgID), CreateAppointmentRequest{
		ClientID:    uuid.NewString(),
		EmployeeIDs: []string{env.employee.String()},
		ServiceIDs:  []string{env.service.String()},
		Start:       "2020-01-06T10:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "past_date", body.Error)
}

func TestCreateAppointmentOutsideHoursStatus(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/orgs/%s/appointments/", env.orgID), CreateAppointmentRequest{
		ClientID:    uuid.NewString(),
		EmployeeIDs: []string{env.employee.String()},
		ServiceIDs:  []string{env.service.String()},
		Start:       bookingStart(7, 0).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateAppointmentBadBody(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost,
		env.server.URL+fmt.Sprintf("/orgs/%s/appointments/", env.orgID),
		bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAppointment(t *testing.T) {
	env := newTestEnv(t)

	appt := env.book(t, bookingStart(10, 0))

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/orgs/%s/appointments/%s", env.orgID, appt.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[AppointmentResponse](t, resp)
	assert.Equal(t, appt.ID, got.ID)

	// Another org cannot read it.
	otherOrg := uuid.New()
	env.repo.AddOrganization(scheduling.Organization{ID: otherOrg, Name: "Rival"})
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/orgs/%s/appointments/%s", otherOrg, appt.ID), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCancelAndCompleteAppointment(t *testing.T) {
	env := newTestEnv(t)

	appt := env.book(t, bookingStart(10, 0))

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/orgs/%s/appointments/%s/cancel", env.orgID, appt.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Canceled is terminal: completing now conflicts.
	resp = env.do(t, http.MethodPost, fmt.Sprintf("/orgs/%s/appointments/%s/complete", env.orgID, appt.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	second := env.book(t, bookingStart(14, 0))
	resp = env.do(t, http.MethodPost, fmt.Sprintf("/orgs/%s/appointments/%s/complete", env.orgID, second.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCreateBlock(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost,
		fmt.Sprintf("/orgs/%s/employees/%s/blocks", env.orgID, env.employee),
		CreateBlockRequest{
			Start:       bookingStart(12, 0).Format(time.RFC3339),
			End:         bookingStart(13, 0).Format(time.RFC3339),
			Type:        "break",
			Description: "lunch",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	block := decode[BlockResponse](t, resp)
	assert.Equal(t, "break", block.Type)
	assert.Nil(t, block.AppointmentID)
}

func TestCreateBlockAppointmentTypeRejected(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost,
		fmt.Sprintf("/orgs/%s/employees/%s/blocks", env.orgID, env.employee),
		CreateBlockRequest{
			Start: bookingStart(12, 0).Format(time.RFC3339),
			End:   bookingStart(13, 0).Format(time.RFC3339),
			Type:  "appointment",
		})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateBlockSoftConflict(t *testing.T) {
	env := newTestEnv(t)

	appt := env.book(t, bookingStart(10, 0))

	resp := env.do(t, http.MethodPost,
		fmt.Sprintf("/orgs/%s/employees/%s/blocks", env.orgID, env.employee),
		CreateBlockRequest{
			Start: bookingStart(10, 30).Format(time.RFC3339),
			End:   bookingStart(11, 30).Format(time.RFC3339),
			Type:  "meeting",
		})
	require.Equal(t, http.StatusOK, resp.StatusCode, "soft conflict is a 200 with a report")

	report := decode[ConflictReportResponse](t, resp)
	require.Len(t, report.ConflictingAppointments, 1)
	assert.Equal(t, appt.ID, report.ConflictingAppointments[0].ID)
}

func TestRemoveBlock(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost,
		fmt.Sprintf("/orgs/%s/employees/%s/blocks", env.orgID, env.employee),
		CreateBlockRequest{
			Start: bookingStart(12, 0).Format(time.RFC3339),
			End:   bookingStart(13, 0).Format(time.RFC3339),
			Type:  "break",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	block := decode[BlockResponse](t, resp)

	resp = env.do(t, http.MethodDelete,
		fmt.Sprintf("/orgs/%s/employees/%s/blocks/%s", env.orgID, env.employee, block.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodDelete,
		fmt.Sprintf("/orgs/%s/employees/%s/blocks/%s", env.orgID, env.employee, block.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListBlocks(t *testing.T) {
	env := newTestEnv(t)

	env.book(t, bookingStart(10, 0))

	from := bookingStart(0, 0).Format(time.RFC3339)
	to := bookingStart(23, 0).Format(time.RFC3339)
	resp := env.do(t, http.MethodGet,
		fmt.Sprintf("/orgs/%s/employees/%s/blocks?from=%s&to=%s", env.orgID, env.employee, from, to), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[BlockListResponse](t, resp)
	require.Len(t, list.Blocks, 1)
	assert.Equal(t, "appointment", list.Blocks[0].Type)
	assert.NotNil(t, list.Blocks[0].AppointmentID)
	assert.Empty(t, list.Closures)
}

func TestListBlocksBadRange(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet,
		fmt.Sprintf("/orgs/%s/employees/%s/blocks?from=notatime&to=alsonot", env.orgID, env.employee), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidOrgIDInPath(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet,
		fmt.Sprintf("/orgs/not-a-uuid/employees/%s/slots?date=2030-01-07&service_ids=%s", env.employee, env.service), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "invalid_org_id", body.Error)
}
