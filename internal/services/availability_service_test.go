package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Joni1544/my-saas-demo-sub001/internal/models"
)

// 2024-03-04 is a Monday.
var (
	monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	sunday = time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func testEmployee(tenantID uuid.UUID) *models.Employee {
	return &models.Employee{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      "Anna",
		WorkStart: "09:00",
		WorkEnd:   "17:00",
		IsActive:  true,
	}
}

func noVacations(vacations *mockVacationStore) {
	vacations.On("ListApprovedOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]models.VacationRequest{}, nil)
}

func TestCheckAvailabilityInvalidInterval(t *testing.T) {
	svc := NewAvailabilityService(&mockEmployeeStore{}, &mockVacationStore{}, nil)

	_, err := svc.CheckAvailability(context.Background(), uuid.New(), at(monday, 11, 0), at(monday, 10, 0))
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = svc.CheckAvailability(context.Background(), uuid.New(), at(monday, 10, 0), at(monday, 10, 0))
	require.ErrorIs(t, err, ErrInvalidInterval)
}

func TestCheckAvailabilityUnknownEmployee(t *testing.T) {
	employees := &mockEmployeeStore{}
	employeeID := uuid.New()
	employees.On("GetByID", mock.Anything, employeeID).Return(nil, nil)

	svc := NewAvailabilityService(employees, &mockVacationStore{}, nil)

	result, err := svc.CheckAvailability(context.Background(), employeeID, at(monday, 10, 0), at(monday, 11, 0))
	require.NoError(t, err)
	require.False(t, result.IsAvailable)
	require.Equal(t, "employee not found", result.Reason)
}

func TestCheckAvailabilitySickEmployee(t *testing.T) {
	employee := testEmployee(uuid.New())
	employee.IsSick = true

	employees := &mockEmployeeStore{}
	employees.On("GetByID", mock.Anything, employee.ID).Return(employee, nil)

	svc := NewAvailabilityService(employees, &mockVacationStore{}, nil)

	result, err := svc.CheckAvailability(context.Background(), employee.ID, at(monday, 10, 0), at(monday, 11, 0))
	require.NoError(t, err)
	require.False(t, result.IsAvailable)
	require.True(t, result.Details.IsSick)
	require.Equal(t, "employee is currently sick", result.Reason)
}

func TestCheckAvailabilityApprovedVacation(t *testing.T) {
	employee := testEmployee(uuid.New())

	employees := &mockEmployeeStore{}
	employees.On("GetByID", mock.Anything, employee.ID).Return(employee, nil)

	vacations := &mockVacationStore{}
	vacations.On("ListApprovedOverlapping", mock.Anything, employee.ID, mock.Anything, mock.Anything).
		Return([]models.VacationRequest{{ID: uuid.New(), EmployeeID: employee.ID, Status: models.VacationApproved}}, nil)

	svc := NewAvailabilityService(employees, vacations, nil)

	result, err := svc.CheckAvailability(context.Background(), employee.ID, at(monday, 10, 0), at(monday, 11, 0))
	require.NoError(t, err)
	require.False(t, result.IsAvailable)
	require.True(t, result.Details.HasVacation)
}

func TestCheckAvailabilityDayOff(t *testing.T) {
	employee := testEmployee(uuid.New())
	employee.DaysOff = "Sunday,Monday"

	employees := &mockEmployeeStore{}
	employees.On("GetByID", mock.Anything, employee.ID).Return(employee, nil)
	vacations := &mockVacationStore{}
	noVacations(vacations)

	svc := NewAvailabilityService(employees, vacations, nil)

	result, err := svc.CheckAvailability(context.Background(), employee.ID, at(sunday, 10, 0), at(sunday, 11, 0))
	require.NoError(t, err)
	require.False(t, result.IsAvailable)
	require.True(t, result.Details.IsDayOff)
	require.Equal(t, "employee has a day off on Sunday", result.Reason)
}

func TestCheckAvailabilityWorkHours(t *testing.T) {
	employee := testEmployee(uuid.New())

	employees := &mockEmployeeStore{}
	employees.On("GetByID", mock.Anything, employee.ID).Return(employee, nil)
	vacations := &mockVacationStore{}
	noVacations(vacations)

	svc := NewAvailabilityService(employees, vacations, nil)

	// Inside 09:00-17:00
	result, err := svc.CheckAvailability(context.Background(), employee.ID, at(monday, 10, 0), at(monday, 11, 0))
	require.NoError(t, err)
	require.True(t, result.IsAvailable)

	// Touching the closing edge still counts as inside
	result, err = svc.CheckAvailability(context.Background(), employee.ID, at(monday, 16, 0), at(monday, 17, 0))
	require.NoError(t, err)
	require.True(t, result.IsAvailable)

	// Evening slot is outside
	result, err = svc.CheckAvailability(context.Background(), employee.ID, at(monday, 18, 0), at(monday, 19, 0))
	require.NoError(t, err)
	require.False(t, result.IsAvailable)
	require.True(t, result.Details.OutsideWorkHours)
	require.Equal(t, "requested time is outside working hours (09:00-17:00)", result.Reason)
}

func TestCheckAvailabilityIntervalEndingAtMidnight(t *testing.T) {
	employee := testEmployee(uuid.New())

	employees := &mockEmployeeStore{}
	employees.On("GetByID", mock.Anything, employee.ID).Return(employee, nil)
	vacations := &mockVacationStore{}
	noVacations(vacations)

	svc := NewAvailabilityService(employees, vacations, nil)

	// Ends at 00:00 of the next day, well past the 17:00 closing time
	result, err := svc.CheckAvailability(context.Background(), employee.ID, at(monday, 16, 0), at(monday.AddDate(0, 0, 1), 0, 0))
	require.NoError(t, err)
	require.False(t, result.IsAvailable)
	require.True(t, result.Details.OutsideWorkHours)
}

func TestCheckAvailabilityMultiDayInterval(t *testing.T) {
	employee := testEmployee(uuid.New())

	employees := &mockEmployeeStore{}
	employees.On("GetByID", mock.Anything, employee.ID).Return(employee, nil)
	vacations := &mockVacationStore{}
	noVacations(vacations)

	svc := NewAvailabilityService(employees, vacations, nil)

	// Spans into the next day even though both clock times look in-hours
	result, err := svc.CheckAvailability(context.Background(), employee.ID, at(monday, 10, 0), at(monday.AddDate(0, 0, 1), 10, 0))
	require.NoError(t, err)
	require.False(t, result.IsAvailable)
	require.True(t, result.Details.OutsideWorkHours)
}

func TestCheckAvailabilityBreakOverlap(t *testing.T) {
	employee := testEmployee(uuid.New())
	employee.BreakStart = "12:00"
	employee.BreakEnd = "13:00"

	employees := &mockEmployeeStore{}
	employees.On("GetByID", mock.Anything, employee.ID).Return(employee, nil)
	vacations := &mockVacationStore{}
	noVacations(vacations)

	svc := NewAvailabilityService(employees, vacations, nil)

	// Overlaps the break by 30 minutes
	result, err := svc.CheckAvailability(context.Background(), employee.ID, at(monday, 11, 30), at(monday, 12, 30))
	require.NoError(t, err)
	require.False(t, result.IsAvailable)
	require.True(t, result.Details.InBreakTime)

	// Ends exactly when the break starts
	result, err = svc.CheckAvailability(context.Background(), employee.ID, at(monday, 11, 0), at(monday, 12, 0))
	require.NoError(t, err)
	require.True(t, result.IsAvailable)

	// Starts exactly when the break ends
	result, err = svc.CheckAvailability(context.Background(), employee.ID, at(monday, 13, 0), at(monday, 14, 0))
	require.NoError(t, err)
	require.True(t, result.IsAvailable)
}

func TestCheckAvailabilityUnconfiguredWorkHours(t *testing.T) {
	employee := testEmployee(uuid.New())
	employee.WorkStart = ""
	employee.WorkEnd = ""

	employees := &mockEmployeeStore{}
	employees.On("GetByID", mock.Anything, employee.ID).Return(employee, nil)
	vacations := &mockVacationStore{}
	noVacations(vacations)

	svc := NewAvailabilityService(employees, vacations, nil)

	result, err := svc.CheckAvailability(context.Background(), employee.ID, at(monday, 3, 0), at(monday, 4, 0))
	require.NoError(t, err)
	require.True(t, result.IsAvailable)
}

func TestCheckAvailabilityMalformedWorkHours(t *testing.T) {
	employee := testEmployee(uuid.New())
	employee.WorkStart = "nine"
	employee.WorkEnd = "17:00"

	employees := &mockEmployeeStore{}
	employees.On("GetByID", mock.Anything, employee.ID).Return(employee, nil)
	vacations := &mockVacationStore{}
	noVacations(vacations)

	svc := NewAvailabilityService(employees, vacations, nil)

	// Unparseable hours are treated as unconfigured, not as a failure
	result, err := svc.CheckAvailability(context.Background(), employee.ID, at(monday, 3, 0), at(monday, 4, 0))
	require.NoError(t, err)
	require.True(t, result.IsAvailable)
}

func TestEligibleEmployeesFiltersUnavailable(t *testing.T) {
	tenantID := uuid.New()

	available := *testEmployee(tenantID)
	sick := *testEmployee(tenantID)
	sick.IsSick = true

	employees := &mockEmployeeStore{}
	employees.On("ListActiveByTenant", mock.Anything, tenantID).
		Return([]models.Employee{available, sick}, nil)
	vacations := &mockVacationStore{}
	noVacations(vacations)

	svc := NewAvailabilityService(employees, vacations, nil)

	eligible, err := svc.EligibleEmployees(context.Background(), tenantID, at(monday, 10, 0), at(monday, 11, 0))
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	require.Equal(t, available.ID, eligible[0].ID)
}
