package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Joni1544/my-saas-demo-sub001/internal/eventbus"
	"github.com/Joni1544/my-saas-demo-sub001/internal/models"
)

// fakeBus records emitted events in order. Subscribe registers nothing; the
// services under test are exercised directly, not through the drain loop.
type fakeBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (f *fakeBus) Emit(name string, payload eventbus.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventbus.Event{Name: name, Payload: payload})
}

func (f *fakeBus) Subscribe(string, eventbus.Handler) func() {
	return func() {}
}

func (f *fakeBus) emitted() []eventbus.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]eventbus.Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeBus) names() []string {
	events := f.emitted()
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Name)
	}
	return names
}

type mockEmployeeStore struct {
	mock.Mock
}

func (m *mockEmployeeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	args := m.Called(ctx, id)
	if e, ok := args.Get(0).(*models.Employee); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEmployeeStore) ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Employee, error) {
	args := m.Called(ctx, tenantID)
	if e, ok := args.Get(0).([]models.Employee); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEmployeeStore) SetSick(ctx context.Context, id uuid.UUID, sick bool) error {
	args := m.Called(ctx, id, sick)
	return args.Error(0)
}

type mockVacationStore struct {
	mock.Mock
}

func (m *mockVacationStore) ListApprovedOverlapping(ctx context.Context, employeeID uuid.UUID, start, end time.Time) ([]models.VacationRequest, error) {
	args := m.Called(ctx, employeeID, start, end)
	if v, ok := args.Get(0).([]models.VacationRequest); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockInvoiceStore struct {
	mock.Mock
}

func (m *mockInvoiceStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if i, ok := args.Get(0).(*models.Invoice); ok {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceStore) ListOverdue(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.Invoice, error) {
	args := m.Called(ctx, tenantID, now)
	if i, ok := args.Get(0).([]models.Invoice); ok {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInvoiceStore) ResetReminderLevel(ctx context.Context, invoiceID uuid.UUID) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

type mockReminderStore struct {
	mock.Mock
}

func (m *mockReminderStore) CreateForInvoice(ctx context.Context, reminder *models.InvoiceReminder) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

func (m *mockReminderStore) GetByID(ctx context.Context, id uuid.UUID) (*models.InvoiceReminder, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*models.InvoiceReminder); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReminderStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type mockTaskStore struct {
	mock.Mock
}

func (m *mockTaskStore) ListOverdue(ctx context.Context, now time.Time) ([]models.Task, error) {
	args := m.Called(ctx, now)
	if t, ok := args.Get(0).([]models.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskStore) Assign(ctx context.Context, tenantID, taskID, userID uuid.UUID) error {
	args := m.Called(ctx, tenantID, taskID, userID)
	return args.Error(0)
}

type mockInventoryStore struct {
	mock.Mock
}

func (m *mockInventoryStore) ListLowStock(ctx context.Context) ([]models.InventoryItem, error) {
	args := m.Called(ctx)
	if i, ok := args.Get(0).([]models.InventoryItem); ok {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTenantStore struct {
	mock.Mock
}

func (m *mockTenantStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if t, ok := args.Get(0).(*models.Tenant); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTenantStore) ListIDs(ctx context.Context, offset, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, offset, limit)
	if ids, ok := args.Get(0).([]uuid.UUID); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAppointmentStore struct {
	mock.Mock
}

func (m *mockAppointmentStore) MarkNeedsReassignment(ctx context.Context, employeeID uuid.UUID, from time.Time) (int64, error) {
	args := m.Called(ctx, employeeID, from)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAppointmentStore) ListNeedsReassignmentByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Appointment, error) {
	args := m.Called(ctx, employeeID)
	if a, ok := args.Get(0).([]models.Appointment); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAppointmentStore) ListUpcomingNeedsReassignment(ctx context.Context, now time.Time) ([]models.Appointment, error) {
	args := m.Called(ctx, now)
	if a, ok := args.Get(0).([]models.Appointment); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAppointmentStore) Reassign(ctx context.Context, appointmentID, newEmployeeID uuid.UUID) error {
	args := m.Called(ctx, appointmentID, newEmployeeID)
	return args.Error(0)
}
