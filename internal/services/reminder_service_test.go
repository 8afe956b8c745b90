package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Joni1544/my-saas-demo-sub001/config"
	"github.com/Joni1544/my-saas-demo-sub001/internal/eventbus"
	"github.com/Joni1544/my-saas-demo-sub001/internal/models"
)

var testReminderCfg = config.ReminderConfig{
	Level1Days: 3,
	Level2Days: 10,
	Level3Days: 20,
}

func newTestReminderService(invoices *mockInvoiceStore, reminders *mockReminderStore) (*ReminderService, *fakeBus, *clockwork.FakeClock) {
	bus := &fakeBus{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC))
	svc := NewReminderService(invoices, reminders, bus, nil, clock, testReminderCfg)
	return svc, bus, clock
}

func TestCalculateReminderLevelThresholds(t *testing.T) {
	svc, _, clock := newTestReminderService(&mockInvoiceStore{}, &mockReminderStore{})

	cases := []struct {
		daysOverdue int
		want        int
	}{
		{0, 0},
		{2, 0},
		{3, 1},
		{9, 1},
		{10, 2},
		{19, 2},
		{20, 3},
		{25, 3},
	}

	for _, tc := range cases {
		invoice := &models.Invoice{
			DueDate: clock.Now().AddDate(0, 0, -tc.daysOverdue),
		}
		require.Equal(t, tc.want, svc.CalculateReminderLevel(invoice, nil),
			"%d days overdue", tc.daysOverdue)
	}
}

func TestCalculateReminderLevelNotYetDue(t *testing.T) {
	svc, _, clock := newTestReminderService(&mockInvoiceStore{}, &mockReminderStore{})

	invoice := &models.Invoice{DueDate: clock.Now().AddDate(0, 0, 5)}
	require.Equal(t, 0, svc.CalculateReminderLevel(invoice, nil))
}

func TestCalculateReminderLevelOverride(t *testing.T) {
	svc, _, clock := newTestReminderService(&mockInvoiceStore{}, &mockReminderStore{})

	invoice := &models.Invoice{DueDate: clock.Now().AddDate(0, 0, -5)}
	require.Equal(t, 1, svc.CalculateReminderLevel(invoice, nil))

	strict := config.ReminderConfig{Level1Days: 1, Level2Days: 2, Level3Days: 5}
	require.Equal(t, 3, svc.CalculateReminderLevel(invoice, &strict))
}

func TestCalculateReminderLevelGrowsWithTime(t *testing.T) {
	svc, _, clock := newTestReminderService(&mockInvoiceStore{}, &mockReminderStore{})

	invoice := &models.Invoice{DueDate: clock.Now().AddDate(0, 0, -4)}
	require.Equal(t, 1, svc.CalculateReminderLevel(invoice, nil))

	clock.Advance(7 * 24 * time.Hour)
	require.Equal(t, 2, svc.CalculateReminderLevel(invoice, nil))

	clock.Advance(10 * 24 * time.Hour)
	require.Equal(t, 3, svc.CalculateReminderLevel(invoice, nil))
}

func TestCreateReminderPersistsAndEmits(t *testing.T) {
	tenantID := uuid.New()
	invoice := &models.Invoice{
		ID:       uuid.New(),
		TenantID: tenantID,
		Status:   models.InvoiceOverdue,
	}

	invoices := &mockInvoiceStore{}
	invoices.On("GetByID", mock.Anything, invoice.ID).Return(invoice, nil)

	reminders := &mockReminderStore{}
	reminders.On("CreateForInvoice", mock.Anything, mock.MatchedBy(func(r *models.InvoiceReminder) bool {
		return r.InvoiceID == invoice.ID && r.Level == 2 && r.Status == models.ReminderPending && r.Method == "email"
	})).Return(nil)

	svc, bus, clock := newTestReminderService(invoices, reminders)

	reminder, err := svc.CreateReminder(context.Background(), tenantID, invoice.ID, 2, "email", "friendly nudge")
	require.NoError(t, err)
	require.Equal(t, clock.Now(), reminder.ReminderDate)
	require.Equal(t, "friendly nudge", reminder.AIText)

	events := bus.emitted()
	require.Len(t, events, 1)
	require.Equal(t, eventbus.InvoiceReminderCreated, events[0].Name)
	payload := events[0].Payload.(*eventbus.ReminderCreatedPayload)
	require.Equal(t, tenantID, payload.TenantID)
	require.Equal(t, invoice.ID, payload.InvoiceID)
	require.Equal(t, 2, payload.Level)

	reminders.AssertExpectations(t)
}

func TestCreateReminderRejectsPaidInvoice(t *testing.T) {
	paidAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	invoice := &models.Invoice{
		ID:     uuid.New(),
		Status: models.InvoicePaid,
		PaidAt: &paidAt,
	}

	invoices := &mockInvoiceStore{}
	invoices.On("GetByID", mock.Anything, invoice.ID).Return(invoice, nil)

	svc, bus, _ := newTestReminderService(invoices, &mockReminderStore{})

	_, err := svc.CreateReminder(context.Background(), uuid.New(), invoice.ID, 1, "email", "")
	require.ErrorIs(t, err, ErrInvoicePaid)
	require.Empty(t, bus.emitted())
}

func TestMarkReminderSentAndFailed(t *testing.T) {
	reminder := &models.InvoiceReminder{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		InvoiceID: uuid.New(),
		Level:     1,
		Status:    models.ReminderPending,
	}

	reminders := &mockReminderStore{}
	reminders.On("GetByID", mock.Anything, reminder.ID).Return(reminder, nil)
	reminders.On("UpdateStatus", mock.Anything, reminder.ID, models.ReminderSent).Return(nil)
	reminders.On("UpdateStatus", mock.Anything, reminder.ID, models.ReminderFailed).Return(nil)

	svc, bus, _ := newTestReminderService(&mockInvoiceStore{}, reminders)

	require.NoError(t, svc.MarkReminderSent(context.Background(), reminder.ID))
	require.NoError(t, svc.MarkReminderFailed(context.Background(), reminder.ID))

	require.Equal(t, []string{eventbus.InvoiceReminderSent, eventbus.InvoiceReminderFailed}, bus.names())
	reminders.AssertExpectations(t)
}

func TestStopRemindersIsIdempotent(t *testing.T) {
	invoice := &models.Invoice{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Status:   models.InvoicePaid,
	}

	invoices := &mockInvoiceStore{}
	invoices.On("GetByID", mock.Anything, invoice.ID).Return(invoice, nil)
	invoices.On("ResetReminderLevel", mock.Anything, invoice.ID).Return(nil)

	svc, bus, _ := newTestReminderService(invoices, &mockReminderStore{})

	require.NoError(t, svc.StopReminders(context.Background(), invoice.ID))
	require.NoError(t, svc.StopReminders(context.Background(), invoice.ID))

	require.Equal(t, []string{eventbus.InvoiceReminderStopped, eventbus.InvoiceReminderStopped}, bus.names())
	invoices.AssertNumberOfCalls(t, "ResetReminderLevel", 2)
}

type fakeReminderIndexer struct {
	indexed   []*models.InvoiceReminder
	lastQuery map[string]interface{}
	docs      []map[string]interface{}
}

func (f *fakeReminderIndexer) IndexReminder(_ context.Context, reminder *models.InvoiceReminder, _ *models.Invoice) error {
	f.indexed = append(f.indexed, reminder)
	return nil
}

func (f *fakeReminderIndexer) SearchReminders(_ context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	f.lastQuery = query
	return f.docs, nil
}

func TestSearchRemindersFiltersByTenant(t *testing.T) {
	indexer := &fakeReminderIndexer{
		docs: []map[string]interface{}{{"level": 2}},
	}
	bus := &fakeBus{}
	clock := clockwork.NewFakeClock()
	svc := NewReminderService(&mockInvoiceStore{}, &mockReminderStore{}, bus, indexer, clock, testReminderCfg)

	tenantID := uuid.New()
	results, err := svc.SearchReminders(context.Background(), tenantID, "overdue")
	require.NoError(t, err)
	require.Len(t, results, 1)

	boolQuery := indexer.lastQuery["query"].(map[string]interface{})["bool"].(map[string]interface{})
	filters := boolQuery["filter"].([]interface{})
	require.Len(t, filters, 1)
	term := filters[0].(map[string]interface{})["term"].(map[string]interface{})
	require.Equal(t, tenantID.String(), term["tenant_id"])
	require.Contains(t, boolQuery, "must")
}

func TestSearchRemindersWithoutBackend(t *testing.T) {
	svc, _, _ := newTestReminderService(&mockInvoiceStore{}, &mockReminderStore{})

	_, err := svc.SearchReminders(context.Background(), uuid.New(), "")
	require.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestCreateReminderIndexesDocument(t *testing.T) {
	invoice := &models.Invoice{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Status:   models.InvoiceOverdue,
	}

	invoices := &mockInvoiceStore{}
	invoices.On("GetByID", mock.Anything, invoice.ID).Return(invoice, nil)
	reminders := &mockReminderStore{}
	reminders.On("CreateForInvoice", mock.Anything, mock.Anything).Return(nil)

	indexer := &fakeReminderIndexer{}
	svc := NewReminderService(invoices, reminders, &fakeBus{}, indexer, clockwork.NewFakeClock(), testReminderCfg)

	reminder, err := svc.CreateReminder(context.Background(), invoice.TenantID, invoice.ID, 1, "email", "")
	require.NoError(t, err)
	require.Len(t, indexer.indexed, 1)
	require.Equal(t, reminder.ID, indexer.indexed[0].ID)
}

func TestGetOverdueInvoicesUsesClock(t *testing.T) {
	tenantID := uuid.New()
	overdue := []models.Invoice{{ID: uuid.New(), TenantID: tenantID}}

	invoices := &mockInvoiceStore{}
	svc, _, clock := newTestReminderService(invoices, &mockReminderStore{})
	invoices.On("ListOverdue", mock.Anything, tenantID, clock.Now()).Return(overdue, nil)

	got, err := svc.GetOverdueInvoices(context.Background(), tenantID)
	require.NoError(t, err)
	require.Equal(t, overdue, got)
}
