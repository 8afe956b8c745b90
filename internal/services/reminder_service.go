package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Joni1544/my-saas-demo-sub001/config"
	"github.com/Joni1544/my-saas-demo-sub001/internal/eventbus"
	"github.com/Joni1544/my-saas-demo-sub001/internal/models"
)

// ErrInvoicePaid is returned when a reminder is requested for a paid invoice
var ErrInvoicePaid = errors.New("invoice is already paid")

// ErrSearchUnavailable is returned when the search backend is not configured
var ErrSearchUnavailable = errors.New("reminder search is not configured")

// Emitter is the publishing half of the event bus
type Emitter interface {
	Emit(name string, payload eventbus.Payload)
}

// InvoiceStore is the persistence surface for invoices
type InvoiceStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListOverdue(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.Invoice, error)
	ResetReminderLevel(ctx context.Context, invoiceID uuid.UUID) error
}

// ReminderStore is the persistence surface for invoice reminders
type ReminderStore interface {
	CreateForInvoice(ctx context.Context, reminder *models.InvoiceReminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InvoiceReminder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// ReminderIndexer pushes reminder documents into the search index and
// answers back-office queries against it
type ReminderIndexer interface {
	IndexReminder(ctx context.Context, reminder *models.InvoiceReminder, invoice *models.Invoice) error
	SearchReminders(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error)
}

// ReminderService computes invoice reminder levels from elapsed overdue days
// and persists the escalation records. Levels only ever increase for an
// unpaid invoice; StopReminders resets them to zero when the invoice is
// settled.
type ReminderService struct {
	invoices  InvoiceStore
	reminders ReminderStore
	bus       Emitter
	indexer   ReminderIndexer
	clock     clockwork.Clock
	cfg       config.ReminderConfig
}

// NewReminderService creates a new reminder service. The indexer may be nil
// when search is not configured.
func NewReminderService(
	invoices InvoiceStore,
	reminders ReminderStore,
	bus Emitter,
	indexer ReminderIndexer,
	clock clockwork.Clock,
	cfg config.ReminderConfig,
) *ReminderService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ReminderService{
		invoices:  invoices,
		reminders: reminders,
		bus:       bus,
		indexer:   indexer,
		clock:     clock,
		cfg:       cfg,
	}
}

// GetOverdueInvoices returns a tenant's unpaid invoices past their due date,
// oldest due date first
func (s *ReminderService) GetOverdueInvoices(ctx context.Context, tenantID uuid.UUID) ([]models.Invoice, error) {
	return s.invoices.ListOverdue(ctx, tenantID, s.clock.Now())
}

// CalculateReminderLevel maps elapsed overdue days to the highest reached
// level (0 to 3). Pass a config override for per-call thresholds, nil uses
// the service defaults.
func (s *ReminderService) CalculateReminderLevel(invoice *models.Invoice, override *config.ReminderConfig) int {
	cfg := s.cfg
	if override != nil {
		cfg = *override
	}

	daysOverdue := int(s.clock.Now().Sub(invoice.DueDate).Hours() / 24)
	switch {
	case daysOverdue >= cfg.Level3Days:
		return 3
	case daysOverdue >= cfg.Level2Days:
		return 2
	case daysOverdue >= cfg.Level1Days:
		return 1
	default:
		return 0
	}
}

// CreateReminder persists a new reminder at the given level, advances the
// invoice to that level and OVERDUE status, and announces the escalation.
// Fails with ErrInvoicePaid for settled invoices.
func (s *ReminderService) CreateReminder(ctx context.Context, tenantID, invoiceID uuid.UUID, level int, method, aiText string) (*models.InvoiceReminder, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == models.InvoicePaid || invoice.PaidAt != nil {
		return nil, ErrInvoicePaid
	}

	reminder := &models.InvoiceReminder{
		ID:           uuid.New(),
		TenantID:     tenantID,
		InvoiceID:    invoiceID,
		Level:        level,
		Status:       models.ReminderPending,
		Method:       method,
		AIText:       aiText,
		ReminderDate: s.clock.Now(),
	}

	if err := s.reminders.CreateForInvoice(ctx, reminder); err != nil {
		return nil, err
	}

	log.Info().
		Str("invoice_id", invoiceID.String()).
		Int("level", level).
		Msg("Invoice reminder created")

	s.bus.Emit(eventbus.InvoiceReminderCreated, &eventbus.ReminderCreatedPayload{
		Meta:       eventbus.Meta{TenantID: tenantID},
		InvoiceID:  invoiceID,
		ReminderID: reminder.ID,
		Level:      level,
	})

	if s.indexer != nil {
		if err := s.indexer.IndexReminder(ctx, reminder, invoice); err != nil {
			log.Warn().Err(err).Str("reminder_id", reminder.ID.String()).Msg("Failed to index reminder")
		}
	}

	return reminder, nil
}

// MarkReminderSent transitions a reminder to SENT and emits the
// corresponding event
func (s *ReminderService) MarkReminderSent(ctx context.Context, reminderID uuid.UUID) error {
	return s.markReminder(ctx, reminderID, models.ReminderSent, eventbus.InvoiceReminderSent)
}

// MarkReminderFailed transitions a reminder to FAILED and emits the
// corresponding event
func (s *ReminderService) MarkReminderFailed(ctx context.Context, reminderID uuid.UUID) error {
	return s.markReminder(ctx, reminderID, models.ReminderFailed, eventbus.InvoiceReminderFailed)
}

func (s *ReminderService) markReminder(ctx context.Context, reminderID uuid.UUID, status, eventName string) error {
	reminder, err := s.reminders.GetByID(ctx, reminderID)
	if err != nil {
		return err
	}
	if err := s.reminders.UpdateStatus(ctx, reminderID, status); err != nil {
		return err
	}

	s.bus.Emit(eventName, &eventbus.ReminderStatusPayload{
		Meta:       eventbus.Meta{TenantID: reminder.TenantID},
		ReminderID: reminderID,
		InvoiceID:  reminder.InvoiceID,
	})
	return nil
}

// SearchReminders queries the dunning history of a tenant. The optional term
// matches across the indexed reminder fields.
func (s *ReminderService) SearchReminders(ctx context.Context, tenantID uuid.UUID, term string) ([]map[string]interface{}, error) {
	if s.indexer == nil {
		return nil, ErrSearchUnavailable
	}

	boolQuery := map[string]interface{}{
		"filter": []interface{}{
			map[string]interface{}{
				"term": map[string]interface{}{"tenant_id": tenantID.String()},
			},
		},
	}
	if term != "" {
		boolQuery["must"] = map[string]interface{}{
			"query_string": map[string]interface{}{"query": term},
		}
	}

	return s.indexer.SearchReminders(ctx, map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	})
}

// StopReminders resets the invoice's reminder level to zero. Called when an
// invoice is paid; calling it again is a no-op.
func (s *ReminderService) StopReminders(ctx context.Context, invoiceID uuid.UUID) error {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}

	if err := s.invoices.ResetReminderLevel(ctx, invoiceID); err != nil {
		return err
	}

	s.bus.Emit(eventbus.InvoiceReminderStopped, &eventbus.ReminderStoppedPayload{
		Meta:      eventbus.Meta{TenantID: invoice.TenantID},
		InvoiceID: invoiceID,
	})
	return nil
}
