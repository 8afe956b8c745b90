package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Joni1544/my-saas-demo-sub001/internal/eventbus"
	"github.com/Joni1544/my-saas-demo-sub001/internal/metrics"
	"github.com/Joni1544/my-saas-demo-sub001/internal/models"
	"github.com/Joni1544/my-saas-demo-sub001/internal/notification"
)

const tenantPageSize = 100

// Bus is the event bus surface the autopilot needs
type Bus interface {
	Subscribe(name string, h eventbus.Handler) func()
	Emit(name string, payload eventbus.Payload)
}

// TaskStore is the persistence surface for tasks
type TaskStore interface {
	ListOverdue(ctx context.Context, now time.Time) ([]models.Task, error)
	Assign(ctx context.Context, tenantID, taskID, userID uuid.UUID) error
}

// InventoryStore lists items that need restocking
type InventoryStore interface {
	ListLowStock(ctx context.Context) ([]models.InventoryItem, error)
}

// TenantStore looks up tenants and iterates them page by page
type TenantStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListIDs(ctx context.Context, offset, limit int) ([]uuid.UUID, error)
}

// AppointmentStore is the persistence surface for appointments
type AppointmentStore interface {
	MarkNeedsReassignment(ctx context.Context, employeeID uuid.UUID, from time.Time) (int64, error)
	ListNeedsReassignmentByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Appointment, error)
	ListUpcomingNeedsReassignment(ctx context.Context, now time.Time) ([]models.Appointment, error)
	Reassign(ctx context.Context, appointmentID, newEmployeeID uuid.UUID) error
}

// AutopilotService reacts to domain events and runs the periodic maintenance
// sweep: overdue tasks, invoice reminders, low inventory and appointments
// waiting for reassignment. It is the only component that moves appointments
// into and out of NEEDS_REASSIGNMENT.
type AutopilotService struct {
	bus          Bus
	tasks        TaskStore
	tenants      TenantStore
	inventory    InventoryStore
	appointments AppointmentStore
	employees    EmployeeStore
	reminders    *ReminderService
	availability *AvailabilityService
	notifier     notification.Notifier
	clock        clockwork.Clock
	metrics      *metrics.Metrics

	mu        sync.Mutex
	enabled   bool
	scheduler gocron.Scheduler
	unsubs    []func()
}

// NewAutopilotService creates the autopilot and registers its event
// subscriptions. The sweep timer is armed separately via Start.
func NewAutopilotService(
	bus Bus,
	tasks TaskStore,
	tenants TenantStore,
	inventory InventoryStore,
	appointments AppointmentStore,
	employees EmployeeStore,
	reminders *ReminderService,
	availability *AvailabilityService,
	notifier notification.Notifier,
	clock clockwork.Clock,
	m *metrics.Metrics,
	enabled bool,
) *AutopilotService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if notifier == nil {
		notifier = notification.NewLogNotifier()
	}

	s := &AutopilotService{
		bus:          bus,
		tasks:        tasks,
		tenants:      tenants,
		inventory:    inventory,
		appointments: appointments,
		employees:    employees,
		reminders:    reminders,
		availability: availability,
		notifier:     notifier,
		clock:        clock,
		metrics:      m,
		enabled:      enabled,
	}

	s.unsubs = append(s.unsubs,
		bus.Subscribe(eventbus.AppointmentCreated, s.handleAppointmentCreated),
		bus.Subscribe(eventbus.EmployeeSick, s.handleEmployeeSick),
		bus.Subscribe(eventbus.TaskOverdue, s.handleTaskOverdue),
	)
	return s
}

// Start arms the sweep timer, replacing any previous one. Stopping an
// in-flight sweep is not attempted; it runs to completion.
func (s *AutopilotService) Start(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("Failed to shut down previous sweep scheduler")
		}
		s.scheduler = nil
	}

	scheduler, err := gocron.NewScheduler(gocron.WithClock(s.clock))
	if err != nil {
		return errors.Wrap(err, "failed to create sweep scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.RunPeriodicTasks(context.Background())
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to schedule sweep job")
	}

	scheduler.Start()
	s.scheduler = scheduler
	log.Info().Dur("interval", interval).Msg("Autopilot sweep started")
	return nil
}

// Stop disarms the sweep timer
func (s *AutopilotService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler == nil {
		return nil
	}
	err := s.scheduler.Shutdown()
	s.scheduler = nil
	if err != nil {
		return errors.Wrap(err, "failed to shut down sweep scheduler")
	}
	log.Info().Msg("Autopilot sweep stopped")
	return nil
}

// SetEnabled suppresses or resumes all autopilot actions. The timer keeps
// firing while disabled; every action checks the flag and no-ops.
func (s *AutopilotService) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	log.Info().Bool("enabled", enabled).Msg("Autopilot toggled")
}

// Enabled reports whether autopilot actions are active
func (s *AutopilotService) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Running reports whether the sweep timer is armed
func (s *AutopilotService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler != nil
}

// Unsubscribe removes the event subscriptions. Used in tests.
func (s *AutopilotService) Unsubscribe() {
	for _, u := range s.unsubs {
		u()
	}
	s.unsubs = nil
}

// RunPeriodicTasks executes one sweep. The four steps are isolated: a
// failing step is logged and the remaining steps still run.
func (s *AutopilotService) RunPeriodicTasks(ctx context.Context) {
	if !s.Enabled() {
		log.Debug().Msg("Autopilot disabled, skipping sweep")
		return
	}

	started := s.clock.Now()
	log.Info().Msg("Autopilot sweep starting")

	if err := s.sweepOverdueTasks(ctx); err != nil {
		log.Error().Err(err).Msg("Sweep step failed: overdue tasks")
	}
	if err := s.sweepOverdueInvoices(ctx); err != nil {
		log.Error().Err(err).Msg("Sweep step failed: overdue invoices")
	}
	if err := s.sweepLowInventory(ctx); err != nil {
		log.Error().Err(err).Msg("Sweep step failed: low inventory")
	}
	if err := s.sweepPendingReassignments(ctx); err != nil {
		log.Error().Err(err).Msg("Sweep step failed: pending reassignments")
	}

	if s.metrics != nil {
		s.metrics.IncrementCounter("autopilot.sweeps")
		s.metrics.RecordTimer("autopilot.sweep", s.clock.Since(started))
	}
}

// sweepOverdueTasks emits task.overdue for every task past its deadline
func (s *AutopilotService) sweepOverdueTasks(ctx context.Context) error {
	tasks, err := s.tasks.ListOverdue(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	for i := range tasks {
		t := &tasks[i]
		s.bus.Emit(eventbus.TaskOverdue, &eventbus.TaskOverduePayload{
			Meta:     eventbus.Meta{TenantID: t.TenantID},
			TaskID:   t.ID,
			Title:    t.Title,
			Deadline: t.Deadline,
		})
	}
	if len(tasks) > 0 {
		log.Info().Int("count", len(tasks)).Msg("Overdue tasks found")
	}
	return nil
}

// sweepOverdueInvoices escalates reminders for invoices whose computed level
// exceeds the level already recorded. Tenants are walked in pages so a large
// tenant count does not load everything at once.
func (s *AutopilotService) sweepOverdueInvoices(ctx context.Context) error {
	for offset := 0; ; offset += tenantPageSize {
		tenantIDs, err := s.tenants.ListIDs(ctx, offset, tenantPageSize)
		if err != nil {
			return err
		}
		if len(tenantIDs) == 0 {
			return nil
		}

		for _, tenantID := range tenantIDs {
			invoices, err := s.reminders.GetOverdueInvoices(ctx, tenantID)
			if err != nil {
				log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("Failed to fetch overdue invoices")
				continue
			}
			for i := range invoices {
				invoice := &invoices[i]
				level := s.reminders.CalculateReminderLevel(invoice, nil)
				if level <= invoice.ReminderLevel {
					continue
				}
				if _, err := s.reminders.CreateReminder(ctx, tenantID, invoice.ID, level, "email", ""); err != nil {
					log.Error().Err(err).Str("invoice_id", invoice.ID.String()).Msg("Failed to create reminder")
				}
			}
		}

		if len(tenantIDs) < tenantPageSize {
			return nil
		}
	}
}

// sweepLowInventory emits inventory.low for every item at or below its
// threshold. Re-emission on every tick is intended; consumers dedup.
func (s *AutopilotService) sweepLowInventory(ctx context.Context) error {
	items, err := s.inventory.ListLowStock(ctx)
	if err != nil {
		return err
	}
	for i := range items {
		item := &items[i]
		s.bus.Emit(eventbus.InventoryLow, &eventbus.InventoryLowPayload{
			Meta:         eventbus.Meta{TenantID: item.TenantID},
			ItemID:       item.ID,
			Name:         item.Name,
			Quantity:     item.Quantity,
			MinThreshold: item.MinThreshold,
		})
	}
	return nil
}

// sweepPendingReassignments surfaces appointments still waiting for a human
// to pick a replacement. Reassignment itself stays an admin action.
func (s *AutopilotService) sweepPendingReassignments(ctx context.Context) error {
	appointments, err := s.appointments.ListUpcomingNeedsReassignment(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SetGauge("autopilot.pending_reassignments", int64(len(appointments)))
	}
	if len(appointments) > 0 {
		log.Warn().Int("count", len(appointments)).Msg("Appointments waiting for reassignment")
	}
	return nil
}

// MarkEmployeeSick flips the sick flag, moves the employee's future
// appointments into NEEDS_REASSIGNMENT and announces the change
func (s *AutopilotService) MarkEmployeeSick(ctx context.Context, employeeID uuid.UUID) error {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return err
	}
	if employee == nil {
		return errors.New("employee not found")
	}

	if err := s.employees.SetSick(ctx, employeeID, true); err != nil {
		return err
	}
	s.availability.InvalidateEmployee(ctx, employeeID)

	affected, err := s.appointments.MarkNeedsReassignment(ctx, employeeID, s.clock.Now())
	if err != nil {
		return err
	}

	log.Info().
		Str("employee_id", employeeID.String()).
		Int64("affected_appointments", affected).
		Msg("Employee marked sick")

	s.bus.Emit(eventbus.EmployeeSick, &eventbus.EmployeeSickPayload{
		Meta:                 eventbus.Meta{TenantID: employee.TenantID},
		EmployeeID:           employeeID,
		EmployeeName:         employee.Name,
		AffectedAppointments: affected,
	})
	return nil
}

// AssignTask sets the assignee of a task
func (s *AutopilotService) AssignTask(ctx context.Context, tenantID, taskID, userID uuid.UUID) error {
	return s.tasks.Assign(ctx, tenantID, taskID, userID)
}

// RescheduleAppointments hands the old employee's NEEDS_REASSIGNMENT
// appointments to the new employee. Each slot is re-checked against the new
// employee's availability; slots the employee cannot take stay pending and
// are reported in the skipped count.
func (s *AutopilotService) RescheduleAppointments(ctx context.Context, oldEmployeeID, newEmployeeID uuid.UUID) (moved, skipped int, err error) {
	appointments, err := s.appointments.ListNeedsReassignmentByEmployee(ctx, oldEmployeeID)
	if err != nil {
		return 0, 0, err
	}

	for i := range appointments {
		appt := &appointments[i]
		result, err := s.availability.CheckAvailability(ctx, newEmployeeID, appt.StartTime, appt.EndTime)
		if err != nil {
			return moved, skipped, err
		}
		if !result.IsAvailable {
			skipped++
			log.Warn().
				Str("appointment_id", appt.ID.String()).
				Str("new_employee_id", newEmployeeID.String()).
				Str("reason", result.Reason).
				Msg("Skipping reassignment, new employee unavailable")
			continue
		}
		if err := s.appointments.Reassign(ctx, appt.ID, newEmployeeID); err != nil {
			return moved, skipped, err
		}
		moved++
	}

	log.Info().
		Str("old_employee_id", oldEmployeeID.String()).
		Str("new_employee_id", newEmployeeID.String()).
		Int("moved", moved).
		Int("skipped", skipped).
		Msg("Appointments reassigned")
	return moved, skipped, nil
}

// CreateInvoiceDraft reserves a draft identifier. Invoice drafting lives in
// the CRUD layer; this only hands back the ID the caller will use.
func (s *AutopilotService) CreateInvoiceDraft(ctx context.Context, tenantID, customerID uuid.UUID, amountCents int64) (uuid.UUID, error) {
	draftID := uuid.New()
	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("customer_id", customerID.String()).
		Int64("amount_cents", amountCents).
		Str("draft_id", draftID.String()).
		Msg("Invoice draft created")
	return draftID, nil
}

func (s *AutopilotService) handleAppointmentCreated(ctx context.Context, e eventbus.Event) error {
	if !s.Enabled() {
		return nil
	}
	payload, ok := e.Payload.(*eventbus.AppointmentCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for %s", e.Name)
	}
	// Extension point for automation rules keyed on new bookings.
	log.Info().
		Str("appointment_id", payload.AppointmentID.String()).
		Str("tenant_id", payload.TenantID.String()).
		Msg("Appointment created")
	return nil
}

func (s *AutopilotService) handleEmployeeSick(ctx context.Context, e eventbus.Event) error {
	if !s.Enabled() {
		return nil
	}
	payload, ok := e.Payload.(*eventbus.EmployeeSickPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for %s", e.Name)
	}

	message := fmt.Sprintf("%s is out sick, %d appointments need reassignment", payload.EmployeeName, payload.AffectedAppointments)
	if tenant, err := s.tenants.GetByID(ctx, payload.TenantID); err != nil {
		log.Warn().Err(err).Str("tenant_id", payload.TenantID.String()).Msg("Failed to look up tenant for sick notification")
	} else {
		message = fmt.Sprintf("%s: %s", tenant.Name, message)
	}

	return s.notifier.NotifyAdmin(ctx, notification.AdminNotification{
		Type:     "employee_sick",
		Message:  message,
		TenantID: payload.TenantID,
	})
}

func (s *AutopilotService) handleTaskOverdue(ctx context.Context, e eventbus.Event) error {
	if !s.Enabled() {
		return nil
	}
	payload, ok := e.Payload.(*eventbus.TaskOverduePayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for %s", e.Name)
	}
	// Extension point for escalation policies.
	log.Info().
		Str("task_id", payload.TaskID.String()).
		Str("title", payload.Title).
		Msg("Task overdue")
	return nil
}
