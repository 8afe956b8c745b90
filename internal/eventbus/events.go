package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Event names form a closed set. New automation hooks add a new name; an
// existing payload shape is never changed incompatibly.
const (
	AppointmentCreated     = "appointment.created"
	EmployeeSick           = "employee.sick"
	TaskOverdue            = "task.overdue"
	InventoryLow           = "inventory.low"
	InvoiceReminderCreated = "invoice.reminder_created"
	InvoiceReminderSent    = "invoice.reminder_sent"
	InvoiceReminderFailed  = "invoice.reminder_failed"
	InvoiceReminderStopped = "invoice.reminder_stopped"
)

// Meta carries the fields every event payload has. The bus stamps Timestamp
// on emit when the caller leaves it zero.
type Meta struct {
	TenantID  uuid.UUID  `json:"tenant_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func (m *Meta) meta() *Meta { return m }

// Payload is implemented by all event payload types via an embedded Meta
type Payload interface {
	meta() *Meta
}

// AppointmentCreatedPayload accompanies appointment.created
type AppointmentCreatedPayload struct {
	Meta
	AppointmentID uuid.UUID  `json:"appointment_id"`
	CustomerID    *uuid.UUID `json:"customer_id,omitempty"`
	EmployeeID    *uuid.UUID `json:"employee_id,omitempty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
}

// EmployeeSickPayload accompanies employee.sick
type EmployeeSickPayload struct {
	Meta
	EmployeeID           uuid.UUID `json:"employee_id"`
	EmployeeName         string    `json:"employee_name"`
	AffectedAppointments int64     `json:"affected_appointments"`
}

// TaskOverduePayload accompanies task.overdue
type TaskOverduePayload struct {
	Meta
	TaskID   uuid.UUID  `json:"task_id"`
	Title    string     `json:"title"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// InventoryLowPayload accompanies inventory.low
type InventoryLowPayload struct {
	Meta
	ItemID       uuid.UUID `json:"item_id"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	MinThreshold int       `json:"min_threshold"`
}

// ReminderCreatedPayload accompanies invoice.reminder_created
type ReminderCreatedPayload struct {
	Meta
	InvoiceID  uuid.UUID `json:"invoice_id"`
	ReminderID uuid.UUID `json:"reminder_id"`
	Level      int       `json:"level"`
}

// ReminderStatusPayload accompanies invoice.reminder_sent and
// invoice.reminder_failed
type ReminderStatusPayload struct {
	Meta
	ReminderID uuid.UUID `json:"reminder_id"`
	InvoiceID  uuid.UUID `json:"invoice_id"`
}

// ReminderStoppedPayload accompanies invoice.reminder_stopped
type ReminderStoppedPayload struct {
	Meta
	InvoiceID uuid.UUID `json:"invoice_id"`
}
