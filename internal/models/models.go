package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Appointment statuses
const (
	AppointmentOpen              = "OPEN"
	AppointmentAccepted          = "ACCEPTED"
	AppointmentCancelled         = "CANCELLED"
	AppointmentRescheduled       = "RESCHEDULED"
	AppointmentCompleted         = "COMPLETED"
	AppointmentNeedsReassignment = "NEEDS_REASSIGNMENT"
)

// Invoice statuses
const (
	InvoicePending = "PENDING"
	InvoiceOverdue = "OVERDUE"
	InvoicePaid    = "PAID"
)

// Vacation request statuses
const (
	VacationPending  = "PENDING"
	VacationApproved = "APPROVED"
	VacationDenied   = "DENIED"
)

// Reminder statuses
const (
	ReminderPending = "PENDING"
	ReminderSent    = "SENT"
	ReminderFailed  = "FAILED"
)

// Task statuses
const (
	TaskOpen       = "OPEN"
	TaskInProgress = "IN_PROGRESS"
	TaskDone       = "DONE"
)

// Tenant represents an isolated customer organization (a salon or studio)
type Tenant struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
}

// Customer represents an end customer of a tenant
type Customer struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name      string         `gorm:"not null" json:"name"`
	Email     *string        `json:"email"`
	Tenant    Tenant         `gorm:"foreignKey:TenantID" json:"-"`
}

// Employee represents a bookable staff member.
// WorkStart/WorkEnd and BreakStart/BreakEnd are HH:mm strings; an empty
// string means the window is not configured. DaysOff holds English weekday
// names, comma separated.
type Employee struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	TenantID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID           *uuid.UUID     `gorm:"type:uuid" json:"user_id"`
	Name             string         `gorm:"not null" json:"name"`
	WorkStart        string         `json:"work_start"`
	WorkEnd          string         `json:"work_end"`
	BreakStart       string         `json:"break_start"`
	BreakEnd         string         `json:"break_end"`
	DaysOff          string         `json:"days_off"`
	IsSick           bool           `gorm:"not null;default:false" json:"is_sick"`
	IsActive         bool           `gorm:"not null;default:true" json:"is_active"`
	SickDays         int            `gorm:"not null;default:0" json:"sick_days"`
	VacationDaysUsed int            `gorm:"not null;default:0" json:"vacation_days_used"`
	Tenant           Tenant         `gorm:"foreignKey:TenantID" json:"-"`
}

// DaysOffList splits the stored day names into a slice
func (e *Employee) DaysOffList() []string {
	if e.DaysOff == "" {
		return nil
	}
	parts := strings.Split(e.DaysOff, ",")
	days := make([]string, 0, len(parts))
	for _, p := range parts {
		if d := strings.TrimSpace(p); d != "" {
			days = append(days, d)
		}
	}
	return days
}

// VacationRequest represents a time-off request for an employee.
// Only APPROVED requests block bookings.
type VacationRequest struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	EmployeeID uuid.UUID      `gorm:"type:uuid;not null;index" json:"employee_id"`
	StartDate  time.Time      `gorm:"not null" json:"start_date"`
	EndDate    time.Time      `gorm:"not null" json:"end_date"`
	Status     string         `gorm:"not null;default:'PENDING'" json:"status"`
	Days       int            `gorm:"not null;default:0" json:"days"`
	Employee   Employee       `gorm:"foreignKey:EmployeeID" json:"-"`
}

// Appointment represents a booked time slot.
// NEEDS_REASSIGNMENT is entered only by system action when the assigned
// employee becomes unavailable; an admin exits it by reassigning, which
// returns the appointment to OPEN.
type Appointment struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	EmployeeID *uuid.UUID     `gorm:"type:uuid;index" json:"employee_id"`
	CustomerID *uuid.UUID     `gorm:"type:uuid" json:"customer_id"`
	Title      string         `json:"title"`
	StartTime  time.Time      `gorm:"not null;index" json:"start_time"`
	EndTime    time.Time      `gorm:"not null" json:"end_time"`
	Status     string         `gorm:"not null;default:'OPEN';index" json:"status"`
	Tenant     Tenant         `gorm:"foreignKey:TenantID" json:"-"`
}

// Invoice represents a customer invoice.
// ReminderLevel only ever increases while the invoice stays unpaid and is
// reset to 0 when reminders are stopped.
type Invoice struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	TenantID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID    *uuid.UUID     `gorm:"type:uuid" json:"customer_id"`
	Number        string         `json:"number"`
	AmountCents   int64          `gorm:"not null;default:0" json:"amount_cents"`
	DueDate       time.Time      `gorm:"not null;index" json:"due_date"`
	PaidAt        *time.Time     `json:"paid_at"`
	Status        string         `gorm:"not null;default:'PENDING';index" json:"status"`
	ReminderLevel int            `gorm:"not null;default:0" json:"reminder_level"`
	Tenant        Tenant         `gorm:"foreignKey:TenantID" json:"-"`
}

// InvoiceReminder represents one escalation stage issued for an invoice
type InvoiceReminder struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	TenantID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	InvoiceID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Level        int            `gorm:"not null" json:"level"`
	Status       string         `gorm:"not null;default:'PENDING'" json:"status"`
	Method       string         `json:"method"`
	AIText       string         `gorm:"column:ai_text" json:"ai_text"`
	ReminderDate time.Time      `gorm:"not null" json:"reminder_date"`
	Invoice      Invoice        `gorm:"foreignKey:InvoiceID" json:"-"`
}

// Task represents an internal to-do for a tenant
type Task struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Title      string         `gorm:"not null" json:"title"`
	Deadline   *time.Time     `json:"deadline"`
	Status     string         `gorm:"not null;default:'OPEN'" json:"status"`
	AssignedTo *uuid.UUID     `gorm:"type:uuid" json:"assigned_to"`
	Tenant     Tenant         `gorm:"foreignKey:TenantID" json:"-"`
}

// InventoryItem represents a stocked product
type InventoryItem struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	TenantID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name         string         `gorm:"not null" json:"name"`
	Quantity     int            `gorm:"not null;default:0" json:"quantity"`
	MinThreshold int            `gorm:"not null;default:0" json:"min_threshold"`
	Tenant       Tenant         `gorm:"foreignKey:TenantID" json:"-"`
}

// DeadLetterEvent is the durable audit row for events the bus dropped after
// exhausting retries
type DeadLetterEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	EventName  string    `gorm:"not null;index" json:"event_name"`
	Payload    []byte    `gorm:"type:jsonb" json:"payload"`
	Attempts   int       `gorm:"not null" json:"attempts"`
	LastError  string    `gorm:"type:text" json:"last_error"`
	EnqueuedAt time.Time `gorm:"not null" json:"enqueued_at"`
}

// TableName overrides the default pluralization
func (DeadLetterEvent) TableName() string {
	return "dead_letter_events"
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Tenant{},
		&Customer{},
		&Employee{},
		&VacationRequest{},
		&Appointment{},
		&Invoice{},
		&InvoiceReminder{},
		&Task{},
		&InventoryItem{},
		&DeadLetterEvent{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
