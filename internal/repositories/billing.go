package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Joni1544/my-saas-demo-sub001/internal/models"
)

// InvoiceRepository provides access to invoice data
type InvoiceRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB, readOnlyDB *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetByID gets an invoice by ID
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.readOnlyDB.WithContext(ctx).First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get invoice by ID")
	}
	return &invoice, nil
}

// ListOverdue returns unpaid invoices of a tenant past their due date,
// oldest due date first
func (r *InvoiceRepository) ListOverdue(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.readOnlyDB.WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND due_date < ? AND paid_at IS NULL",
			tenantID, []string{models.InvoicePending, models.InvoiceOverdue}, now).
		Order("due_date ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list overdue invoices")
	}
	return invoices, nil
}

// ResetReminderLevel sets the reminder level back to zero without touching
// the invoice status. Safe to call repeatedly.
func (r *InvoiceRepository) ResetReminderLevel(ctx context.Context, invoiceID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("reminder_level", 0).Error
	if err != nil {
		return errors.Wrap(err, "failed to reset invoice reminder level")
	}
	return nil
}

// InvoiceReminderRepository provides access to invoice reminders
type InvoiceReminderRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewInvoiceReminderRepository creates a new invoice reminder repository
func NewInvoiceReminderRepository(db *gorm.DB, readOnlyDB *gorm.DB) *InvoiceReminderRepository {
	return &InvoiceReminderRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// CreateForInvoice persists a reminder and advances the invoice's reminder
// level and status in the same transaction
func (r *InvoiceReminderRepository) CreateForInvoice(ctx context.Context, reminder *models.InvoiceReminder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reminder).Error; err != nil {
			return err
		}
		return tx.Model(&models.Invoice{}).
			Where("id = ?", reminder.InvoiceID).
			Updates(map[string]any{
				"reminder_level": reminder.Level,
				"status":         models.InvoiceOverdue,
			}).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to create invoice reminder")
	}
	return nil
}

// GetByID gets a reminder by ID
func (r *InvoiceReminderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.InvoiceReminder, error) {
	var reminder models.InvoiceReminder
	err := r.readOnlyDB.WithContext(ctx).First(&reminder, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get reminder by ID")
	}
	return &reminder, nil
}

// UpdateStatus transitions a reminder's delivery status
func (r *InvoiceReminderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceReminder{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update reminder status")
	}
	if result.RowsAffected == 0 {
		return errors.New("no reminder updated")
	}
	return nil
}

// TaskRepository provides access to task data
type TaskRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB, readOnlyDB *gorm.DB) *TaskRepository {
	return &TaskRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// ListOverdue returns tasks past their deadline that are not done yet
func (r *TaskRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.readOnlyDB.WithContext(ctx).
		Where("deadline IS NOT NULL AND deadline < ? AND status != ?", now, models.TaskDone).
		Find(&tasks).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list overdue tasks")
	}
	return tasks, nil
}

// Assign sets the assignee of a task, scoped to the tenant
func (r *TaskRepository) Assign(ctx context.Context, tenantID, taskID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND tenant_id = ?", taskID, tenantID).
		Update("assigned_to", userID)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to assign task")
	}
	if result.RowsAffected == 0 {
		return errors.New("no task updated")
	}
	return nil
}

// InventoryRepository provides access to inventory data
type InventoryRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB, readOnlyDB *gorm.DB) *InventoryRepository {
	return &InventoryRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// ListLowStock returns items at or below their minimum threshold
func (r *InventoryRepository) ListLowStock(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.readOnlyDB.WithContext(ctx).
		Where("quantity <= min_threshold").
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list low stock items")
	}
	return items, nil
}

// DeadLetterRepository persists events dropped by the bus
type DeadLetterRepository struct {
	db *gorm.DB
}

// NewDeadLetterRepository creates a new dead letter repository
func NewDeadLetterRepository(db *gorm.DB) *DeadLetterRepository {
	return &DeadLetterRepository{db: db}
}

// Create stores a dropped event for later inspection
func (r *DeadLetterRepository) Create(ctx context.Context, event *models.DeadLetterEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return errors.Wrap(err, "failed to store dead letter event")
	}
	return nil
}
