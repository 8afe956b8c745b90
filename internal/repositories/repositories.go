package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Joni1544/my-saas-demo-sub001/internal/models"
)

// TenantRepository provides access to tenant data
type TenantRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB, readOnlyDB *gorm.DB) *TenantRepository {
	return &TenantRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetByID gets a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.readOnlyDB.WithContext(ctx).First(&tenant, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tenant by ID")
	}
	return &tenant, nil
}

// ListIDs returns a page of tenant IDs ordered by creation time. The sweep
// walks tenants page by page instead of loading all of them at once.
func (r *TenantRepository) ListIDs(ctx context.Context, offset, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.Tenant{}).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tenant IDs")
	}
	return ids, nil
}

// EmployeeRepository provides access to employee data
type EmployeeRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *gorm.DB, readOnlyDB *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetByID gets an employee by ID
func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	err := r.readOnlyDB.WithContext(ctx).First(&employee, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get employee by ID")
	}
	return &employee, nil
}

// ListActiveByTenant lists all active employees of a tenant
func (r *EmployeeRepository) ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Employee, error) {
	var employees []models.Employee
	err := r.readOnlyDB.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("name ASC").
		Find(&employees).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active employees")
	}
	return employees, nil
}

// SetSick updates the sick flag and bumps the sick-day counter when an
// employee is reported sick
func (r *EmployeeRepository) SetSick(ctx context.Context, id uuid.UUID, sick bool) error {
	updates := map[string]any{"is_sick": sick}
	if sick {
		updates["sick_days"] = gorm.Expr("sick_days + 1")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update employee sick status")
	}
	if result.RowsAffected == 0 {
		return errors.New("no employee updated")
	}
	return nil
}

// VacationRequestRepository provides access to vacation requests
type VacationRequestRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewVacationRequestRepository creates a new vacation request repository
func NewVacationRequestRepository(db *gorm.DB, readOnlyDB *gorm.DB) *VacationRequestRepository {
	return &VacationRequestRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// ListApprovedOverlapping returns approved vacation requests of an employee
// whose date range touches the given interval (inclusive bounds)
func (r *VacationRequestRepository) ListApprovedOverlapping(ctx context.Context, employeeID uuid.UUID, start, end time.Time) ([]models.VacationRequest, error) {
	var requests []models.VacationRequest
	err := r.readOnlyDB.WithContext(ctx).
		Where("employee_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
			employeeID, models.VacationApproved, end, start).
		Find(&requests).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list approved vacation requests")
	}
	return requests, nil
}

// AppointmentRepository provides access to appointment data
type AppointmentRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *gorm.DB, readOnlyDB *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// MarkNeedsReassignment moves all future open or accepted appointments of an
// employee into NEEDS_REASSIGNMENT and returns how many rows changed
func (r *AppointmentRepository) MarkNeedsReassignment(ctx context.Context, employeeID uuid.UUID, from time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("employee_id = ? AND start_time >= ? AND status IN ?",
			employeeID, from, []string{models.AppointmentOpen, models.AppointmentAccepted}).
		Update("status", models.AppointmentNeedsReassignment)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to mark appointments for reassignment")
	}
	return result.RowsAffected, nil
}

// ListNeedsReassignmentByEmployee lists an employee's appointments waiting
// for a replacement
func (r *AppointmentRepository) ListNeedsReassignmentByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.readOnlyDB.WithContext(ctx).
		Where("employee_id = ? AND status = ?", employeeID, models.AppointmentNeedsReassignment).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list appointments needing reassignment")
	}
	return appointments, nil
}

// ListUpcomingNeedsReassignment lists appointments across all tenants that
// still need a replacement and have not started yet
func (r *AppointmentRepository) ListUpcomingNeedsReassignment(ctx context.Context, now time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.readOnlyDB.WithContext(ctx).
		Where("status = ? AND start_time >= ?", models.AppointmentNeedsReassignment, now).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list upcoming appointments needing reassignment")
	}
	return appointments, nil
}

// Reassign hands a single appointment to a new employee and reopens it
func (r *AppointmentRepository) Reassign(ctx context.Context, appointmentID, newEmployeeID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status = ?", appointmentID, models.AppointmentNeedsReassignment).
		Updates(map[string]any{
			"employee_id": newEmployeeID,
			"status":      models.AppointmentOpen,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to reassign appointment")
	}
	if result.RowsAffected == 0 {
		return errors.New("no appointment updated")
	}
	return nil
}
