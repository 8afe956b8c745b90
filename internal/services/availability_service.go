package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Joni1544/my-saas-demo-sub001/internal/cache"
	"github.com/Joni1544/my-saas-demo-sub001/internal/models"
)

// ErrInvalidInterval is returned when the requested interval is empty or
// reversed
var ErrInvalidInterval = errors.New("interval start must be before interval end")

const employeeCacheTTL = 30 * time.Second

// EmployeeStore is the persistence surface the availability checker needs
type EmployeeStore interface {
	// GetByID returns (nil, nil) when the employee does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Employee, error)
	SetSick(ctx context.Context, id uuid.UUID, sick bool) error
}

// VacationStore looks up approved vacation requests
type VacationStore interface {
	ListApprovedOverlapping(ctx context.Context, employeeID uuid.UUID, start, end time.Time) ([]models.VacationRequest, error)
}

// AvailabilityDetails flags which check failed
type AvailabilityDetails struct {
	IsSick           bool `json:"is_sick"`
	HasVacation      bool `json:"has_vacation"`
	IsDayOff         bool `json:"is_day_off"`
	OutsideWorkHours bool `json:"outside_work_hours"`
	InBreakTime      bool `json:"in_break_time"`
}

// AvailabilityResult is the outcome of one availability check
type AvailabilityResult struct {
	IsAvailable bool                `json:"is_available"`
	Reason      string              `json:"reason,omitempty"`
	Details     AvailabilityDetails `json:"details"`
}

// AvailabilityService decides whether an employee can be booked for a time
// interval. It only reads employee and vacation state and never mutates it.
// The check is advisory: double-booking prevention belongs to the database
// layer, not here.
type AvailabilityService struct {
	employees EmployeeStore
	vacations VacationStore
	cache     *cache.RedisCache
}

// NewAvailabilityService creates a new availability service. The cache may
// be nil, in which case every check reads from the store.
func NewAvailabilityService(employees EmployeeStore, vacations VacationStore, redisCache *cache.RedisCache) *AvailabilityService {
	return &AvailabilityService{
		employees: employees,
		vacations: vacations,
		cache:     redisCache,
	}
}

// CheckAvailability runs the checks in strict short-circuit order: existence,
// sickness, approved vacation, day off, work hours, break. An unknown
// employee is a negative result, not an error; the error return is reserved
// for infrastructure failures.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, employeeID uuid.UUID, start, end time.Time) (*AvailabilityResult, error) {
	if !start.Before(end) {
		return nil, ErrInvalidInterval
	}

	employee, err := s.getEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return &AvailabilityResult{IsAvailable: false, Reason: "employee not found"}, nil
	}

	return s.checkEmployee(ctx, employee, start, end)
}

// EligibleEmployees filters a tenant's active employees down to those who
// can take the given slot
func (s *AvailabilityService) EligibleEmployees(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]models.Employee, error) {
	if !start.Before(end) {
		return nil, ErrInvalidInterval
	}

	employees, err := s.employees.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.Employee, 0, len(employees))
	for i := range employees {
		result, err := s.checkEmployee(ctx, &employees[i], start, end)
		if err != nil {
			return nil, err
		}
		if result.IsAvailable {
			eligible = append(eligible, employees[i])
		}
	}
	return eligible, nil
}

// InvalidateEmployee drops an employee from the cache after a mutation
func (s *AvailabilityService) InvalidateEmployee(ctx context.Context, employeeID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.EmployeeCacheKey(employeeID)); err != nil {
		log.Warn().Err(err).Str("employee_id", employeeID.String()).Msg("Failed to invalidate employee cache entry")
	}
}

func (s *AvailabilityService) checkEmployee(ctx context.Context, employee *models.Employee, start, end time.Time) (*AvailabilityResult, error) {
	if employee.IsSick {
		return &AvailabilityResult{
			IsAvailable: false,
			Reason:      "employee is currently sick",
			Details:     AvailabilityDetails{IsSick: true},
		}, nil
	}

	vacations, err := s.vacations.ListApprovedOverlapping(ctx, employee.ID, start, end)
	if err != nil {
		return nil, err
	}
	if len(vacations) > 0 {
		return &AvailabilityResult{
			IsAvailable: false,
			Reason:      "employee is on approved vacation",
			Details:     AvailabilityDetails{HasVacation: true},
		}, nil
	}

	weekday := start.Weekday().String()
	for _, day := range employee.DaysOffList() {
		if strings.EqualFold(day, weekday) {
			return &AvailabilityResult{
				IsAvailable: false,
				Reason:      fmt.Sprintf("employee has a day off on %s", weekday),
				Details:     AvailabilityDetails{IsDayOff: true},
			}, nil
		}
	}

	// No configured work hours means always bookable outside the checks
	// above.
	if employee.WorkStart != "" && employee.WorkEnd != "" {
		workStart, okStart := parseClock(employee.WorkStart)
		workEnd, okEnd := parseClock(employee.WorkEnd)
		if okStart && okEnd {
			startMin := minuteOfDay(start)
			endMin := minuteOfDay(end)
			// An end on a later calendar day can never fit the working
			// window; an exact-midnight end reads as minute 1440 of the
			// starting day, past any expressible closing time.
			if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
				endMin = 24 * 60
			}
			if startMin < workStart || endMin > workEnd {
				return &AvailabilityResult{
					IsAvailable: false,
					Reason:      fmt.Sprintf("requested time is outside working hours (%s-%s)", employee.WorkStart, employee.WorkEnd),
					Details:     AvailabilityDetails{OutsideWorkHours: true},
				}, nil
			}

			if employee.BreakStart != "" && employee.BreakEnd != "" {
				breakStart, okBS := parseClock(employee.BreakStart)
				breakEnd, okBE := parseClock(employee.BreakEnd)
				if okBS && okBE && startMin < breakEnd && endMin > breakStart {
					return &AvailabilityResult{
						IsAvailable: false,
						Reason:      fmt.Sprintf("requested time overlaps the break (%s-%s)", employee.BreakStart, employee.BreakEnd),
						Details:     AvailabilityDetails{InBreakTime: true},
					}, nil
				}
			}
		} else {
			log.Warn().
				Str("employee_id", employee.ID.String()).
				Str("work_start", employee.WorkStart).
				Str("work_end", employee.WorkEnd).
				Msg("Unparseable work hours, treating employee as unconfigured")
		}
	}

	return &AvailabilityResult{IsAvailable: true}, nil
}

func (s *AvailabilityService) getEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	if s.cache != nil {
		var cached models.Employee
		err := s.cache.Get(ctx, cache.EmployeeCacheKey(id), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Msg("Employee cache read failed, falling back to store")
		}
	}

	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if employee != nil && s.cache != nil {
		if err := s.cache.Set(ctx, cache.EmployeeCacheKey(id), employee, employeeCacheTTL); err != nil {
			log.Warn().Err(err).Msg("Employee cache write failed")
		}
	}
	return employee, nil
}

// parseClock converts an HH:mm string to minutes since midnight
func parseClock(value string) (int, bool) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, false
	}
	return hours*60 + minutes, true
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
