package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/report-workflow-api/internal/models"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
)

// supervisorCapacity is the advisory per-supervisor slot count shown on
// coordinator dashboards. It is a hint, not an enforced limit.
const supervisorCapacity = 5

type statsRepo interface {
	CountUsers(ctx context.Context) (int, error)
	CountReports(ctx context.Context) (int, error)
	UsersByRole(ctx context.Context) ([]models.RoleCount, error)
	UsersByDepartment(ctx context.Context) ([]models.DepartmentCount, error)
	ReportsByStatus(ctx context.Context, department string) ([]models.StatusCount, error)
	UserGrowthMonthly(ctx context.Context, months int) ([]models.MonthlyCount, error)
	MonthlyReportCounts(ctx context.Context, department string, months int) ([]models.MonthlyReportCount, error)
	SupervisorReportCounts(ctx context.Context, supervisorID string) (*models.SupervisorOverview, error)
	DepartmentUserCount(ctx context.Context, department string, role models.UserRole) (int, error)
	DepartmentReportCount(ctx context.Context, department string) (int, error)
	StudentsByLevel(ctx context.Context, department string) ([]models.LevelCount, error)
}

type assignmentStatsRepo interface {
	SupervisorLoads(ctx context.Context) ([]models.SupervisorLoad, error)
	CountUnassignedStudents(ctx context.Context, level string) (int, error)
	ListHistory(ctx context.Context, level string, limit int) ([]models.AssignmentDetail, error)
	ListActive(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
}

type activityReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.ActivityLogDetail, error)
	CountActiveUsersSince(ctx context.Context, since time.Time) (int, error)
}

type feedbackStatsRepo interface {
	CountDistinctFeedbackReports(ctx context.Context, supervisorID string) (int, error)
}

type reportLister interface {
	List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, int, error)
}

// StatsService assembles the role dashboards. Each overview is served
// cache-aside: a hit returns the cached aggregate, a miss recomputes from the
// read queries and stores the result for the configured TTL.
type StatsService struct {
	stats       statsRepo
	assignments assignmentStatsRepo
	activity    activityReader
	feedback    feedbackStatsRepo
	reports     reportLister
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewStatsService creates a service instance.
func NewStatsService(stats statsRepo, assignments assignmentStatsRepo, activity activityReader, feedback feedbackStatsRepo, reports reportLister, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		stats:       stats,
		assignments: assignments,
		activity:    activity,
		feedback:    feedback,
		reports:     reports,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// AdminOverview returns the system-wide dashboard.
func (s *StatsService) AdminOverview(ctx context.Context) (*models.AdminOverview, error) {
	const cacheKey = "dashboard:admin"
	var cached models.AdminOverview
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	overview := &models.AdminOverview{GeneratedAt: time.Now().UTC()}

	var err error
	if overview.TotalUsers, err = s.stats.CountUsers(ctx); err != nil {
		return nil, s.wrap(err, "failed to count users")
	}
	if overview.TotalReports, err = s.stats.CountReports(ctx); err != nil {
		return nil, s.wrap(err, "failed to count reports")
	}
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	if overview.ActiveUsersToday, err = s.activity.CountActiveUsersSince(ctx, startOfDay); err != nil {
		return nil, s.wrap(err, "failed to count active users")
	}
	if overview.UsersByRole, err = s.stats.UsersByRole(ctx); err != nil {
		return nil, s.wrap(err, "failed to count users by role")
	}
	if overview.UsersByDept, err = s.stats.UsersByDepartment(ctx); err != nil {
		return nil, s.wrap(err, "failed to count users by department")
	}
	if overview.ReportsByStatus, err = s.stats.ReportsByStatus(ctx, ""); err != nil {
		return nil, s.wrap(err, "failed to count reports by status")
	}
	if overview.UserGrowth, err = s.stats.UserGrowthMonthly(ctx, 6); err != nil {
		return nil, s.wrap(err, "failed to load user growth")
	}
	if overview.RecentActivity, err = s.activity.ListRecent(ctx, 15); err != nil {
		return nil, s.wrap(err, "failed to list recent activity")
	}

	s.store(ctx, cacheKey, overview)
	return overview, nil
}

// SupervisorOverview returns the caller's review workload dashboard.
func (s *StatsService) SupervisorOverview(ctx context.Context, supervisorID string) (*models.SupervisorOverview, error) {
	cacheKey := "dashboard:supervisor:" + supervisorID
	var cached models.SupervisorOverview
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	overview, err := s.stats.SupervisorReportCounts(ctx, supervisorID)
	if err != nil {
		return nil, s.wrap(err, "failed to load supervisor counts")
	}
	if overview.FeedbackGiven, err = s.feedback.CountDistinctFeedbackReports(ctx, supervisorID); err != nil {
		return nil, s.wrap(err, "failed to count feedback")
	}
	overview.GeneratedAt = time.Now().UTC()

	s.store(ctx, cacheKey, overview)
	return overview, nil
}

// CoordinatorOverview returns the assignment-management dashboard for the
// caller's level.
func (s *StatsService) CoordinatorOverview(ctx context.Context, level string) (*models.CoordinatorOverview, error) {
	cacheKey := "dashboard:coordinator:" + level
	var cached models.CoordinatorOverview
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	overview := &models.CoordinatorOverview{GeneratedAt: time.Now().UTC()}

	loads, err := s.assignments.SupervisorLoads(ctx)
	if err != nil {
		return nil, s.wrap(err, "failed to load supervisor loads")
	}
	annotateLoads(loads)
	for _, load := range loads {
		overview.ActiveAssignments += load.AssignedCount
		if load.AvailableSlots > 0 {
			overview.AvailableSupervisors = append(overview.AvailableSupervisors, load)
		}
	}
	overview.SupervisorLoads = loads

	if overview.UnassignedStudents, err = s.assignments.CountUnassignedStudents(ctx, level); err != nil {
		return nil, s.wrap(err, "failed to count unassigned students")
	}
	if overview.History, err = s.assignments.ListHistory(ctx, level, 20); err != nil {
		return nil, s.wrap(err, "failed to list assignment history")
	}

	s.store(ctx, cacheKey, overview)
	return overview, nil
}

// HODOverview returns the department-wide dashboard.
func (s *StatsService) HODOverview(ctx context.Context, department string) (*models.HODOverview, error) {
	cacheKey := "dashboard:hod:" + department
	var cached models.HODOverview
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	overview := &models.HODOverview{GeneratedAt: time.Now().UTC()}

	var err error
	if overview.TotalStudents, err = s.stats.DepartmentUserCount(ctx, department, models.RoleStudent); err != nil {
		return nil, s.wrap(err, "failed to count students")
	}
	if overview.TotalSupervisors, err = s.stats.DepartmentUserCount(ctx, department, models.RoleSupervisor); err != nil {
		return nil, s.wrap(err, "failed to count supervisors")
	}
	if overview.TotalReports, err = s.stats.DepartmentReportCount(ctx, department); err != nil {
		return nil, s.wrap(err, "failed to count reports")
	}
	if overview.ReportsByStatus, err = s.stats.ReportsByStatus(ctx, department); err != nil {
		return nil, s.wrap(err, "failed to count reports by status")
	}
	if overview.StudentsByLevel, err = s.stats.StudentsByLevel(ctx, department); err != nil {
		return nil, s.wrap(err, "failed to count students by level")
	}
	if overview.MonthlyReports, err = s.stats.MonthlyReportCounts(ctx, department, 6); err != nil {
		return nil, s.wrap(err, "failed to load monthly report counts")
	}

	loads, err := s.assignments.SupervisorLoads(ctx)
	if err != nil {
		return nil, s.wrap(err, "failed to load supervisor loads")
	}
	annotateLoads(loads)
	overview.SupervisorLoads = loads

	recent, _, err := s.reports.List(ctx, models.ReportFilter{Department: department, PageSize: 10})
	if err != nil {
		return nil, s.wrap(err, "failed to list recent reports")
	}
	overview.RecentReports = recent

	s.store(ctx, cacheKey, overview)
	return overview, nil
}

// AvailableSupervisors lists supervisors that still have an open slot.
func (s *StatsService) AvailableSupervisors(ctx context.Context) ([]models.SupervisorLoad, error) {
	loads, err := s.assignments.SupervisorLoads(ctx)
	if err != nil {
		return nil, s.wrap(err, "failed to load supervisor loads")
	}
	annotateLoads(loads)
	available := make([]models.SupervisorLoad, 0, len(loads))
	for _, load := range loads {
		if load.AvailableSlots > 0 {
			available = append(available, load)
		}
	}
	return available, nil
}

func annotateLoads(loads []models.SupervisorLoad) {
	for i := range loads {
		loads[i].Capacity = supervisorCapacity
		loads[i].AvailableSlots = supervisorCapacity - loads[i].AssignedCount
		if loads[i].AvailableSlots < 0 {
			loads[i].AvailableSlots = 0
		}
	}
}

// InvalidateDashboards clears all cached dashboard aggregates. Mutating flows
// call this after writes that change the numbers.
func (s *StatsService) InvalidateDashboards(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *StatsService) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard", zap.String("key", key), zap.Error(err))
	}
}

func (s *StatsService) wrap(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
