package models

import "time"

// RoleCount pairs a role with its account count.
type RoleCount struct {
	Role  UserRole `db:"role" json:"role"`
	Count int      `db:"count" json:"count"`
}

// StatusCount pairs a report status with its count.
type StatusCount struct {
	Status ReportStatus `db:"status" json:"status"`
	Count  int          `db:"count" json:"count"`
}

// DepartmentCount pairs a department with its user count.
type DepartmentCount struct {
	Department string `db:"department" json:"department"`
	Count      int    `db:"count" json:"count"`
}

// LevelCount pairs a student level with its count.
type LevelCount struct {
	Level string `db:"level" json:"level"`
	Count int    `db:"count" json:"count"`
}

// MonthlyCount is one month bucket in a growth chart.
type MonthlyCount struct {
	Month string `db:"month" json:"month"`
	Count int    `db:"count" json:"count"`
}

// MonthlyReportCount buckets report submissions per month with the approved
// share split out for HOD charts.
type MonthlyReportCount struct {
	Month    string `db:"month" json:"month"`
	Total    int    `db:"total" json:"total"`
	Approved int    `db:"approved" json:"approved"`
}

// AdminOverview backs the admin dashboard.
type AdminOverview struct {
	TotalUsers       int                 `json:"total_users"`
	TotalReports     int                 `json:"total_reports"`
	ActiveUsersToday int                 `json:"active_users_today"`
	UsersByRole      []RoleCount         `json:"users_by_role"`
	UsersByDept      []DepartmentCount   `json:"users_by_department"`
	ReportsByStatus  []StatusCount       `json:"reports_by_status"`
	UserGrowth       []MonthlyCount      `json:"user_growth"`
	RecentActivity   []ActivityLogDetail `json:"recent_activity"`
	GeneratedAt      time.Time           `json:"generated_at"`
}

// SupervisorOverview backs the supervisor dashboard.
type SupervisorOverview struct {
	TotalStudents int       `json:"total_students"`
	TotalReports  int       `json:"total_reports"`
	PendingCount  int       `json:"pending_count"`
	ApprovedCount int       `json:"approved_count"`
	RejectedCount int       `json:"rejected_count"`
	FeedbackGiven int       `json:"feedback_given"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// CoordinatorOverview backs the level coordinator dashboard.
type CoordinatorOverview struct {
	ActiveAssignments    int                `json:"active_assignments"`
	UnassignedStudents   int                `json:"unassigned_students"`
	SupervisorLoads      []SupervisorLoad   `json:"supervisor_loads"`
	AvailableSupervisors []SupervisorLoad   `json:"available_supervisors"`
	History              []AssignmentDetail `json:"history"`
	GeneratedAt          time.Time          `json:"generated_at"`
}

// HODOverview backs the head-of-department dashboard.
type HODOverview struct {
	TotalStudents    int                  `json:"total_students"`
	TotalSupervisors int                  `json:"total_supervisors"`
	TotalReports     int                  `json:"total_reports"`
	ReportsByStatus  []StatusCount        `json:"reports_by_status"`
	StudentsByLevel  []LevelCount         `json:"students_by_level"`
	SupervisorLoads  []SupervisorLoad     `json:"supervisor_loads"`
	MonthlyReports   []MonthlyReportCount `json:"monthly_reports"`
	RecentReports    []ReportDetail       `json:"recent_reports"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// SystemMetrics is an aggregate snapshot of runtime metrics.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
