package models

import "time"

// Assignment links one student to one supervisor, owned by the coordinator
// who created it. Rows are deactivated, never deleted, so the reassignment
// timeline stays reconstructable.
type Assignment struct {
	ID                 string    `db:"id" json:"id"`
	StudentID          string    `db:"student_id" json:"student_id"`
	SupervisorID       string    `db:"supervisor_id" json:"supervisor_id"`
	LevelCoordinatorID string    `db:"level_coordinator_id" json:"level_coordinator_id"`
	Active             bool      `db:"is_active" json:"is_active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// AssignmentDetail joins assignment rows with participant names for listings.
type AssignmentDetail struct {
	Assignment
	StudentName        string  `db:"student_name" json:"student_name"`
	RegistrationNumber *string `db:"registration_number" json:"registration_number,omitempty"`
	StudentLevel       *string `db:"student_level" json:"student_level,omitempty"`
	SupervisorName     string  `db:"supervisor_name" json:"supervisor_name"`
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	Level        string
	SupervisorID string
}

// SupervisorLoad summarizes a supervisor's current assignment count against
// the soft capacity shown on coordinator dashboards.
type SupervisorLoad struct {
	SupervisorID   string `db:"supervisor_id" json:"supervisor_id"`
	SupervisorName string `db:"supervisor_name" json:"supervisor_name"`
	AssignedCount  int    `db:"assigned_count" json:"assigned_count"`
	Capacity       int    `json:"capacity"`
	AvailableSlots int    `json:"available_slots"`
}
