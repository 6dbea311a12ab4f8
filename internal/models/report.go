package models

import "time"

// ReportStage enumerates the fixed checkpoints a report lineage passes through.
type ReportStage string

const (
	StageProgress1 ReportStage = "progress_1"
	StageProgress2 ReportStage = "progress_2"
	StageProgress3 ReportStage = "progress_3"
	StageFinal     ReportStage = "final"
)

// StageSequence is the ordered progression of report stages.
var StageSequence = []ReportStage{StageProgress1, StageProgress2, StageProgress3, StageFinal}

// NextStage returns the stage following the given one. ok is false when the
// stage is final or unrecognized.
func NextStage(stage ReportStage) (ReportStage, bool) {
	for i, s := range StageSequence {
		if s == stage && i < len(StageSequence)-1 {
			return StageSequence[i+1], true
		}
	}
	return "", false
}

// ValidStage reports whether the value is a known stage.
func ValidStage(stage ReportStage) bool {
	for _, s := range StageSequence {
		if s == stage {
			return true
		}
	}
	return false
}

// ReportStatus enumerates the review states of a report.
type ReportStatus string

const (
	StatusPending       ReportStatus = "pending"
	StatusApproved      ReportStatus = "approved"
	StatusRejected      ReportStatus = "rejected"
	StatusFeedbackGiven ReportStatus = "feedback_given"
)

// FeedbackAction enumerates what a supervisor decided when posting feedback.
type FeedbackAction string

const (
	ActionMinorChanges FeedbackAction = "minor_changes"
	ActionNoAction     FeedbackAction = "no_action"
	ActionRevise       FeedbackAction = "revise"
	ActionMeetDiscuss  FeedbackAction = "meet_discuss"
)

// StatusForAction maps a feedback action to the resulting report status.
// Unrecognized actions fall through to feedback_given.
func StatusForAction(action FeedbackAction) ReportStatus {
	switch action {
	case ActionMinorChanges, ActionNoAction:
		return StatusApproved
	case ActionRevise:
		return StatusRejected
	default:
		return StatusFeedbackGiven
	}
}

// ReuploadAllowed reports whether a report in the given status accepts a new
// file version.
func ReuploadAllowed(status ReportStatus) bool {
	return status == StatusFeedbackGiven || status == StatusRejected
}

// Report represents one submission lineage. A reupload mutates the same row:
// version increments in place and status resets to pending.
type Report struct {
	ID           string       `db:"id" json:"id"`
	StudentID    string       `db:"student_id" json:"student_id"`
	SupervisorID string       `db:"supervisor_id" json:"supervisor_id"`
	Title        string       `db:"title" json:"title"`
	ReportStage  ReportStage  `db:"report_stage" json:"report_stage"`
	FileURL      string       `db:"file_url" json:"file_url"`
	FileName     string       `db:"file_name" json:"file_name"`
	FileSize     int64        `db:"file_size" json:"file_size"`
	Version      int          `db:"version" json:"version"`
	Status       ReportStatus `db:"status" json:"status"`
	SubmittedAt  time.Time    `db:"submitted_at" json:"submitted_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// ReportDetail joins report rows with student identity for review listings.
type ReportDetail struct {
	Report
	StudentName        string  `db:"student_name" json:"student_name"`
	StudentEmail       string  `db:"student_email" json:"student_email"`
	StudentDepartment  string  `db:"student_department" json:"student_department"`
	RegistrationNumber *string `db:"registration_number" json:"registration_number,omitempty"`
	StudentLevel       *string `db:"student_level" json:"student_level,omitempty"`
}

// ReportFilter narrows supervisor/HOD report listings.
type ReportFilter struct {
	SupervisorID string
	Department   string
	Status       *ReportStatus
	Stage        *ReportStage
	Search       string
	Page         int
	PageSize     int
}
