package models

import "time"

// Feedback is an append-only supervisor comment on a report.
type Feedback struct {
	ID           string         `db:"id" json:"id"`
	ReportID     string         `db:"report_id" json:"report_id"`
	SupervisorID string         `db:"supervisor_id" json:"supervisor_id"`
	Comment      string         `db:"comment" json:"comment"`
	ActionTaken  FeedbackAction `db:"action_taken" json:"action_taken"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// FeedbackDetail includes the author's name for display.
type FeedbackDetail struct {
	Feedback
	SupervisorName string `db:"supervisor_name" json:"supervisor_name"`
}

// HODFeedback is an append-only head-of-department comment on a report. It
// carries no action and never changes report status.
type HODFeedback struct {
	ID        string    `db:"id" json:"id"`
	ReportID  string    `db:"report_id" json:"report_id"`
	HODID     string    `db:"hod_id" json:"hod_id"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HODFeedbackDetail includes the author's name for display.
type HODFeedbackDetail struct {
	HODFeedback
	HODName string `db:"hod_name" json:"hod_name"`
}
