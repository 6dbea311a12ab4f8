package models

import "time"

// Activity action constants written by the workflow.
const (
	ActivityLogin            = "Logged In"
	ActivityPasswordChange   = "Changed Password"
	ActivityReportUploaded   = "Uploaded report"
	ActivityReportReuploaded = "Reuploaded report"
	ActivityFeedbackGiven    = "Provided Feedback"
	ActivityHODFeedbackGiven = "Provided HOD Feedback"
	ActivityStageAdvanced    = "Moved Report to Next Stage"
	ActivityStudentAssigned  = "Assigned Student to Supervisor"
	ActivityStudentUnassign  = "Unassigned Student from Supervisor"
	ActivityUserCreated      = "Created User Account"
	ActivityUserUpdated      = "Updated User Account"
	ActivityUserDeleted      = "Deleted User Account"
	ActivityFileEdited       = "Edited Report File"
)

// ActivityLog is an append-only audit record. Business logic never reads it;
// dashboards do.
type ActivityLog struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"user_id,omitempty"`
	Action       string    `db:"action" json:"action"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceID   *string   `db:"resource_id" json:"resource_id,omitempty"`
	Metadata     []byte    `db:"metadata" json:"metadata,omitempty"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ActivityLogDetail includes the actor's name for dashboard feeds.
type ActivityLogDetail struct {
	ActivityLog
	UserName *string `db:"user_name" json:"user_name,omitempty"`
}
