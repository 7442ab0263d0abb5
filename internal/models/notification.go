package models

import "time"

// NotificationType classifies outbound notifications.
type NotificationType string

const (
	NotifyApprovalProgress NotificationType = "APPROVAL_PROGRESS"
	NotifyApprovalOutcome  NotificationType = "APPROVAL_OUTCOME"
	NotifyAssignment       NotificationType = "ASSIGNMENT"
	NotifyConflictOverride NotificationType = "CONFLICT_OVERRIDE"
	NotifyTripUpdate       NotificationType = "TRIP_UPDATE"
)

// NotificationJob is the transient "decide what to send" value collected
// during approval processing and dispatched only after commit.
type NotificationJob struct {
	UserID  int64            `json:"user_id"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Link    string           `json:"link,omitempty"`
}

// Notification is the persisted inbox record produced by the dispatcher.
type Notification struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Link      *string          `db:"link" json:"link,omitempty"`
	ReadAt    *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
