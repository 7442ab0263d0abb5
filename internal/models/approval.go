package models

import "time"

// ApprovalStage identifies which review phase an action applies to.
type ApprovalStage string

const (
	StageDepartment ApprovalStage = "department"
	StageMotorpool  ApprovalStage = "motorpool"
)

// ApprovalAction is the verb a reviewer performs on a request.
type ApprovalAction string

const (
	ActionApprove  ApprovalAction = "approve"
	ActionReject   ApprovalAction = "reject"
	ActionRevision ApprovalAction = "revision"
)

// ApprovalOutcome records how a single review action concluded.
type ApprovalOutcome string

const (
	OutcomeApproved ApprovalOutcome = "APPROVED"
	OutcomeRejected ApprovalOutcome = "REJECTED"
	OutcomeRevision ApprovalOutcome = "REVISION"
)

// Approval is an immutable record of one review action. Append-only.
type Approval struct {
	ID        int64           `db:"id" json:"id"`
	RequestID int64           `db:"request_id" json:"request_id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Stage     ApprovalStage   `db:"stage" json:"stage"`
	Outcome   ApprovalOutcome `db:"outcome" json:"outcome"`
	Comments  string          `db:"comments" json:"comments"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ApprovalWorkflow is the single mutable "what's outstanding" projection per
// request, upserted on every review action.
type ApprovalWorkflow struct {
	ID           int64         `db:"id" json:"id"`
	RequestID    int64         `db:"request_id" json:"request_id"`
	CurrentStage ApprovalStage `db:"current_stage" json:"current_stage"`
	LastActorID  int64         `db:"last_actor_id" json:"last_actor_id"`
	Comments     string        `db:"comments" json:"comments"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// Actor carries the identity facts the approval processor decides with.
// It is always passed explicitly; the core never reads ambient session state.
type Actor struct {
	ID   int64
	Role UserRole
}
