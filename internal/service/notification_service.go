package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetworks/motorpool-api/internal/models"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
	"github.com/fleetworks/motorpool-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID int64, readAt time.Time) error
}

type notificationSink interface {
	Enqueue(job jobs.Job[models.NotificationJob]) error
}

// NotificationService enqueues per-recipient messages after an approval
// transaction has committed, and persists them when the queue hands them back.
type NotificationService struct {
	store  notificationStore
	sink   notificationSink
	logger *zap.Logger
}

// NewNotificationService constructs the service. The sink is bound later,
// once the job queue wrapping HandleJob exists.
func NewNotificationService(store notificationStore, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{store: store, logger: logger}
}

// Bind attaches the dispatch queue. Must be called before Dispatch.
func (s *NotificationService) Bind(sink notificationSink) {
	s.sink = sink
}

// Dispatch enqueues jobs post-commit. Best effort: failures are logged and
// never propagated, so an already-committed approval can never be undone by
// a notification problem.
func (s *NotificationService) Dispatch(jobList []models.NotificationJob) {
	if s.sink == nil {
		s.logger.Warn("notification sink not bound, dropping jobs", zap.Int("count", len(jobList)))
		return
	}
	for _, job := range jobList {
		err := s.sink.Enqueue(jobs.Job[models.NotificationJob]{
			ID:      uuid.NewString(),
			Type:    string(job.Type),
			Payload: job,
		})
		if err != nil {
			s.logger.Warn("failed to enqueue notification",
				zap.Int64("user_id", job.UserID),
				zap.String("type", string(job.Type)),
				zap.Error(err))
		}
	}
}

// HandleJob is the queue worker callback: it persists the notification row.
// Returning an error lets the queue retry.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job[models.NotificationJob]) error {
	payload := job.Payload
	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Title:   payload.Title,
		Message: payload.Message,
	}
	if payload.Link != "" {
		link := payload.Link
		notification.Link = &link
	}
	if err := s.store.Create(ctx, notification); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	s.logger.Debug("notification delivered",
		zap.Int64("user_id", payload.UserID),
		zap.String("type", string(payload.Type)))
	return nil
}

// Feed returns a user's notification inbox, newest first.
func (s *NotificationService) Feed(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	rows, err := s.store.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return rows, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID int64) error {
	err := s.store.MarkRead(ctx, id, userID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// DisplacedTrip describes a conflicting booking that an override pushed aside.
type DisplacedTrip struct {
	RequestID   int64
	Destination string
	RequesterID int64
	Passengers  []int64
}

// ApprovalNotificationParams carries everything the job builder decides with.
type ApprovalNotificationParams struct {
	Request         *models.Request
	Action          models.ApprovalAction
	Stage           models.ApprovalStage
	NewStatus       models.RequestStatus
	ActorID         int64
	Comments        string
	AssignedDriver  *int64 // driver's user account id
	RequestedDriver *int64 // requested driver's user account id, if any
	Displaced       []DisplacedTrip
}

// BuildApprovalJobs decides what to send. Pure: no I/O, fully testable.
func BuildApprovalJobs(p ApprovalNotificationParams) []models.NotificationJob {
	var jobList []models.NotificationJob
	link := fmt.Sprintf("/requests/%d", p.Request.ID)

	requesterType := models.NotifyApprovalProgress
	if p.NewStatus == models.StatusApproved || p.NewStatus == models.StatusRejected {
		requesterType = models.NotifyApprovalOutcome
	}
	jobList = append(jobList, models.NotificationJob{
		UserID:  p.Request.RequesterID,
		Type:    requesterType,
		Title:   fmt.Sprintf("Trip request #%d %s", p.Request.ID, statusPhrase(p.NewStatus)),
		Message: fmt.Sprintf("Your trip request to %s is now %s.", p.Request.Destination, p.NewStatus),
		Link:    link,
	})

	// Department approval moves the request into the motorpool queue.
	if p.Action == models.ActionApprove && p.Stage == models.StageDepartment && p.Request.MotorpoolHeadID != nil {
		jobList = append(jobList, models.NotificationJob{
			UserID:  *p.Request.MotorpoolHeadID,
			Type:    models.NotifyApprovalProgress,
			Title:   fmt.Sprintf("Trip request #%d awaits motorpool review", p.Request.ID),
			Message: fmt.Sprintf("Request to %s passed department approval and needs a vehicle and driver.", p.Request.Destination),
			Link:    link,
		})
	}

	if p.AssignedDriver != nil {
		jobList = append(jobList, models.NotificationJob{
			UserID:  *p.AssignedDriver,
			Type:    models.NotifyAssignment,
			Title:   fmt.Sprintf("You are assigned to trip #%d", p.Request.ID),
			Message: fmt.Sprintf("You have been assigned to drive the trip to %s.", p.Request.Destination),
			Link:    link,
		})
	}

	if p.RequestedDriver != nil && (p.AssignedDriver == nil || *p.RequestedDriver != *p.AssignedDriver) && p.NewStatus == models.StatusApproved {
		jobList = append(jobList, models.NotificationJob{
			UserID:  *p.RequestedDriver,
			Type:    models.NotifyAssignment,
			Title:   fmt.Sprintf("Trip #%d was assigned to another driver", p.Request.ID),
			Message: fmt.Sprintf("The trip to %s you were requested for went to a different driver.", p.Request.Destination),
			Link:    link,
		})
	}

	// Override fan-out: every affected requester and passenger of every
	// displaced trip, once per user.
	seen := make(map[int64]struct{})
	for _, displaced := range p.Displaced {
		targets := append([]int64{displaced.RequesterID}, displaced.Passengers...)
		for _, userID := range targets {
			if _, ok := seen[userID]; ok {
				continue
			}
			seen[userID] = struct{}{}
			jobList = append(jobList, models.NotificationJob{
				UserID: userID,
				Type:   models.NotifyConflictOverride,
				Title:  fmt.Sprintf("Trip #%d displaced by trip #%d", displaced.RequestID, p.Request.ID),
				Message: fmt.Sprintf("Your trip #%d to %s lost its vehicle or driver to trip #%d to %s.",
					displaced.RequestID, displaced.Destination, p.Request.ID, p.Request.Destination),
				Link: fmt.Sprintf("/requests/%d", displaced.RequestID),
			})
		}
	}

	return jobList
}

func statusPhrase(status models.RequestStatus) string {
	switch status {
	case models.StatusPendingMotorpool:
		return "passed department approval"
	case models.StatusApproved:
		return "approved"
	case models.StatusRejected:
		return "rejected"
	case models.StatusRevision:
		return "returned for revision"
	case models.StatusCancelled:
		return "cancelled"
	case models.StatusCompleted:
		return "completed"
	default:
		return "updated"
	}
}
