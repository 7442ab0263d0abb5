package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/motorpool-api/internal/models"
)

func TestNotificationRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	notification := &models.Notification{
		UserID:  1,
		Type:    models.NotifyApprovalOutcome,
		Title:   "Request approved",
		Message: "Trip to Harbor was approved",
	}
	require.NoError(t, repo.Create(context.Background(), notification))
	require.False(t, notification.CreatedAt.IsZero())

	rows := sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "link", "read_at", "created_at"}).
		AddRow(11, 1, "APPROVAL_OUTCOME", "Request approved", "Trip to Harbor was approved", nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("read_at IS NULL ORDER BY created_at DESC LIMIT 10")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	listed, err := repo.ListByUser(context.Background(), 1, true, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, models.NotifyApprovalOutcome, listed[0].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	readAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read_at")).
		WithArgs(int64(11), int64(1), readAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRead(context.Background(), 11, 1, readAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadForeignRow(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewNotificationRepository(db)
	mock.ExpectExec("UPDATE notifications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), 11, 99, time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
