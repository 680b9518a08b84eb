package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/models"
)

var fixedNow = time.Date(2026, 2, 25, 2, 0, 0, 0, time.UTC)

func newTransport(t *testing.T) (*Transport, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	tr := New(db, "system-user", logger.NewTestLogger(t))
	tr.now = func() time.Time { return fixedNow }
	return tr, mock
}

func TestTransport_Send(t *testing.T) {
	tr, mock := newTransport(t)
	recipients := []models.User{{ID: "u1"}, {ID: "u2"}}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO message_conversation \(`).
		WithArgs(sqlmock.AnyArg(), "Overdue DataSet Summary", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec(`INSERT INTO message \(`).
		WithArgs(sqlmock.AnyArg(), int64(42), "body", "system-user", fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO message_conversation_user`).
		WithArgs(int64(42), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO message_conversation_user`).
		WithArgs(int64(42), "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, tr.Send(context.Background(), "Overdue DataSet Summary", "body", recipients))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransport_Send_RollsBackOnFailure(t *testing.T) {
	tr, mock := newTransport(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO message_conversation \(`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO message \(`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := tr.Send(context.Background(), "s", "b", []models.User{{ID: "u1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert message")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransport_Send_NoRecipients(t *testing.T) {
	tr, mock := newTransport(t)

	err := tr.Send(context.Background(), "s", "b", nil)
	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.NoError(t, mock.ExpectationsWereMet())
}
