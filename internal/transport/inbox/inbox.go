// Package inbox delivers internal messages as system conversations in the
// user message inbox.
package inbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dataset-notifier/internal/common/logger"
	"dataset-notifier/internal/models"
)

// ErrNoRecipients is returned when a message has nobody to deliver to.
var ErrNoRecipients = errors.New("inbox message has no recipients")

const (
	insertConversationQuery = `
	INSERT INTO message_conversation (uid, subject, message_type, last_message, created_at)
	VALUES ($1, $2, 'SYSTEM', $3, $3)
	RETURNING id`

	insertMessageQuery = `
	INSERT INTO message (uid, conversation_id, text, sender_id, created_at)
	VALUES ($1, $2, $3, $4, $5)`

	insertParticipantQuery = `
	INSERT INTO message_conversation_user (conversation_id, user_id, is_read)
	VALUES ($1, $2, false)
	ON CONFLICT DO NOTHING`
)

// Transport writes one conversation per message with every recipient as
// an unread participant.
type Transport struct {
	db       *sql.DB
	senderID string
	now      func() time.Time
	logger   logger.Logger
}

func New(db *sql.DB, senderID string, log logger.Logger) *Transport {
	return &Transport{
		db:       db,
		senderID: senderID,
		now:      time.Now,
		logger:   logger.ForComponent(log, "inbox-transport"),
	}
}

// Send stores the conversation in a single transaction.
func (t *Transport) Send(ctx context.Context, subject, body string, recipients []models.User) (err error) {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin inbox tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				t.logger.Error("inbox rollback failed", map[string]interface{}{"error": rbErr})
			}
		}
	}()

	now := t.now().UTC()
	var conversationID int64
	if err = tx.QueryRowContext(ctx, insertConversationQuery, uuid.New().String(), subject, now).Scan(&conversationID); err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	if _, err = tx.ExecContext(ctx, insertMessageQuery, uuid.New().String(), conversationID, body, t.senderID, now); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	for _, u := range recipients {
		if _, err = tx.ExecContext(ctx, insertParticipantQuery, conversationID, u.ID); err != nil {
			return fmt.Errorf("add participant %s: %w", u.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit inbox tx: %w", err)
	}

	t.logger.Debug("inbox conversation created", map[string]interface{}{
		"conversationId": conversationID,
		"recipients":     len(recipients),
	})
	return nil
}
