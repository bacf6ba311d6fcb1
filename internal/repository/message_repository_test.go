package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
)

func messageDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "job_id", "sender_id", "receiver_id", "content", "message_type", "created_at",
		"sender_first_name", "sender_last_name", "sender_role", "sender_phone",
		"receiver_first_name", "receiver_last_name", "receiver_role", "receiver_phone",
		"job_customer_name", "job_location", "job_customer_phone",
	})
}

func TestMessageCreateDefaultsIDAndTimestamp(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMessageRepository(db)

	mock.ExpectExec("INSERT INTO messages").WillReturnResult(sqlmock.NewResult(0, 1))

	message := &models.Message{
		SenderID:    "c1",
		ReceiverID:  "r1",
		Content:     "pipes ordered",
		MessageType: models.MessageDirect,
	}
	require.NoError(t, repo.Create(context.Background(), message))

	assert.NotEmpty(t, message.ID)
	assert.False(t, message.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageListByJobJoinsParticipants(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.job_id = $1 ORDER BY m.created_at ASC")).
		WithArgs("j1").
		WillReturnRows(messageDetailRows().AddRow(
			"m1", "j1", "c1", "r1", "need a part", "job_related", testTime(),
			"Milo", "Vance", "contractor", "",
			"Dana", "Reyes", "receptionist", "",
			"Ada Byrne", "12 Pipe Lane", "555-0100",
		))

	messages, err := repo.ListByJob(context.Background(), "j1")
	require.NoError(t, err)

	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].SenderFirstName)
	assert.Equal(t, "Milo", *messages[0].SenderFirstName)
	require.NotNil(t, messages[0].JobCustomerName)
	assert.Equal(t, "Ada Byrne", *messages[0].JobCustomerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageConversationSpansBothDirections(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE (m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1)")).
		WithArgs("c1", "r1").
		WillReturnRows(messageDetailRows().
			AddRow("m1", nil, "c1", "r1", "hello", "direct", testTime(),
				"Milo", "Vance", "contractor", "", "Dana", "Reyes", "receptionist", "", nil, nil, nil).
			AddRow("m2", "j1", "r1", "c1", "about the job", "job_related", testTime(),
				"Dana", "Reyes", "receptionist", "", "Milo", "Vance", "contractor", "", "Ada Byrne", "12 Pipe Lane", ""))

	messages, err := repo.Conversation(context.Background(), "c1", "r1")
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, models.MessageDirect, messages[0].MessageType)
	assert.Equal(t, models.MessageJobRelated, messages[1].MessageType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageListDirectFiltersType(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.message_type = $1 AND (m.sender_id = $2 OR m.receiver_id = $2)")).
		WithArgs(models.MessageDirect, "c1").
		WillReturnRows(messageDetailRows())

	_, err := repo.ListDirect(context.Background(), "c1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMessageRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM messages WHERE id = $1")).
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "m1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
