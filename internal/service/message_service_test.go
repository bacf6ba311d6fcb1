package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
	appErrors "github.com/plumbdesk/plumbdesk-api/pkg/errors"
)

type mockMessageRepo struct {
	messages map[string]*models.Message

	created   *models.Message
	deletedID string
	err       error
}

func (m *mockMessageRepo) Create(ctx context.Context, message *models.Message) error {
	m.created = message
	return m.err
}

func (m *mockMessageRepo) FindByID(ctx context.Context, id string) (*models.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return msg, nil
}

func (m *mockMessageRepo) ListByJob(ctx context.Context, jobID string) ([]models.MessageDetail, error) {
	return nil, m.err
}

func (m *mockMessageRepo) ListByReceiver(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	return nil, m.err
}

func (m *mockMessageRepo) ListBySender(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	return nil, m.err
}

func (m *mockMessageRepo) ListDirect(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	return nil, m.err
}

func (m *mockMessageRepo) Conversation(ctx context.Context, userID, otherID string) ([]models.MessageDetail, error) {
	return nil, m.err
}

func (m *mockMessageRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func newMessageService(repo *mockMessageRepo, users *mockUserLookup, jobs *mockJobRepo) *MessageService {
	return NewMessageService(repo, users, jobs, nil, nil, 100)
}

func messagingUsers() *mockUserLookup {
	return &mockUserLookup{users: map[string]*models.User{
		"admin-1":      {ID: "admin-1", Role: models.RoleAdmin},
		"reception-1":  {ID: "reception-1", Role: models.RoleReceptionist},
		"contractor-1": {ID: "contractor-1", Role: models.RoleContractor},
		"contractor-2": {ID: "contractor-2", Role: models.RoleContractor},
	}}
}

func TestSendMessagePairingPolicy(t *testing.T) {
	cases := []struct {
		name     string
		sender   *models.AuthUser
		receiver string
		allowed  bool
	}{
		{"contractor to receptionist", contractorUser("contractor-1"), "reception-1", true},
		{"receptionist to contractor", &models.AuthUser{ID: "reception-1", Role: models.RoleReceptionist}, "contractor-1", true},
		{"admin to receptionist", &models.AuthUser{ID: "admin-1", Role: models.RoleAdmin}, "reception-1", true},
		{"receptionist to admin", &models.AuthUser{ID: "reception-1", Role: models.RoleReceptionist}, "admin-1", true},
		{"contractor to admin", contractorUser("contractor-1"), "admin-1", false},
		{"admin to contractor", &models.AuthUser{ID: "admin-1", Role: models.RoleAdmin}, "contractor-1", false},
		{"contractor to contractor", contractorUser("contractor-1"), "contractor-2", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockMessageRepo{}
			svc := newMessageService(repo, messagingUsers(), &mockJobRepo{})

			msg, err := svc.Send(context.Background(), tc.sender, SendMessageRequest{
				ReceiverID: tc.receiver,
				Content:    "pipes ordered",
			})
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, models.MessageDirect, msg.MessageType)
				assert.Equal(t, tc.sender.ID, repo.created.SenderID)
			} else {
				require.Error(t, err)
				var appErr *appErrors.Error
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
				assert.Nil(t, repo.created)
			}
		})
	}
}

func TestSendMessageContentLengthLimit(t *testing.T) {
	svc := newMessageService(&mockMessageRepo{}, messagingUsers(), &mockJobRepo{})

	_, err := svc.Send(context.Background(), contractorUser("contractor-1"), SendMessageRequest{
		ReceiverID: "reception-1",
		Content:    strings.Repeat("x", 101),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSendMessageUnknownReceiverNotFound(t *testing.T) {
	svc := newMessageService(&mockMessageRepo{}, messagingUsers(), &mockJobRepo{})

	_, err := svc.Send(context.Background(), contractorUser("contractor-1"), SendMessageRequest{
		ReceiverID: "missing",
		Content:    "hello",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSendJobRelatedMessage(t *testing.T) {
	jobs := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", EmployeeAssigned: strPtr("contractor-1"), AssignmentStatus: models.AssignmentAccepted},
	}}
	repo := &mockMessageRepo{}
	svc := newMessageService(repo, messagingUsers(), jobs)

	msg, err := svc.Send(context.Background(), contractorUser("contractor-1"), SendMessageRequest{
		ReceiverID: "reception-1",
		Content:    "need a part for this one",
		JobID:      strPtr("j1"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.MessageJobRelated, msg.MessageType)
	require.NotNil(t, msg.JobID)
	assert.Equal(t, "j1", *msg.JobID)
}

func TestSendJobRelatedMessageRequiresAssignment(t *testing.T) {
	jobs := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", EmployeeAssigned: strPtr("contractor-2"), AssignmentStatus: models.AssignmentAccepted},
	}}
	svc := newMessageService(&mockMessageRepo{}, messagingUsers(), jobs)

	_, err := svc.Send(context.Background(), contractorUser("contractor-1"), SendMessageRequest{
		ReceiverID: "reception-1",
		Content:    "about that job",
		JobID:      strPtr("j1"),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestSendMessageUnknownJobNotFound(t *testing.T) {
	svc := newMessageService(&mockMessageRepo{}, messagingUsers(), &mockJobRepo{jobs: map[string]*models.Job{}})

	_, err := svc.Send(context.Background(), contractorUser("contractor-1"), SendMessageRequest{
		ReceiverID: "reception-1",
		Content:    "about that job",
		JobID:      strPtr("missing"),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestJobMessagesContractorMustBeAssigned(t *testing.T) {
	jobs := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", EmployeeAssigned: strPtr("contractor-2")},
	}}
	svc := newMessageService(&mockMessageRepo{}, messagingUsers(), jobs)

	_, err := svc.JobMessages(context.Background(), contractorUser("contractor-1"), "j1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestDeleteMessageParticipantsAndAdminOnly(t *testing.T) {
	repo := &mockMessageRepo{messages: map[string]*models.Message{
		"m1": {ID: "m1", SenderID: "contractor-1", ReceiverID: "reception-1"},
	}}
	svc := newMessageService(repo, messagingUsers(), &mockJobRepo{})

	err := svc.Delete(context.Background(), contractorUser("contractor-2"), "m1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, svc.Delete(context.Background(), contractorUser("contractor-1"), "m1"))
	assert.Equal(t, "m1", repo.deletedID)

	repo.deletedID = ""
	require.NoError(t, svc.Delete(context.Background(), &models.AuthUser{ID: "admin-1", Role: models.RoleAdmin}, "m1"))
	assert.Equal(t, "m1", repo.deletedID)
}
