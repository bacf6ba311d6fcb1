package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plumbdesk/plumbdesk-api/internal/service"
	appErrors "github.com/plumbdesk/plumbdesk-api/pkg/errors"
	"github.com/plumbdesk/plumbdesk-api/pkg/response"
)

// MessageHandler wires HTTP endpoints to the message service.
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler creates a new handler.
func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// Send godoc
// @Summary Send message
// @Description Send a direct or job-related message within the pairing rules
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body service.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	message, err := h.service.Send(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, message)
}

// JobMessages godoc
// @Summary Job thread
// @Description Messages attached to one job, oldest first
// @Tags Messages
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /messages/job/{jobId} [get]
func (h *MessageHandler) JobMessages(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	messages, err := h.service.JobMessages(c.Request.Context(), user, c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// Inbox godoc
// @Summary Received messages
// @Description Messages addressed to the caller, newest first
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/receptionist [get]
func (h *MessageHandler) Inbox(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	messages, err := h.service.Inbox(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// Sent godoc
// @Summary Sent messages
// @Description Messages the caller has sent, newest first
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/contractor [get]
func (h *MessageHandler) Sent(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	messages, err := h.service.Sent(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// Direct godoc
// @Summary Direct messages
// @Description The caller's direct messages in both directions
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/direct [get]
func (h *MessageHandler) Direct(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	messages, err := h.service.Direct(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// Conversation godoc
// @Summary Conversation
// @Description Two-way message history with another user, oldest first
// @Tags Messages
// @Produce json
// @Param userId path string true "Other user ID"
// @Success 200 {object} response.Envelope
// @Router /messages/conversation/{userId} [get]
func (h *MessageHandler) Conversation(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	messages, err := h.service.Conversation(c.Request.Context(), user, c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// Delete godoc
// @Summary Delete message
// @Description Remove a message; participants or admin only
// @Tags Messages
// @Param id path string true "Message ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /messages/{id} [delete]
func (h *MessageHandler) Delete(c *gin.Context) {
	user := userFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
