package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/askroom/internal/core"
	"github.com/vovakirdan/askroom/internal/events"
	"github.com/vovakirdan/askroom/internal/proto"
)

// QuestionHandlers provides HTTP handlers for asking, resetting and deleting questions.
type QuestionHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewQuestionHandlers creates a new question handlers instance.
func NewQuestionHandlers(hub *core.Hub, logger *zerolog.Logger) *QuestionHandlers {
	return &QuestionHandlers{
		hub: hub,
		log: logger,
	}
}

// AskRequest represents the submit question request body.
type AskRequest struct {
	Text string `json:"text" binding:"required"`
}

// QuestionResponse carries the appended message, and the delivery error when there was one.
type QuestionResponse struct {
	Message proto.EventMessage `json:"message"`
	Error   string             `json:"error,omitempty"`
}

// Submit asks a question in the active room.
// POST /api/questions
func (h *QuestionHandlers) Submit(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid ask request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	msg, err := h.hub.SubmitQuestion(c.Request.Context(), req.Text)
	if errors.Is(err, core.ErrDeliverFailed) {
		// The question is in the transcript and still polled for.
		c.JSON(http.StatusBadGateway, QuestionResponse{Message: events.MessageToProto(msg), Error: err.Error()})
		return
	}
	if err != nil {
		abortWithHubError(c, h.log, err)
		return
	}

	c.JSON(http.StatusAccepted, QuestionResponse{Message: events.MessageToProto(msg)})
}

// Reset rolls the active room back to before the question.
// POST /api/questions/:id/reset
func (h *QuestionHandlers) Reset(c *gin.Context) {
	id := c.Param("id")
	found, err := h.hub.ResetQuestion(c.Request.Context(), id)
	if err != nil {
		abortWithHubError(c, h.log, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrMessageNotFound.Error(), Code: core.ErrCodeMessageNotFound})
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete removes one question from the active room.
// DELETE /api/questions/:id
func (h *QuestionHandlers) Delete(c *gin.Context) {
	id := c.Param("id")
	found, err := h.hub.DeleteQuestion(c.Request.Context(), id)
	if err != nil {
		abortWithHubError(c, h.log, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrMessageNotFound.Error(), Code: core.ErrCodeMessageNotFound})
		return
	}
	c.Status(http.StatusNoContent)
}
