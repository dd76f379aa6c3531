package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/askroom/internal/core"
	"github.com/vovakirdan/askroom/internal/events"
	"github.com/vovakirdan/askroom/internal/proto"
)

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// RoomRequest names a room to create or select.
type RoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Name     string `json:"name"`
	Busy     bool   `json:"busy"`
	Messages int    `json:"messages"`
}

// RoomsResponse lists rooms in creation order with the active one.
type RoomsResponse struct {
	Active string         `json:"active"`
	Rooms  []RoomResponse `json:"rooms"`
}

// TranscriptResponse is a room's transcript.
type TranscriptResponse struct {
	Room     string               `json:"room"`
	Messages []proto.EventMessage `json:"messages"`
}

// ListRooms returns all rooms.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	res, err := h.hub.Execute(c.Request.Context(), core.Command{Kind: core.CommandSnapshot})
	if err != nil {
		abortWithHubError(c, h.log, err)
		return
	}

	rooms := make([]RoomResponse, 0, len(res.Rooms))
	for _, r := range res.Rooms {
		rooms = append(rooms, RoomResponse{Name: r.Name, Busy: r.Busy, Messages: r.Messages})
	}
	c.JSON(http.StatusOK, RoomsResponse{Active: res.Active, Rooms: rooms})
}

// CreateRoom registers a room and makes it active.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	if err := h.hub.CreateRoom(c.Request.Context(), req.Name); err != nil {
		abortWithHubError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, RoomResponse{Name: req.Name})
}

// SelectRoom switches the active room.
// PUT /api/rooms/active
func (h *RoomHandlers) SelectRoom(c *gin.Context) {
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid select room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	if err := h.hub.SelectRoom(c.Request.Context(), req.Name); err != nil {
		abortWithHubError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ActiveTranscript returns the transcript of the active room.
// GET /api/transcript
func (h *RoomHandlers) ActiveTranscript(c *gin.Context) {
	res, err := h.hub.Execute(c.Request.Context(), core.Command{Kind: core.CommandSnapshot})
	if err != nil {
		abortWithHubError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TranscriptResponse{Room: res.Active, Messages: events.MessagesToProto(res.Messages)})
}

// RoomTranscript returns the transcript of a named room.
// GET /api/rooms/:name/transcript
func (h *RoomHandlers) RoomTranscript(c *gin.Context) {
	name := c.Param("name")
	msgs, err := h.hub.RoomTranscript(c.Request.Context(), name)
	if err != nil {
		abortWithHubError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TranscriptResponse{Room: name, Messages: events.MessagesToProto(msgs)})
}
