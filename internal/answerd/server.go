package answerd

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/askroom/internal/proto"
	transporthttp "github.com/vovakirdan/askroom/internal/transport/http"
)

// Handlers serves the backend wire contract on top of a Worker.
type Handlers struct {
	worker *Worker
	log    *zerolog.Logger
}

func NewHandlers(worker *Worker, logger *zerolog.Logger) *Handlers {
	return &Handlers{worker: worker, log: logger}
}

// NewRouter builds the gin engine with the backend routes.
func NewRouter(worker *Worker, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(transporthttp.LoggerMiddleware(logger))

	h := NewHandlers(worker, logger)
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.POST(proto.BackendPathDeliver, h.Deliver)
	router.POST(proto.BackendPathAnswer, h.Answer)
	router.POST(proto.BackendPathDiscard, h.Discard)
	return router
}

// NewServer wraps the router in an HTTP server listening on addr.
func NewServer(worker *Worker, addr string, readHeaderTimeout time.Duration, logger *zerolog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(worker, logger),
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Deliver queues a question.
// POST /api/deliver
func (h *Handlers) Deliver(c *gin.Context) {
	var req proto.DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid deliver request")
		c.JSON(http.StatusBadRequest, proto.ErrorBody{Error: "invalid request body"})
		return
	}

	q := Question{Room: req.Room, ID: req.ID, Text: req.Question}
	if err := h.worker.Deliver(c.Request.Context(), q); err != nil {
		h.log.Error().Err(err).Str("room", req.Room).Msg("failed to queue question")
		c.JSON(http.StatusInternalServerError, proto.ErrorBody{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, proto.Ack{OK: true})
}

// Answer pops the room's unread answer.
// POST /api/answer
func (h *Handlers) Answer(c *gin.Context) {
	var req proto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid answer request")
		c.JSON(http.StatusBadRequest, proto.ErrorBody{Error: "invalid request body"})
		return
	}

	answer, err := h.worker.Fetch(c.Request.Context(), req.Room)
	if err != nil {
		h.log.Error().Err(err).Str("room", req.Room).Msg("failed to fetch answer")
		c.JSON(http.StatusInternalServerError, proto.ErrorBody{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, proto.AnswerResponse{Answer: answer})
}

// Discard queues a rollback.
// POST /api/discard
func (h *Handlers) Discard(c *gin.Context) {
	var req proto.DiscardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid discard request")
		c.JSON(http.StatusBadRequest, proto.ErrorBody{Error: "invalid request body"})
		return
	}

	if err := h.worker.Discard(c.Request.Context(), Discard{Room: req.Room, ID: req.ID}); err != nil {
		h.log.Error().Err(err).Str("room", req.Room).Msg("failed to queue discard")
		c.JSON(http.StatusInternalServerError, proto.ErrorBody{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, proto.Ack{OK: true})
}
