package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/askroom/internal/config"
	"github.com/vovakirdan/askroom/internal/core"
	"github.com/vovakirdan/askroom/internal/events"
)

// NewServer builds the HTTP server exposing the hub over REST and WebSocket.
func NewServer(hub *core.Hub, bus *events.Bus, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	limiter := newRateLimiter(cfg.SubmitRateLimit, time.Minute)
	rooms := NewRoomHandlers(hub, logger)
	questions := NewQuestionHandlers(hub, logger)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	api := router.Group("/api")
	{
		api.GET("/rooms", rooms.ListRooms)
		api.POST("/rooms", rooms.CreateRoom)
		api.PUT("/rooms/active", rooms.SelectRoom)
		api.GET("/rooms/:name/transcript", rooms.RoomTranscript)
		api.GET("/transcript", rooms.ActiveTranscript)

		api.POST("/questions", RateLimitMiddleware(limiter, logger), questions.Submit)
		api.POST("/questions/:id/reset", questions.Reset)
		api.DELETE("/questions/:id", questions.Delete)
	}

	// /ws stays outside gin: its response writer refuses the hijack the upgrade needs.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, bus, limiter, cfg.MaxMessageBytes, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
