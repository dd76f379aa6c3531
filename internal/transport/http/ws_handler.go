package http

import (
	"context"
	"errors"
	"io"
	"net"
	stdhttp "net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/askroom/internal/core"
	"github.com/vovakirdan/askroom/internal/events"
	"github.com/vovakirdan/askroom/internal/proto"
)

// WSHandler upgrades HTTP connections, streams hub events from the bus and runs
// inbound commands against the hub.
type WSHandler struct {
	hub             *core.Hub
	bus             *events.Bus
	limiter         *rateLimiter
	maxMessageBytes int64
	log             *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, bus *events.Bus, limiter *rateLimiter, maxMessageBytes int64, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:             hub,
		bus:             bus,
		limiter:         limiter,
		maxMessageBytes: maxMessageBytes,
		log:             logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed, err := h.bus.Subscribe(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("ws subscribe error")
		return
	}

	connID := uuid.NewString()
	clientIP := r.RemoteAddr
	if host, _, splitErr := net.SplitHostPort(r.RemoteAddr); splitErr == nil {
		clientIP = host
	}
	logger := h.log.With().Str("conn_id", connID).Logger()
	logger.Debug().Str("client_ip", clientIP).Msg("ws connected")

	replies := make(chan proto.Outbound, 8)
	outbox := make(chan []byte, outboxSize)
	go pumpFeed(ctx, feed, outbox, &logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, clientIP, replies, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, outbox, replies, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, clientIP string, replies chan<- proto.Outbound, logger *zerolog.Logger) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			logger.Debug().Err(err).Msg("read ws inbound")
			return err
		}

		cmd, protoErr, err := inboundToCommand(inbound)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to map inbound")
			return err
		}
		if protoErr == nil && cmd.Kind == core.CommandSubmitQuestion && !h.limiter.allow(clientIP) {
			protoErr = &proto.Error{Code: "rate_limited", Msg: "rate limit exceeded"}
		}
		if protoErr == nil {
			res, execErr := h.hub.Execute(ctx, *cmd)
			protoErr = replyForResult(cmd, res, execErr)
		}
		if protoErr == nil {
			continue
		}

		select {
		case replies <- proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// outboxSize bounds the events buffered for one connection.
const outboxSize = 64

// pumpFeed acks bus messages as soon as they arrive and hands their payloads to
// the writer. A connection that falls behind loses events instead of stalling the bus.
func pumpFeed(ctx context.Context, feed <-chan *message.Message, outbox chan<- []byte, logger *zerolog.Logger) {
	defer close(outbox)
	for {
		select {
		case msg, ok := <-feed:
			if !ok {
				return
			}
			payload := msg.Payload
			msg.Ack()
			select {
			case outbox <- payload:
			default:
				logger.Warn().Str("event", msg.Metadata.Get(events.MetadataEvent)).Msg("ws outbox full, dropping event")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, outbox <-chan []byte, replies <-chan proto.Outbound, logger *zerolog.Logger) error {
	for {
		select {
		case payload, ok := <-outbox:
			if !ok {
				return ctx.Err()
			}
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				logger.Error().Err(err).Msg("write ws event")
				return err
			}
		case out := <-replies:
			if err := wsjson.Write(ctx, conn, out); err != nil {
				logger.Error().Err(err).Msg("write ws reply")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
