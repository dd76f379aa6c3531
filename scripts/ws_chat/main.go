package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/askroom/internal/proto"
)

// frame is proto.Outbound with the data left raw so it can be decoded per event.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	room := flag.String("room", "general", "room to create and select on start, empty to skip")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if *room != "" {
		if err := send(ctx, conn, proto.InboundTypeCreate, proto.RoomData{Room: *room}); err != nil {
			return err
		}
		if err := send(ctx, conn, proto.InboundTypeSelect, proto.RoomData{Room: *room}); err != nil {
			return err
		}
	}

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type a question and press Enter. Commands: /create NAME, /select NAME, /reset ID, /delete ID. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if f.Type == proto.OutboundTypeError {
			if f.Error != nil {
				fmt.Printf("! %s: %s\n", f.Error.Code, f.Error.Msg)
			}
			continue
		}
		printEvent(f)
	}
}

func printEvent(f frame) {
	switch f.Event {
	case "room_created", "room_selected":
		var evt proto.EventRoom
		if err := json.Unmarshal(f.Data, &evt); err != nil {
			log.Printf("unmarshal %s: %v", f.Event, err)
			return
		}
		fmt.Printf("[%s] %s (busy=%t)\n", evt.Room, strings.TrimPrefix(f.Event, "room_"), evt.Busy)
	case "question_submitted", "answer_resolved", "answer_expired":
		var evt proto.EventQuestion
		if err := json.Unmarshal(f.Data, &evt); err != nil {
			log.Printf("unmarshal %s: %v", f.Event, err)
			return
		}
		m := evt.Message
		fmt.Printf("[%s] #%s Q: %s\n[%s] #%s A: %s\n", m.Room, m.ID, m.Question, m.Room, m.ID, m.Answer)
	case "question_reset", "question_deleted":
		var evt proto.EventRemoved
		if err := json.Unmarshal(f.Data, &evt); err != nil {
			log.Printf("unmarshal %s: %v", f.Event, err)
			return
		}
		fmt.Printf("[%s] removed %s\n", evt.Room, strings.Join(evt.Removed, ", "))
	default:
		fmt.Printf("event=%s data=%s\n", f.Event, f.Data)
	}
}

// parseLine turns a typed line into an inbound message type and payload.
func parseLine(line string) (string, any) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/create":
		return proto.InboundTypeCreate, proto.RoomData{Room: arg}
	case "/select":
		return proto.InboundTypeSelect, proto.RoomData{Room: arg}
	case "/reset":
		return proto.InboundTypeReset, proto.MessageRef{ID: arg}
	case "/delete":
		return proto.InboundTypeDelete, proto.MessageRef{ID: arg}
	}
	return proto.InboundTypeAsk, proto.AskData{Text: line}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			typ, data := parseLine(text)
			if err := send(ctx, conn, typ, data); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
