package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/askroom/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	room := flag.String("room", "smoke", "room name")
	text := flag.String("text", "hello from smoke test", "question to ask")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	// The room may exist from an earlier run, so select it as well.
	if err := mustSend(proto.InboundTypeCreate, proto.RoomData{Room: *room}); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeSelect, proto.RoomData{Room: *room}); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeAsk, proto.AskData{Text: *text}); err != nil {
		return err
	}

	var questionID string
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			fmt.Printf("Error: %s %s\n", outbound.Error.Code, outbound.Error.Msg)
			if outbound.Error.Code == "duplicate_room" {
				continue
			}
			return fmt.Errorf("server error: %s", outbound.Error.Code)
		}

		switch outbound.Event {
		case "question_submitted", "answer_resolved", "answer_expired":
			var evt proto.EventQuestion
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				fmt.Printf("Raw data: %s\n", string(outbound.Data))
				return fmt.Errorf("unmarshal %s: %w", outbound.Event, err)
			}
			if evt.Room != *room {
				continue
			}
			if outbound.Event == "question_submitted" {
				if evt.Message.Question == *text && questionID == "" {
					questionID = evt.Message.ID
				}
				continue
			}
			if evt.Message.ID != questionID {
				continue
			}
			fmt.Printf("Answer: room=%s id=%s answer=%q\n", evt.Room, evt.Message.ID, evt.Message.Answer)
			if outbound.Event == "answer_expired" {
				return fmt.Errorf("question %s expired", questionID)
			}
			return nil
		default:
			// keep looping for the answer
		}
	}
}
