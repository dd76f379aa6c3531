package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/askroom/internal/proto"
)

// wsFrame mirrors proto.Outbound with raw data for decoding per event.
type wsFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func dialWS(t *testing.T, ctx context.Context, env *testEnv) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(env.server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil reads frames until one matches, failing on timeout.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(wsFrame) bool) wsFrame {
	t.Helper()
	for {
		var frame wsFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(frame) {
			return frame
		}
	}
}

func isEvent(name string) func(wsFrame) bool {
	return func(f wsFrame) bool { return f.Type == proto.OutboundTypeEvent && f.Event == name }
}

func TestWebSocketAskAndAnswer(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	asker := dialWS(t, ctx, env)
	watcher := dialWS(t, ctx, env)

	// Make sure the watcher's subscription is live before acting.
	send(t, ctx, watcher, proto.InboundTypeSelect, proto.RoomData{Room: "warmup"})
	readUntil(t, ctx, watcher, isEvent("room_selected"))

	send(t, ctx, asker, proto.InboundTypeCreate, proto.RoomData{Room: "general"})
	created := readUntil(t, ctx, watcher, isEvent("room_created"))
	var room proto.EventRoom
	if err := json.Unmarshal(created.Data, &room); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if room.Room != "general" {
		t.Fatalf("unexpected room %q", room.Room)
	}

	send(t, ctx, asker, proto.InboundTypeAsk, proto.AskData{Text: "what is 6x7?"})
	submitted := readUntil(t, ctx, watcher, isEvent("question_submitted"))
	var pending proto.EventQuestion
	if err := json.Unmarshal(submitted.Data, &pending); err != nil {
		t.Fatalf("decode question: %v", err)
	}
	if !pending.Busy || pending.Message.State != "pending" || pending.Message.Answer != "thinking..." {
		t.Fatalf("unexpected pending event: %+v", pending)
	}

	env.backend.release("general", "42")

	resolved := readUntil(t, ctx, watcher, isEvent("answer_resolved"))
	var answered proto.EventQuestion
	if err := json.Unmarshal(resolved.Data, &answered); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answered.Busy || answered.Message.ID != pending.Message.ID || answered.Message.Answer != "42" {
		t.Fatalf("unexpected answer event: %+v", answered)
	}
}

func TestWebSocketErrorsGoToSender(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env)

	send(t, ctx, conn, proto.InboundTypeAsk, proto.AskData{Text: "nobody home?"})
	frame := readUntil(t, ctx, conn, func(f wsFrame) bool { return f.Type == proto.OutboundTypeError })
	if frame.Error == nil || frame.Error.Code != "no_active_room" {
		t.Fatalf("unexpected error frame: %+v", frame.Error)
	}

	send(t, ctx, conn, "shout", proto.AskData{Text: "?"})
	frame = readUntil(t, ctx, conn, func(f wsFrame) bool { return f.Type == proto.OutboundTypeError })
	if frame.Error == nil || frame.Error.Code != "invalid_message" {
		t.Fatalf("unexpected error frame: %+v", frame.Error)
	}

	send(t, ctx, conn, proto.InboundTypeCreate, proto.RoomData{Room: "general"})
	readUntil(t, ctx, conn, isEvent("room_created"))
	send(t, ctx, conn, proto.InboundTypeCreate, proto.RoomData{Room: "general"})
	frame = readUntil(t, ctx, conn, func(f wsFrame) bool { return f.Type == proto.OutboundTypeError })
	if frame.Error == nil || frame.Error.Code != "duplicate_room" {
		t.Fatalf("unexpected error frame: %+v", frame.Error)
	}

	send(t, ctx, conn, proto.InboundTypeDelete, proto.MessageRef{ID: "123"})
	frame = readUntil(t, ctx, conn, func(f wsFrame) bool { return f.Type == proto.OutboundTypeError })
	if frame.Error == nil || frame.Error.Code != "message_not_found" || frame.Error.MessageID != "123" {
		t.Fatalf("unexpected error frame: %+v", frame.Error)
	}
}

func TestWebSocketResetBroadcastsRemoved(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env)

	send(t, ctx, conn, proto.InboundTypeCreate, proto.RoomData{Room: "general"})
	readUntil(t, ctx, conn, isEvent("room_created"))

	var ids []string
	for _, text := range []string{"one", "two"} {
		send(t, ctx, conn, proto.InboundTypeAsk, proto.AskData{Text: text})
		frame := readUntil(t, ctx, conn, isEvent("question_submitted"))
		var q proto.EventQuestion
		if err := json.Unmarshal(frame.Data, &q); err != nil {
			t.Fatalf("decode: %v", err)
		}
		ids = append(ids, q.Message.ID)
	}

	send(t, ctx, conn, proto.InboundTypeReset, proto.MessageRef{ID: ids[0]})
	frame := readUntil(t, ctx, conn, isEvent("question_reset"))
	var removed proto.EventRemoved
	if err := json.Unmarshal(frame.Data, &removed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if removed.Busy || len(removed.Removed) != 2 || removed.Removed[0] != ids[0] || removed.Removed[1] != ids[1] {
		t.Fatalf("unexpected reset event: %+v", removed)
	}
}

func TestServerUpgradesWebSocketAlongsideAPI(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env)
	send(t, ctx, conn, proto.InboundTypeCreate, proto.RoomData{Room: "over-ws"})
	readUntil(t, ctx, conn, isEvent("room_created"))

	// REST routes still go through the router on the same handler.
	resp := doRequest(t, env, stdhttp.MethodGet, "/api/rooms", nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var rooms RoomsResponse
	decode(t, resp, &rooms)
	if rooms.Active != "over-ws" || len(rooms.Rooms) != 1 {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}

	resp = doRequest(t, env, stdhttp.MethodGet, "/health", nil)
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.StatusCode)
	}
}
