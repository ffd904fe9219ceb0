package handler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/board"
	"whiteboard-backend/internal/permission"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/store"
)

// wsMessage 서버→클라이언트 메시지
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// BoardWSHandler 화이트보드 실시간 스트림
//
// One socket per client per whiteboard. The socket is read-only for
// state: mutations go through the HTTP API and come back down the
// stream like everyone else's. Four live feeds are multiplexed onto the
// socket — the container record, the three entity collections
// (compacted), and presence.
type BoardWSHandler struct {
	store        store.Store
	boards       *board.Whiteboards
	sync         *board.Synchronizer
	presence     *presence.Tracker
	perms        *permission.Service
	writeTimeout time.Duration
}

func NewBoardWSHandler(st store.Store, boards *board.Whiteboards, syncer *board.Synchronizer, tracker *presence.Tracker, perms *permission.Service, writeTimeout time.Duration) *BoardWSHandler {
	return &BoardWSHandler{
		store:        st,
		boards:       boards,
		sync:         syncer,
		presence:     tracker,
		perms:        perms,
		writeTimeout: writeTimeout,
	}
}

// Upgrade WebSocket 업그레이드 요청 검증
func (h *BoardWSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle WebSocket 연결 핸들러
func (h *BoardWSHandler) Handle(cfg websocket.Config) fiber.Handler {
	return websocket.New(h.serve, cfg)
}

func (h *BoardWSHandler) serve(conn *websocket.Conn) {
	whiteboardID := conn.Params("id")
	actor, _ := conn.Locals(auth.ContextKey).(auth.Context)

	ctx := context.Background()
	scope, err := h.perms.GetEffectiveScope(ctx, whiteboardID, permission.ResourceWhiteboard, actor)
	if err != nil || !scope.Has(permission.CapabilityRead) {
		h.closeWith(conn, websocket.ClosePolicyViolation, "read scope required")
		return
	}
	if _, err := h.boards.Get(whiteboardID); err != nil {
		h.closeWith(conn, websocket.ClosePolicyViolation, "whiteboard not found")
		return
	}

	clientID := uuid.NewString()

	// 쓰기 직렬화 (네 개의 구독 콜백이 동시에 도착할 수 있음)
	var writeMu sync.Mutex
	send := func(msgType string, data any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteJSON(wsMessage{Type: msgType, Data: data}); err != nil {
			log.Printf("[BoardWS] write failed (client %s): %v", clientID, err)
		}
	}

	storeConn := h.store.Connect()
	defer storeConn.Close()

	if err := h.presence.Join(ctx, whiteboardID, clientID, actor, storeConn); err != nil {
		log.Printf("[BoardWS] presence join failed (client %s): %v", clientID, err)
		h.closeWith(conn, websocket.CloseInternalServerErr, "presence unavailable")
		return
	}

	send("connected", fiber.Map{"clientId": clientID})

	var unsubs []store.UnsubscribeFunc
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	unsub, err := h.boards.Observe(whiteboardID, func(ev store.RecordEvent) {
		if ev.Err != nil {
			send("error", fiber.Map{"stream": "whiteboard"})
			return
		}
		send("whiteboard", ev.Value)
	})
	if err != nil {
		h.closeWith(conn, websocket.CloseInternalServerErr, "subscription failed")
		return
	}
	unsubs = append(unsubs, unsub)

	for _, stream := range []struct {
		name    string
		observe func(string, func(board.Snapshot)) (store.UnsubscribeFunc, error)
	}{
		{"markings", h.sync.ObserveMarkings},
		{"texts", h.sync.ObserveTexts},
		{"shapes", h.sync.ObserveShapes},
	} {
		name := stream.name
		unsub, err := stream.observe(whiteboardID, func(snap board.Snapshot) {
			if snap.Err != nil {
				// 한 종류의 스트림 오류가 나머지를 중단시키지 않음
				send("error", fiber.Map{"stream": name})
				return
			}
			send(name, snap.Entities)
		})
		if err != nil {
			h.closeWith(conn, websocket.CloseInternalServerErr, "subscription failed")
			return
		}
		unsubs = append(unsubs, unsub)
	}

	unsub, err = h.presence.Observe(whiteboardID, func(ev store.CollectionEvent) {
		if ev.Err != nil {
			send("error", fiber.Map{"stream": "presence"})
			return
		}
		entries := make(map[string]any, len(ev.Entries))
		for _, e := range ev.Entries {
			entries[e.Key] = e.Value
		}
		send("presence", entries)
	})
	if err != nil {
		h.closeWith(conn, websocket.CloseInternalServerErr, "subscription failed")
		return
	}
	unsubs = append(unsubs, unsub)

	// 읽기 루프: 연결 종료 감지와 ping 응답만 담당
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if string(msg) == `{"type":"ping"}` {
			send("pong", nil)
		}
	}

	// 정상 종료: 명시적으로 퇴장 기록. 비정상 종료는 storeConn.Close()의
	// disconnect write가 처리.
	if err := h.presence.Leave(ctx, whiteboardID, clientID); err != nil {
		log.Printf("[BoardWS] presence leave failed (client %s): %v", clientID, err)
	}
}

func (h *BoardWSHandler) closeWith(conn *websocket.Conn, code int, reason string) {
	conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	conn.Close()
}
