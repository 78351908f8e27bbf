package dashboardhandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"perfdash/internal/domain/dashboard"
	"perfdash/internal/transport/http/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type streamMessage struct {
	Type    string            `json:"type"`
	Phase   dashboard.Phase   `json:"phase,omitempty"`
	View    *dashboard.View   `json:"view,omitempty"`
	Action  *dashboard.Action `json:"action,omitempty"`
	URL     string            `json:"url,omitempty"`
	Message string            `json:"message,omitempty"`
}

type streamCommand struct {
	Type string `json:"type"`
}

// streamConn serializes writes; gorilla connections allow one writer.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *streamConn) send(msg streamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *streamConn) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// handleStream mounts a dashboard per connection and pushes every state
// transition. Clients send {"type":"add-kpi"} and friends to trigger
// actions, or {"type":"remount"} to start a fresh component.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("dashboard stream upgrade failed", "err", err, "requestId", requestID)
		return
	}
	defer conn.Close()

	if h.Metrics != nil {
		h.Metrics.StreamOpened()
		defer h.Metrics.StreamClosed()
	}
	slog.Info("dashboard stream connected", "requestId", requestID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &streamConn{conn: conn}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.keepAlive(ctx, out)
	}()

	mounts := make(chan struct{}, 1)
	mounts <- struct{}{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-mounts:
				h.streamMount(ctx, out)
			}
		}
	}()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("dashboard stream read error", "err", err)
			}
			break
		}
		var cmd streamCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			_ = out.send(streamMessage{Type: "error", Message: "invalid message"})
			continue
		}
		if cmd.Type == "remount" {
			select {
			case mounts <- struct{}{}:
			default:
			}
			continue
		}
		action, err := h.resolveAction(ctx, cmd.Type)
		if err != nil {
			_ = out.send(streamMessage{Type: "error", Message: err.Error()})
			continue
		}
		h.auditAction(r, cmd.Type, action)
		_ = out.send(streamMessage{Type: "action", Action: &action, URL: action.WebURL(h.OdooURL)})
	}

	cancel()
	wg.Wait()
	slog.Info("dashboard stream disconnected", "requestId", requestID)
}

func (h *Handler) streamMount(ctx context.Context, out *streamConn) {
	c := dashboard.NewComponent(h.Caller, nil)
	unsubscribe := c.Subscribe(func(state dashboard.ViewState) {
		view := dashboard.BuildView(state)
		if err := out.send(streamMessage{Type: "state", Phase: state.Phase(), View: &view}); err != nil {
			slog.Debug("dashboard stream write failed", "err", err)
		}
	})
	defer unsubscribe()

	state := c.Mount(ctx)
	if h.Metrics != nil {
		h.Metrics.RecordDashboard(state.Phase())
	}
}

func (h *Handler) keepAlive(ctx context.Context, out *streamConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := out.ping(); err != nil {
				return
			}
		}
	}
}
