package relay

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/iudanet/gophboard/pkg/api"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// клиенты - CLI и тесты, Origin не проверяем
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client одно WebSocket-соединение участника комнаты.
type client struct {
	hub       *Hub
	room      *room
	conn      *websocket.Conn
	limiter   *rate.Limiter
	logger    *slog.Logger
	send      chan *api.RelayMessage
	done      chan struct{}
	userID    string
	node      string
	mu        sync.Mutex // защищает node
	closeOnce sync.Once
}

func (c *client) nodeID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.node
}

func (c *client) setNodeID(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.node == "" {
		c.node = nodeID
	}
}

// enqueue ставит сообщение в очередь записи. Клиент, не успевающий
// читать, отключается: после переподключения он получит полное состояние.
func (c *client) enqueue(msg *api.RelayMessage) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- msg:
	default:
		c.hub.drop(dropSlowConsumer)
		c.logger.Warn("Disconnecting slow relay client")
		c.close()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// ServeRoom переводит запрос в WebSocket и обслуживает клиента комнаты
// до разрыва соединения. userID - аутентифицированный пользователь или "".
func (h *Hub) ServeRoom(w http.ResponseWriter, r *http.Request, roomName, userID string) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("Failed to upgrade relay connection", "room", roomName, "error", err)
		return
	}

	c := &client{
		hub:     h,
		conn:    ws,
		limiter: rate.NewLimiter(rate.Limit(h.opts.MessageRate), h.opts.MessageBurst),
		logger:  h.logger.With("room", roomName, "remote_addr", r.RemoteAddr),
		send:    make(chan *api.RelayMessage, h.opts.SendBuffer),
		done:    make(chan struct{}),
		userID:  userID,
	}

	ctx, cancel := context.WithTimeout(r.Context(), storageTimeout)
	_, err = h.join(ctx, roomName, c)
	cancel()
	if err != nil {
		c.logger.Error("Failed to join room", "error", err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "room unavailable"),
			time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}
	c.logger.Info("Relay client connected", "user_id", userID)

	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.close()
		c.hub.leave(c)
		c.logger.Info("Relay client disconnected", "node_id", c.nodeID())
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg api.RelayMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Relay read failed", "error", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.hub.drop(dropRateLimited)
			c.logger.Debug("Relay message rate limited", "type", msg.Type)
			continue
		}
		c.hub.handle(c, &msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("Relay write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
