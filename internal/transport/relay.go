package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	"github.com/iudanet/gophboard/pkg/api"
)

const (
	relayWriteTimeout = 10 * time.Second
	relayDialTimeout  = 10 * time.Second
)

// Relay - вариант KindRelayed: WebSocket-клиент relay-сервера.
// Соединение устанавливается в фоне и восстанавливается с экспоненциальной
// задержкой (cenkalti/backoff) до вызова Close.
type Relay struct {
	logger  *slog.Logger
	dialer  *websocket.Dialer
	backoff func() backoff.BackOff
	baseURL string
	token   string
}

// RelayOption настраивает Relay.
type RelayOption func(*Relay)

// WithToken задает bearer-токен для подключения.
func WithToken(token string) RelayOption {
	return func(r *Relay) {
		r.token = token
	}
}

// WithBackOff задает фабрику политики переподключения.
func WithBackOff(newBackOff func() backoff.BackOff) RelayOption {
	return func(r *Relay) {
		r.backoff = newBackOff
	}
}

// NewRelay создает транспорт. baseURL - адрес сервера (http://, https://, ws:// или wss://).
func NewRelay(baseURL string, logger *slog.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: relayDialTimeout,
		},
		backoff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	// переподключаемся, пока комнату не закроют
	b.MaxElapsedTime = 0
	return b
}

// Kind реализует Transport.
func (r *Relay) Kind() Kind {
	return KindRelayed
}

// RoomURL возвращает адрес WebSocket комнаты.
func (r *Relay) RoomURL(room string) (string, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse relay url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported relay url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + url.PathEscape(room)
	return u.String(), nil
}

// Join запускает фоновое подключение к комнате и сразу возвращает канал.
func (r *Relay) Join(ctx context.Context, room, nodeID string, cb Callbacks) (Conn, error) {
	target, err := r.RoomURL(room)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &relayConn{
		relay:    r,
		url:      target,
		room:     room,
		nodeID:   nodeID,
		cb:       cb,
		cancel:   cancel,
		done:     make(chan struct{}),
		wsClosed: make(chan struct{}),
	}
	go c.run(runCtx)
	return c, nil
}

type relayConn struct {
	relay     *Relay
	ws        *websocket.Conn
	cb        Callbacks
	cancel    context.CancelFunc
	done      chan struct{}
	wsClosed  chan struct{}
	url       string
	room      string
	nodeID    string
	mu        sync.Mutex // защищает ws
	writeMu   sync.Mutex // gorilla/websocket допускает одного писателя
	closeOnce sync.Once
}

func (c *relayConn) setState(state State) {
	if c.cb.OnState != nil {
		c.cb.OnState(state)
	}
}

func (c *relayConn) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateDisconnected)

	logger := c.relay.logger.With("room", c.room, "url", c.url)
	b := c.relay.backoff()

	for {
		c.setState(StateConnecting)
		ws, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := b.NextBackOff()
			if wait == backoff.Stop {
				logger.Error("Giving up reconnecting to relay", "error", err)
				return
			}
			logger.Warn("Failed to connect to relay, retrying", "error", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		b.Reset()
		c.mu.Lock()
		if ctx.Err() != nil {
			// Close уже прочитал c.ws: закрываем соединение сами
			c.mu.Unlock()
			_ = ws.Close()
			return
		}
		c.ws = ws
		c.mu.Unlock()

		logger.Info("Connected to relay")
		c.setState(StateConnected)
		err = c.readLoop(ws)

		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
		_ = ws.Close()

		if ctx.Err() != nil {
			return
		}
		logger.Warn("Relay connection lost", "error", err)
	}
}

func (c *relayConn) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.relay.token != "" {
		header.Set("Authorization", "Bearer "+c.relay.token)
	}

	ws, resp, err := c.relay.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial relay (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}
	return ws, nil
}

func (c *relayConn) readLoop(ws *websocket.Conn) error {
	for {
		var msg api.RelayMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return err
		}
		if c.cb.OnMessage != nil {
			c.cb.OnMessage(&msg)
		}
	}
}

func (c *relayConn) Send(_ context.Context, msg *api.RelayMessage) error {
	select {
	case <-c.wsClosed:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = ws.SetWriteDeadline(time.Now().Add(relayWriteTimeout))
	if err := ws.WriteJSON(msg); err != nil {
		// readLoop увидит разрыв и запустит переподключение
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

func (c *relayConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.wsClosed)
		c.shutdown()
	})
	<-c.done
	return nil
}

func (c *relayConn) shutdown() {
	c.cancel()

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws != nil {
		c.writeMu.Lock()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = ws.Close()
	}
}
