// Package relay реализует relay-сервер комнат синхронизации: клиенты
// transport.Relay подключаются по WebSocket, сервер пересылает сообщения
// остальным участникам комнаты и держит слитое CRDT-состояние комнаты,
// которое периодически сохраняется в storage.RoomStorage.
//
// Relay ничего не разрешает: он только сливает состояния так же, как
// любой участник, и отвечает новичкам сохраненным состоянием.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/server/storage"
	"github.com/iudanet/gophboard/pkg/api"
)

// ErrHubClosed возвращается при подключении к закрытому хабу.
var ErrHubClosed = errors.New("relay hub closed")

// ErrRoomActive возвращается при удалении комнаты с подключенными клиентами.
var ErrRoomActive = errors.New("room has connected clients")

const (
	DefaultSnapshotInterval = 30 * time.Second
	DefaultMessageRate      = 50 // сообщений в секунду на соединение
	DefaultMessageBurst     = 100
	DefaultMaxMessageSize   = 4 << 20
	DefaultSendBuffer       = 256

	storageTimeout = 5 * time.Second
)

// Options настройки хаба. Нулевые значения заменяются значениями по умолчанию.
type Options struct {
	Now              func() time.Time
	SnapshotInterval time.Duration
	MessageRate      float64
	MessageBurst     int
	MaxMessageSize   int64
	SendBuffer       int
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.SnapshotInterval <= 0 {
		o.SnapshotInterval = DefaultSnapshotInterval
	}
	if o.MessageRate <= 0 {
		o.MessageRate = DefaultMessageRate
	}
	if o.MessageBurst <= 0 {
		o.MessageBurst = DefaultMessageBurst
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = DefaultSendBuffer
	}
	return o
}

type room struct {
	engine  *document.Engine
	clients map[*client]struct{}
	name    string
	dirty   atomic.Bool
}

// Hub хранит загруженные комнаты и их клиентов.
type Hub struct {
	store   storage.RoomStorage
	logger  *slog.Logger
	metrics *Metrics
	rooms   map[string]*room
	clients sync.WaitGroup
	opts    Options
	mu      sync.Mutex // защищает rooms, room.clients и closed
	closed  bool
}

// NewHub создает хаб. metrics может быть nil.
func NewHub(store storage.RoomStorage, metrics *Metrics, logger *slog.Logger, opts Options) *Hub {
	return &Hub{
		store:   store,
		logger:  logger,
		metrics: metrics,
		rooms:   make(map[string]*room),
		opts:    opts.withDefaults(),
	}
}

// Rooms возвращает число загруженных комнат.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Clients возвращает число подключенных клиентов.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, r := range h.rooms {
		n += len(r.clients)
	}
	return n
}

// RoomState возвращает текущее слитое состояние комнаты: из памяти, если
// комната загружена, иначе из хранилища.
func (h *Hub) RoomState(ctx context.Context, name string) ([]byte, error) {
	h.mu.Lock()
	r, ok := h.rooms[name]
	h.mu.Unlock()
	if ok {
		return r.engine.EncodeFullState()
	}

	snapshot, err := h.store.GetRoom(ctx, name)
	if err != nil {
		return nil, err
	}
	return snapshot.State, nil
}

// ListRooms объединяет сохраненные комнаты с загруженными в память.
func (h *Hub) ListRooms(ctx context.Context) ([]api.RoomInfo, error) {
	saved, err := h.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved rooms: %w", err)
	}

	byName := make(map[string]*api.RoomInfo, len(saved))
	for _, s := range saved {
		byName[s.Room] = &api.RoomInfo{
			Room:      s.Room,
			Size:      s.Size,
			UpdatedAt: s.UpdatedAt,
			Persisted: true,
		}
	}

	h.mu.Lock()
	for name, r := range h.rooms {
		info, ok := byName[name]
		if !ok {
			info = &api.RoomInfo{Room: name}
			byName[name] = info
		}
		info.Clients = len(r.clients)
	}
	h.mu.Unlock()

	rooms := make([]api.RoomInfo, 0, len(byName))
	for _, info := range byName {
		rooms = append(rooms, *info)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].Room < rooms[j].Room
	})
	return rooms, nil
}

// DeleteRoom удаляет сохраненный снимок комнаты без клиентов.
func (h *Hub) DeleteRoom(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[name]; ok {
		return ErrRoomActive
	}
	if err := h.store.DeleteRoom(ctx, name); err != nil {
		return err
	}
	h.logger.Info("Room deleted", "room", name)
	return nil
}

// Run периодически сохраняет измененные комнаты до отмены ctx.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.opts.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := h.Snapshot(ctx); err != nil {
				h.logger.Warn("Periodic snapshot failed", "error", err)
			}
		}
	}
}

// Snapshot сохраняет все загруженные комнаты с несохраненными изменениями.
func (h *Hub) Snapshot(ctx context.Context) error {
	h.mu.Lock()
	rooms := make([]*room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.Unlock()

	var errs []error
	for _, r := range rooms {
		if err := h.persist(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// persist пишет снимок комнаты, если она изменилась с прошлой записи.
func (h *Hub) persist(ctx context.Context, r *room) error {
	if !r.dirty.CompareAndSwap(true, false) {
		return nil
	}

	state, err := r.engine.EncodeFullState()
	if err != nil {
		if errors.Is(err, document.ErrDestroyed) {
			// комнату уже выгрузили и сохранили
			return nil
		}
		r.dirty.Store(true)
		return fmt.Errorf("failed to encode room %s: %w", r.name, err)
	}

	if err := h.store.SaveRoom(ctx, r.name, state); err != nil {
		r.dirty.Store(true)
		h.observeSnapshot("error")
		return fmt.Errorf("failed to save room %s: %w", r.name, err)
	}
	h.observeSnapshot("ok")
	h.logger.Debug("Room snapshot saved", "room", r.name, "size", len(state))
	return nil
}

// Close отключает всех клиентов, дожидается их выхода и сохраняет комнаты.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var clients []*client
	for _, r := range h.rooms {
		for c := range r.clients {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		h.clients.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("failed to wait relay clients: %w", ctx.Err())
	}

	// комнаты выгружаются вместе с последним клиентом; остаются только
	// загруженные, но так и не занятые
	return h.Snapshot(ctx)
}

// join регистрирует клиента в комнате, загружая ее при необходимости.
func (h *Hub) join(ctx context.Context, name string, c *client) (*room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	r, ok := h.rooms[name]
	if !ok {
		loaded, err := h.load(ctx, name)
		if err != nil {
			return nil, err
		}
		r = loaded
		h.rooms[name] = r
		h.gaugeRooms()
	}

	r.clients[c] = struct{}{}
	c.room = r
	h.clients.Add(1)
	if h.metrics != nil {
		h.metrics.Connections.Inc()
	}
	return r, nil
}

func (h *Hub) load(ctx context.Context, name string) (*room, error) {
	r := &room{
		name:    name,
		engine:  document.NewEngine(h.logger.With("room", name), document.WithNodeID(api.RelayNodeID)),
		clients: make(map[*client]struct{}),
	}

	snapshot, err := h.store.GetRoom(ctx, name)
	switch {
	case errors.Is(err, storage.ErrRoomNotFound):
		h.logger.Debug("Starting empty room", "room", name)
		return r, nil
	case err != nil:
		r.engine.Destroy()
		return nil, fmt.Errorf("failed to load room %s: %w", name, err)
	}

	if err := r.engine.ApplyRemoteUpdate(snapshot.State); err != nil {
		// битый снимок не должен блокировать комнату: клиенты принесут свои состояния
		h.logger.Warn("Ignoring corrupted room snapshot", "room", name, "error", err)
	}
	h.logger.Info("Room loaded", "room", name, "size", len(snapshot.State))
	return r, nil
}

// leave снимает клиента с комнаты, оповещает остальных от его имени и
// выгружает опустевшую комнату.
func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := c.room
	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	h.clients.Done()
	if h.metrics != nil {
		h.metrics.Connections.Dec()
	}

	if nodeID := c.nodeID(); nodeID != "" {
		h.broadcastLocked(r, c, &api.RelayMessage{
			Type:   api.MessageLeave,
			Room:   r.name,
			From:   nodeID,
			UserID: c.userID,
			SentAt: h.opts.Now().UnixMilli(),
		})
	}

	if len(r.clients) > 0 {
		return
	}

	// снимок пишется под блокировкой хаба: повторный join той же комнаты
	// должен прочитать уже сохраненное состояние
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := h.persist(ctx, r); err != nil {
		h.logger.Error("Failed to save room on unload", "room", r.name, "error", err)
	}
	r.engine.Destroy()
	delete(h.rooms, r.name)
	h.gaugeRooms()
	h.logger.Info("Room unloaded", "room", r.name)
}

// handle обрабатывает сообщение клиента.
func (h *Hub) handle(c *client, msg *api.RelayMessage) {
	r := c.room
	if msg.From == "" || msg.From == api.RelayNodeID {
		h.drop(dropBadSender)
		return
	}
	msg.Room = r.name
	if c.userID != "" {
		msg.UserID = c.userID
	}
	c.setNodeID(msg.From)

	switch msg.Type {
	case api.MessageSyncRequest, api.MessageSyncReply, api.MessageUpdate:
		if len(msg.Payload) > 0 {
			if err := r.engine.ApplyRemoteUpdate(msg.Payload); err != nil {
				h.drop(dropDecode)
				c.logger.Warn("Dropping undecodable payload", "type", msg.Type, "error", err)
				return
			}
			r.dirty.Store(true)
		}
	case api.MessagePresence, api.MessageLeave:
	default:
		h.drop(dropUnknownType)
		c.logger.Debug("Dropping message of unknown type", "type", msg.Type)
		return
	}
	if h.metrics != nil {
		h.metrics.MessagesTotal.WithLabelValues(string(msg.Type)).Inc()
	}

	if msg.Type == api.MessageSyncRequest {
		h.replyState(c, r, msg.From)
	}

	h.mu.Lock()
	h.broadcastLocked(r, c, msg)
	h.mu.Unlock()
}

// replyState отвечает новому участнику слитым состоянием комнаты.
func (h *Hub) replyState(c *client, r *room, to string) {
	state, err := r.engine.EncodeFullState()
	if err != nil {
		c.logger.Warn("Failed to encode room state", "error", err)
		return
	}
	c.enqueue(&api.RelayMessage{
		Type:    api.MessageSyncReply,
		Room:    r.name,
		From:    api.RelayNodeID,
		To:      to,
		Payload: state,
		SentAt:  h.opts.Now().UnixMilli(),
	})
}

// broadcastLocked рассылает сообщение всем клиентам комнаты, кроме
// отправителя; сообщение с To доставляется только адресату.
func (h *Hub) broadcastLocked(r *room, sender *client, msg *api.RelayMessage) {
	for c := range r.clients {
		if c == sender {
			continue
		}
		if msg.To != "" && c.nodeID() != msg.To {
			continue
		}
		c.enqueue(msg)
	}
}

func (h *Hub) drop(reason string) {
	if h.metrics != nil {
		h.metrics.DroppedTotal.WithLabelValues(reason).Inc()
	}
}

func (h *Hub) observeSnapshot(result string) {
	if h.metrics != nil {
		h.metrics.SnapshotsTotal.WithLabelValues(result).Inc()
	}
}

func (h *Hub) gaugeRooms() {
	if h.metrics != nil {
		h.metrics.Rooms.Set(float64(len(h.rooms)))
	}
}
