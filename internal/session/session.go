// Package session связывает document.Engine с транспортом комнаты:
// рассылает локальные дельты, применяет чужие, ведет presence участников.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/transport"
	"github.com/iudanet/gophboard/pkg/api"
)

const (
	DefaultPresenceInterval = 3 * time.Second
	DefaultPeerTTL          = 15 * time.Second
	sendTimeout             = 5 * time.Second
)

// Options параметры сессий менеджера
type Options struct {
	// Now источник времени (для тестов)
	Now func() time.Time
	// OnStateChange вызывается при смене состояния канала и числа участников
	OnStateChange func(state transport.State, peers int)
	// UserID пользователь, от имени которого открыта сессия
	UserID           string
	PresenceInterval time.Duration
	PeerTTL          time.Duration
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.PresenceInterval <= 0 {
		o.PresenceInterval = DefaultPresenceInterval
	}
	if o.PeerTTL <= 0 {
		o.PeerTTL = DefaultPeerTTL
	}
	return o
}

// PeerInfo сведения об удаленном участнике комнаты
type PeerInfo struct {
	LastSeen   time.Time // последнее сообщение от участника
	LastActive time.Time // последняя правка участника (из presence)
	NodeID     string
	UserID     string
}

// Session - канал одного документа в комнате.
//
// Состояния: Disconnected -> Connecting -> Connected -> Disconnected.
// При временной потере канала (Connected -> Connecting) локальные update
// копятся в очереди и отправляются после переподключения.
type Session struct {
	lastLocal   time.Time
	engine      *document.Engine
	conn        transport.Conn
	logger      *slog.Logger
	peers       map[string]*PeerInfo
	unsubscribe func()
	onClose     []func()
	stop        chan struct{}
	done        chan struct{}
	ready       chan struct{} // закрывается, когда conn назначен
	synced      chan struct{}
	room        string
	nodeID      string
	pending     [][]byte
	opts        Options
	state       transport.State
	mu          sync.Mutex
	sendMu      sync.Mutex // сохраняет порядок исходящих update
	closeOnce   sync.Once
	syncOnce    sync.Once
	closed      bool
}

// Room возвращает имя комнаты.
func (s *Session) Room() string {
	return s.room
}

// NodeID возвращает идентификатор узла сессии.
func (s *Session) NodeID() string {
	return s.nodeID
}

// Engine возвращает документ сессии.
func (s *Session) Engine() *document.Engine {
	return s.engine
}

// State возвращает текущее состояние канала.
func (s *Session) State() transport.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected сообщает, установлен ли канал.
func (s *Session) Connected() bool {
	return s.State() == transport.StateConnected
}

// PeerCount возвращает число участников комнаты, включая себя.
func (s *Session) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 1 + len(s.peers)
}

// Peers возвращает удаленных участников, отсортированных по NodeID.
func (s *Session) Peers() []PeerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]PeerInfo, 0, len(s.peers))
	for _, p := range s.peers {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NodeID < result[j].NodeID
	})
	return result
}

// LastRemoteActivity возвращает время последней правки среди удаленных участников.
// Нулевое время - если никто не редактировал.
func (s *Session) LastRemoteActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest time.Time
	for _, p := range s.peers {
		if p.LastActive.After(latest) {
			latest = p.LastActive
		}
	}
	return latest
}

// OnClose регистрирует fn, которая вызывается один раз при закрытии сессии,
// в том числе при переключении менеджера на другую комнату. Движок в этот
// момент еще жив. Для уже закрытой сессии fn вызывается сразу.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// Synced закрывается после первого полученного sync_reply: документ
// догнал состояние комнаты. В пустой комнате p2p ответа не будет.
func (s *Session) Synced() <-chan struct{} {
	return s.synced
}

func (s *Session) markSynced() {
	s.syncOnce.Do(func() { close(s.synced) })
}

// Pending возвращает число update, ожидающих отправки.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// onEngineUpdate рассылает локальные изменения. Чужие update не пересылаются.
func (s *Session) onEngineUpdate(update []byte, origin document.Origin) {
	if origin == document.OriginRemote {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.lastLocal = s.opts.Now()
	s.mu.Unlock()

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.sendOrQueue(update)
}

// sendOrQueue вызывается под sendMu.
func (s *Session) sendOrQueue(update []byte) {
	s.mu.Lock()
	connected := s.state == transport.StateConnected && len(s.pending) == 0
	if !connected {
		s.pending = append(s.pending, update)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	err := s.send(&api.RelayMessage{Type: api.MessageUpdate, Payload: update})
	if err == nil {
		return
	}
	if !errors.Is(err, transport.ErrNotConnected) {
		s.logger.Warn("Failed to send update", "error", err)
	}
	s.mu.Lock()
	s.pending = append(s.pending, update)
	s.mu.Unlock()
}

// flush отправляет накопленные update в исходном порядке.
func (s *Session) flush() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 || s.state != transport.StateConnected || s.closed {
			s.mu.Unlock()
			return
		}
		update := s.pending[0]
		s.mu.Unlock()

		if err := s.send(&api.RelayMessage{Type: api.MessageUpdate, Payload: update}); err != nil {
			s.logger.Warn("Failed to flush queued update", "error", err)
			return
		}

		s.mu.Lock()
		s.pending = s.pending[1:]
		s.mu.Unlock()
	}
}

func (s *Session) send(msg *api.RelayMessage) error {
	msg.Room = s.room
	msg.From = s.nodeID
	msg.UserID = s.opts.UserID
	msg.SentAt = s.opts.Now().UnixMilli()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	return s.conn.Send(ctx, msg)
}

func (s *Session) sendFullState(msgType api.MessageType, to string) {
	state, err := s.engine.EncodeFullState()
	if err != nil {
		s.logger.Warn("Failed to encode state for sync", "error", err)
		return
	}
	if err := s.send(&api.RelayMessage{Type: msgType, To: to, Payload: state}); err != nil {
		s.logger.Debug("Failed to send sync message", "type", msgType, "error", err)
	}
}

func (s *Session) onState(state transport.State) {
	<-s.ready
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = state
	if state != transport.StateConnected {
		// presence потеряна вместе с каналом
		s.peers = make(map[string]*PeerInfo)
	}
	peers := 1 + len(s.peers)
	s.mu.Unlock()

	s.logger.Info("Session state changed", "state", state.String(), "peers", peers)
	if state == transport.StateConnected {
		s.sendFullState(api.MessageSyncRequest, "")
		s.flush()
	}
	s.notifyState(state, peers)
}

func (s *Session) notifyState(state transport.State, peers int) {
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(state, peers)
	}
}

func (s *Session) onMessage(msg *api.RelayMessage) {
	<-s.ready
	if msg.Room != s.room {
		s.logger.Debug("Dropping message for another room", "message_room", msg.Room)
		return
	}
	if msg.From == s.nodeID || msg.From == "" {
		return
	}
	if msg.From == api.RelayNodeID {
		if msg.Type == api.MessageSyncReply {
			s.apply(msg)
			s.markSynced()
		}
		return
	}

	now := s.opts.Now()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	peer, known := s.peers[msg.From]
	if !known && msg.Type != api.MessageLeave {
		peer = &PeerInfo{NodeID: msg.From}
		s.peers[msg.From] = peer
	}
	if peer != nil {
		peer.LastSeen = now
		if msg.UserID != "" {
			peer.UserID = msg.UserID
		}
	}
	switch msg.Type {
	case api.MessagePresence:
		if msg.ActiveAt > 0 {
			peer.LastActive = time.UnixMilli(msg.ActiveAt)
		}
	case api.MessageLeave:
		delete(s.peers, msg.From)
	}
	peers := 1 + len(s.peers)
	state := s.state
	s.mu.Unlock()

	switch msg.Type {
	case api.MessageSyncRequest:
		s.apply(msg)
		s.sendFullState(api.MessageSyncReply, msg.From)
	case api.MessageSyncReply:
		s.apply(msg)
		s.markSynced()
	case api.MessageUpdate:
		s.apply(msg)
	}

	if !known || msg.Type == api.MessageLeave {
		s.notifyState(state, peers)
	}
}

func (s *Session) apply(msg *api.RelayMessage) {
	if len(msg.Payload) == 0 {
		return
	}
	if err := s.engine.ApplyRemoteUpdate(msg.Payload); err != nil {
		if errors.Is(err, document.ErrDestroyed) {
			return
		}
		s.logger.Warn("Failed to apply remote update",
			"error", err,
			"type", msg.Type,
			"from", msg.From,
		)
	}
}

func (s *Session) presenceLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.opts.PresenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.heartbeat()
		}
	}
}

// heartbeat рассылает presence и удаляет участников, молчащих дольше PeerTTL.
func (s *Session) heartbeat() {
	now := s.opts.Now()

	s.mu.Lock()
	var activeAt int64
	if !s.lastLocal.IsZero() {
		activeAt = s.lastLocal.UnixMilli()
	}
	expired := 0
	for id, p := range s.peers {
		if now.Sub(p.LastSeen) > s.opts.PeerTTL {
			delete(s.peers, id)
			expired++
		}
	}
	state := s.state
	peers := 1 + len(s.peers)
	s.mu.Unlock()

	if state == transport.StateConnected {
		if err := s.send(&api.RelayMessage{Type: api.MessagePresence, ActiveAt: activeAt}); err != nil {
			s.logger.Debug("Failed to send presence", "error", err)
		}
	}
	if expired > 0 {
		s.logger.Info("Peers expired", "count", expired, "peers", peers)
		s.notifyState(state, peers)
	}
}

// close останавливает presence, отписывается от документа, прощается с комнатой,
// закрывает канал и уничтожает документ. Повторный вызов - no-op.
func (s *Session) close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		connected := s.state == transport.StateConnected
		hooks := s.onClose
		s.onClose = nil
		s.mu.Unlock()

		// владельцы документа освобождаются до уничтожения движка
		for _, fn := range hooks {
			fn()
		}

		close(s.stop)
		<-s.done

		if s.unsubscribe != nil {
			s.unsubscribe()
		}

		if connected {
			if err := s.send(&api.RelayMessage{Type: api.MessageLeave}); err != nil {
				s.logger.Debug("Failed to send leave", "error", err)
			}
		}

		if err := s.conn.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close transport: %w", err)
		}
		s.engine.Destroy()

		s.mu.Lock()
		s.state = transport.StateDisconnected
		s.peers = make(map[string]*PeerInfo)
		s.pending = nil
		s.mu.Unlock()

		s.logger.Info("Session closed")
	})
	return closeErr
}
