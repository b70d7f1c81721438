package transport

import (
	"context"
	"sync"

	"github.com/iudanet/gophboard/pkg/api"
)

// Mesh внутрипроцессная широковещательная сеть (аналог BroadcastChannel/WebRTC mesh).
// Сообщение участника доставляется всем остальным участникам той же комнаты.
// SetOnline имитирует потерю и восстановление канала для тестов.
type Mesh struct {
	rooms map[string]map[string]*meshConn // room -> nodeID -> conn
	mu    sync.RWMutex
}

// NewMesh создает пустую сеть.
func NewMesh() *Mesh {
	return &Mesh{rooms: make(map[string]map[string]*meshConn)}
}

// Kind реализует Transport.
func (m *Mesh) Kind() Kind {
	return KindPeerToPeer
}

// Join подключает узел к комнате. Канал сразу переходит в StateConnected.
func (m *Mesh) Join(_ context.Context, room, nodeID string, cb Callbacks) (Conn, error) {
	c := &meshConn{
		mesh:     m,
		room:     room,
		nodeID:   nodeID,
		dispatch: newDispatcher(cb),
		online:   true,
	}

	m.mu.Lock()
	members, ok := m.rooms[room]
	if !ok {
		members = make(map[string]*meshConn)
		m.rooms[room] = members
	}
	old := members[nodeID]
	members[nodeID] = c
	m.mu.Unlock()

	// повторный Join того же узла вытесняет старый канал
	if old != nil {
		_ = old.Close()
	}

	c.dispatch.push(event{state: StateConnecting})
	c.dispatch.push(event{state: StateConnected})
	return c, nil
}

// SetOnline включает или выключает канал узла в комнате.
func (m *Mesh) SetOnline(room, nodeID string, online bool) {
	m.mu.RLock()
	c := m.rooms[room][nodeID]
	m.mu.RUnlock()
	if c == nil {
		return
	}

	c.mu.Lock()
	changed := c.online != online && !c.closed
	c.online = online
	c.mu.Unlock()
	if !changed {
		return
	}

	if online {
		c.dispatch.push(event{state: StateConnected})
	} else {
		c.dispatch.push(event{state: StateConnecting})
	}
}

// Members возвращает число узлов в комнате.
func (m *Mesh) Members(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[room])
}

func (m *Mesh) broadcast(from *meshConn, msg *api.RelayMessage) {
	m.mu.RLock()
	recipients := make([]*meshConn, 0, len(m.rooms[from.room]))
	for nodeID, c := range m.rooms[from.room] {
		if nodeID == from.nodeID {
			continue
		}
		if msg.To != "" && msg.To != nodeID {
			continue
		}
		recipients = append(recipients, c)
	}
	m.mu.RUnlock()

	for _, c := range recipients {
		c.receive(msg)
	}
}

func (m *Mesh) leave(c *meshConn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := m.rooms[c.room]
	if members[c.nodeID] == c {
		delete(members, c.nodeID)
	}
	if len(members) == 0 {
		delete(m.rooms, c.room)
	}
}

type meshConn struct {
	mesh     *Mesh
	dispatch *dispatcher
	room     string
	nodeID   string
	mu       sync.Mutex
	online   bool
	closed   bool
}

func (c *meshConn) Send(_ context.Context, msg *api.RelayMessage) error {
	c.mu.Lock()
	closed, online := c.closed, c.online
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !online {
		return ErrNotConnected
	}

	// получатели не должны разделять сообщение с отправителем
	clone := *msg
	clone.Payload = append([]byte(nil), msg.Payload...)
	c.mesh.broadcast(c, &clone)
	return nil
}

func (c *meshConn) receive(msg *api.RelayMessage) {
	c.mu.Lock()
	ok := c.online && !c.closed
	c.mu.Unlock()
	if ok {
		c.dispatch.push(event{msg: msg})
	}
}

func (c *meshConn) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	return true
}

func (c *meshConn) Close() error {
	if !c.markClosed() {
		return nil
	}
	c.mesh.leave(c)
	c.dispatch.close()
	return nil
}
