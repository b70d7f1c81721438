// Package transport доставляет сообщения протокола синхронизации между
// участниками комнаты. Вариант KindPeerToPeer - внутрипроцессный mesh,
// KindRelayed - WebSocket-клиент relay-сервера.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/gophboard/pkg/api"
)

// ErrNotConnected возвращается Send, пока канал не установлен.
// Ошибка восстановимая: сессия ставит update в очередь до переподключения.
var ErrNotConnected = errors.New("transport not connected")

// ErrClosed возвращается операциями над закрытым соединением.
var ErrClosed = errors.New("transport connection closed")

// Kind вариант транспорта
type Kind string

const (
	KindPeerToPeer Kind = "p2p"
	KindRelayed    Kind = "relay"
)

// ParseKind разбирает вариант транспорта из конфигурации.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPeerToPeer, KindRelayed:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown transport kind %q", s)
	}
}

// State состояние канала
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Callbacks вызываются последовательно из одной горутины соединения.
// Вызывать Conn.Close из callback нельзя.
type Callbacks struct {
	OnMessage func(msg *api.RelayMessage)
	OnState   func(state State)
}

// Conn канал одного участника в комнате.
type Conn interface {
	// Send отправляет сообщение остальным участникам комнаты.
	Send(ctx context.Context, msg *api.RelayMessage) error
	// Close закрывает канал. После возврата callbacks больше не вызываются.
	Close() error
}

// Transport открывает каналы в комнаты.
type Transport interface {
	Kind() Kind
	Join(ctx context.Context, room, nodeID string, cb Callbacks) (Conn, error)
}
