package api

// MessageType тип сообщения протокола синхронизации комнаты
type MessageType string

const (
	// MessageSyncRequest несет полное состояние отправителя; получатели применяют его
	// и отвечают MessageSyncReply со своим состоянием.
	MessageSyncRequest MessageType = "sync_request"
	MessageSyncReply   MessageType = "sync_reply"
	// MessageUpdate дельта локального изменения
	MessageUpdate MessageType = "update"
	// MessagePresence heartbeat участника с временем его последней правки
	MessagePresence MessageType = "presence"
	// MessageLeave участник покинул комнату
	MessageLeave MessageType = "leave"
)

// RelayNodeID отправитель sync_reply, которым relay-сервер отдает
// сохраненное состояние комнаты. Relay не считается участником комнаты.
const RelayNodeID = "relay"

// RelayMessage сообщение, которым обмениваются участники комнаты
// (напрямую через mesh или через relay-сервер).
type RelayMessage struct {
	Type     MessageType `json:"type"`
	Room     string      `json:"room"`         // имя комнаты, project-<p>-doc-<d>
	From     string      `json:"from"`         // node id отправителя
	To       string      `json:"to,omitempty"` // адресат sync_reply, пусто - всем
	UserID   string      `json:"user_id,omitempty"`
	Payload  []byte      `json:"payload,omitempty"`   // закодированное состояние или дельта
	ActiveAt int64       `json:"active_at,omitempty"` // unix ms последней локальной правки
	SentAt   int64       `json:"sent_at"`             // unix ms
}
