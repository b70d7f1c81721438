package models

import "time"

// RoomSnapshot сохраненное relay-сервером объединенное состояние комнаты
type RoomSnapshot struct {
	UpdatedAt time.Time
	Room      string
	State     []byte
}

// RoomInfo краткие сведения о сохраненной комнате
type RoomInfo struct {
	UpdatedAt time.Time `json:"updated_at"`
	Room      string    `json:"room"`
	Size      int       `json:"size"`
}
