package api

import "time"

// TokenRequest запрос на выпуск токена для подключения к relay
type TokenRequest struct {
	UserID string `json:"user_id"`
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT access token
	ExpiresIn   int64  `json:"expires_in"`   // время жизни токена в секундах
}

// HealthResponse ответ health-check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Rooms   int    `json:"rooms"`
	Clients int    `json:"clients"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// RoomInfo сведения о комнате relay-сервера
type RoomInfo struct {
	UpdatedAt time.Time `json:"updated_at,omitzero"` // время последнего снимка
	Room      string    `json:"room"`
	Size      int       `json:"size"`    // размер сохраненного снимка, байт
	Clients   int       `json:"clients"` // подключенные сейчас клиенты
	Persisted bool      `json:"persisted"`
}

// RoomStateResponse текущий текст документа комнаты
type RoomStateResponse struct {
	Room string `json:"room"`
	Text string `json:"text"`
	Size int    `json:"size"` // размер закодированного состояния, байт
}
