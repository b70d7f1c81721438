// Package validation проверяет идентификаторы, приходящие снаружи
// (URL relay-сервера, флаги CLI, запросы на токен).
package validation

import (
	"fmt"
	"regexp"
)

// IDPattern определяет допустимый формат идентификаторов пользователей,
// проектов и документов: латинские буквы, цифры, '-' и '_'
var IDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// RoomPattern формат имени комнаты: project-<projectID>-doc-<documentID>
var RoomPattern = regexp.MustCompile(`^project-[a-zA-Z0-9_-]+-doc-[a-zA-Z0-9_-]+$`)

const (
	// MaxIDLen максимальная длина идентификатора
	MaxIDLen = 64
	// MaxRoomLen максимальная длина имени комнаты
	MaxRoomLen = 160
)

// ValidateID проверяет идентификатор пользователя, проекта или документа.
// kind используется только в тексте ошибки.
func ValidateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}

	if len(id) > MaxIDLen {
		return fmt.Errorf("%s must not exceed %d characters", kind, MaxIDLen)
	}

	if !IDPattern.MatchString(id) {
		return fmt.Errorf("%s can only contain letters (a-z, A-Z), numbers (0-9), '-' and '_'", kind)
	}

	return nil
}

// ValidateRoom проверяет имя комнаты синхронизации
func ValidateRoom(room string) error {
	if room == "" {
		return fmt.Errorf("room cannot be empty")
	}

	if len(room) > MaxRoomLen {
		return fmt.Errorf("room must not exceed %d characters", MaxRoomLen)
	}

	if !RoomPattern.MatchString(room) {
		return fmt.Errorf("room must match project-<id>-doc-<id>")
	}

	return nil
}
