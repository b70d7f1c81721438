package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/server/relay"
	"github.com/iudanet/gophboard/internal/server/storage"
	"github.com/iudanet/gophboard/internal/validation"
	"github.com/iudanet/gophboard/pkg/api"
)

// RoomHub операции relay-хаба, доступные по HTTP
type RoomHub interface {
	ServeRoom(w http.ResponseWriter, r *http.Request, room, userID string)
	ListRooms(ctx context.Context) ([]api.RoomInfo, error)
	RoomState(ctx context.Context, room string) ([]byte, error)
	DeleteRoom(ctx context.Context, room string) error
}

// RoomsHandler обрабатывает WebSocket комнат и административные запросы
type RoomsHandler struct {
	logger *slog.Logger
	hub    RoomHub
}

// NewRoomsHandler создает handler комнат
func NewRoomsHandler(logger *slog.Logger, hub RoomHub) *RoomsHandler {
	return &RoomsHandler{
		logger: logger,
		hub:    hub,
	}
}

// roomFromRequest извлекает и проверяет имя комнаты из пути
func (h *RoomsHandler) roomFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	room := mux.Vars(r)["room"]
	if err := validation.ValidateRoom(room); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return room, true
}

// Connect обрабатывает GET /ws/{room}
func (h *RoomsHandler) Connect(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFromRequest(w, r)
	if !ok {
		return
	}
	userID, _ := GetUserID(r.Context())
	h.hub.ServeRoom(w, r, room, userID)
}

// List обрабатывает GET /api/v1/rooms
func (h *RoomsHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.hub.ListRooms(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list rooms", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}
	sendJSON(h.logger, w, rooms, http.StatusOK)
}

// Get обрабатывает GET /api/v1/rooms/{room}
// Возвращает текущий текст документа комнаты
func (h *RoomsHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFromRequest(w, r)
	if !ok {
		return
	}

	state, err := h.hub.RoomState(r.Context(), room)
	if errors.Is(err, storage.ErrRoomNotFound) {
		sendError(h.logger, w, "room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get room state", slog.String("room", room), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	text, err := document.PlainTextFromState(state)
	if err != nil {
		h.logger.WarnContext(r.Context(), "room state is not decodable", slog.String("room", room), slog.Any("error", err))
	}

	sendJSON(h.logger, w, api.RoomStateResponse{
		Room: room,
		Text: text,
		Size: len(state),
	}, http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/rooms/{room}
func (h *RoomsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	room, ok := h.roomFromRequest(w, r)
	if !ok {
		return
	}

	err := h.hub.DeleteRoom(r.Context(), room)
	switch {
	case errors.Is(err, storage.ErrRoomNotFound):
		sendError(h.logger, w, "room not found", http.StatusNotFound)
	case errors.Is(err, relay.ErrRoomActive):
		sendError(h.logger, w, err.Error(), http.StatusConflict)
	case err != nil:
		h.logger.ErrorContext(r.Context(), "failed to delete room", slog.String("room", room), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
