package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/amalyulianto/sirkel-main-backend/live"
	"github.com/amalyulianto/sirkel-main-backend/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: ограничить Origin доменом фронтенда перед продакшеном.
		return true
	},
}

type WebSocketHandler struct {
	hub                *live.Hub
	leaderboardService services.LeaderboardService
}

func NewWebSocketHandler(hub *live.Hub, leaderboardService services.LeaderboardService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, leaderboardService: leaderboardService}
}

// ServeWs подписывает клиента на обновления рейтинга одного лидерборда.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	leaderboardID, err := readIDParam(r, "leaderboardID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.leaderboardService.GetDetails(r.Context(), leaderboardID); err != nil {
		if errors.Is(err, services.ErrLeaderboardNotFound) {
			notFoundResponse(w, r)
			return
		}
		serverErrorResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту HTTP-ошибкой.
		slog.Warn("websocket upgrade failed", slog.Int("leaderboard_id", leaderboardID), slog.Any("error", err))
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: live.LeaderboardRoom(leaderboardID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
