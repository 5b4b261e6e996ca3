package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/kenobeee/mettta-space/internal/protocol"
	"github.com/kenobeee/mettta-space/internal/signaling"
)

const queryTimeout = 3 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Browsers and the headless client connect from anywhere.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewRouter wires the websocket endpoint and the read-only HTTP snapshots.
func NewRouter(hub *signaling.Hub, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", ServeWs(hub, logger)).Methods(http.MethodGet)
	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/meetings", meetingsHandler(hub, logger)).Methods(http.MethodGet)
	api.HandleFunc("/lobbies", lobbiesHandler(hub, logger)).Methods(http.MethodGet)
	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ServeWs upgrades the request and hands the connection to the hub.
func ServeWs(hub *signaling.Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("Failed to upgrade connection", "remote", r.RemoteAddr, "error", err)
			return
		}

		client := signaling.NewClient(hub, conn, logger)
		id, err := hub.Connect(r.Context(), client)
		if err != nil {
			logger.Warn("Hub refused connection", "remote", r.RemoteAddr, "error", err)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			conn.Close()
			return
		}
		logger.Debug("Client connected", "client", id, "remote", r.RemoteAddr)
		client.Start(id)
	}
}

func meetingsHandler(hub *signaling.Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		meetings, err := hub.Meetings(ctx)
		if err != nil {
			logger.Warn("Meetings snapshot failed", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if meetings == nil {
			meetings = []protocol.Meeting{}
		}
		writeJSON(w, protocol.Meetings{Meetings: meetings}, logger)
	}
}

func lobbiesHandler(hub *signaling.Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		lobbies, err := hub.Lobbies(ctx)
		if err != nil {
			logger.Warn("Lobby snapshot failed", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if lobbies == nil {
			lobbies = []protocol.LobbySummary{}
		}
		writeJSON(w, protocol.Lobbies{Lobbies: lobbies}, logger)
	}
}

func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
}
