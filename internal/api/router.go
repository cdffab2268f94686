package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bancbannas/bulls-and-cows-server/internal/middleware"
	"github.com/bancbannas/bulls-and-cows-server/internal/model"
	"github.com/bancbannas/bulls-and-cows-server/internal/transport/ws"
)

// LobbyReader is the read-only projection the HTTP surface exposes.
// Mutations only happen over the websocket event path.
type LobbyReader interface {
	Snapshot() []model.LobbyEntry
	ChatHistory(ctx context.Context) ([]model.ChatMessage, error)
}

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger    *slog.Logger
	WSHandler *ws.Handler
	Lobby     LobbyReader
}

// NewRouter creates the HTTP router: the websocket endpoint plus a small
// read-only REST surface
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler)

	// The websocket endpoint skips the logging middleware: its response
	// writer must stay hijackable for the upgrade
	r.Handle("/ws", cfg.WSHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/lobby", lobbyHandler(cfg.Lobby)).Methods(http.MethodGet)
	api.HandleFunc("/chat", chatHandler(cfg.Lobby)).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func lobbyHandler(lobby LobbyReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.UpdateLobbyPayload{Players: lobby.Snapshot()})
	}
}

func chatHandler(lobby LobbyReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, err := lobby.ChatHistory(r.Context())
		if err != nil {
			http.Error(w, `{"error":"chat history unavailable"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, model.ChatHistoryPayload{Messages: messages})
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
