// Package ws is the websocket transport: it upgrades HTTP connections,
// decodes the JSON event envelope and forwards each inbound event to the
// coordinator. All game semantics live behind the Coordinator interface.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bancbannas/bulls-and-cows-server/internal/model"
)

// Coordinator is the serialized event path the transport feeds into
type Coordinator interface {
	Register(ctx context.Context, conn model.Conn, requestedName, deviceToken string)
	Challenge(ctx context.Context, conn model.Conn, target model.PlayerName) error
	Accept(ctx context.Context, conn model.Conn, challenger model.PlayerName) error
	LockSecret(ctx context.Context, conn model.Conn, secret string) error
	SubmitGuess(ctx context.Context, conn model.Conn, guess string) error
	Chat(ctx context.Context, conn model.Conn, text string) error
	Disconnect(conn model.Conn)
}

// Config holds websocket transport settings
type Config struct {
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// DefaultConfig returns the default websocket transport settings
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     64,
	}
}

// envelope is the inbound wire format
type envelope struct {
	Type model.EventType `json:"type"`
	Data json.RawMessage `json:"data"`
}

type registerPayload struct {
	Name        string `json:"name"`
	DeviceToken string `json:"deviceToken"`
}

type namePayload struct {
	Name model.PlayerName `json:"name"`
}

type secretPayload struct {
	Secret string `json:"secret"`
}

type guessPayload struct {
	Guess string `json:"guess"`
}

type chatPayload struct {
	Message string `json:"message"`
}

// Handler upgrades websocket connections and runs their read loops
type Handler struct {
	coordinator Coordinator
	upgrader    websocket.Upgrader
	cfg         Config
	logger      *slog.Logger
}

// NewHandler creates a websocket handler
func NewHandler(coordinator Coordinator, cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		cfg:    cfg,
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP upgrades the request and services the connection until its
// read loop ends
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := newConn(uuid.NewString(), socket, h.cfg, h.logger)
	go conn.writePump()

	h.logger.Info("connection opened", slog.String("conn_id", conn.ID()))
	h.readLoop(r.Context(), conn, socket)

	h.coordinator.Disconnect(conn)
	conn.Close()
	h.logger.Info("connection closed", slog.String("conn_id", conn.ID()))
}

func (h *Handler) readLoop(ctx context.Context, conn *Conn, socket *websocket.Conn) {
	socket.SetReadLimit(h.cfg.MaxMessageSize)
	_ = socket.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("read loop ended",
					slog.String("conn_id", conn.ID()),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.logger.Debug("dropping undecodable message", slog.String("conn_id", conn.ID()))
			continue
		}

		if err := h.dispatch(ctx, conn, env); err != nil {
			// Invalid events are dropped without affecting state
			h.logger.Debug("event rejected",
				slog.String("conn_id", conn.ID()),
				slog.String("type", string(env.Type)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// dispatch routes one decoded envelope to the coordinator
func (h *Handler) dispatch(ctx context.Context, conn *Conn, env envelope) error {
	switch env.Type {
	case model.EventRegisterName:
		var p registerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return model.ErrMalformedPayload
		}
		h.coordinator.Register(ctx, conn, p.Name, p.DeviceToken)
		return nil
	case model.EventChallengePlayer:
		var p namePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return model.ErrMalformedPayload
		}
		return h.coordinator.Challenge(ctx, conn, p.Name)
	case model.EventAcceptChallenge:
		var p namePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return model.ErrMalformedPayload
		}
		return h.coordinator.Accept(ctx, conn, p.Name)
	case model.EventLockSecret:
		var p secretPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return model.ErrMalformedPayload
		}
		return h.coordinator.LockSecret(ctx, conn, p.Secret)
	case model.EventSubmitGuess:
		var p guessPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return model.ErrMalformedPayload
		}
		return h.coordinator.SubmitGuess(ctx, conn, p.Guess)
	case model.EventChatMessage:
		var p chatPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return model.ErrMalformedPayload
		}
		return h.coordinator.Chat(ctx, conn, p.Message)
	default:
		return errors.New("unknown event type")
	}
}
