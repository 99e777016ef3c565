package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/studiorstv10-png/studio-rs-tv/internal/auth"
	"github.com/studiorstv10-png/studio-rs-tv/internal/campaign"
	"github.com/studiorstv10-png/studio-rs-tv/internal/command"
	"github.com/studiorstv10-png/studio-rs-tv/internal/liveness"
	"github.com/studiorstv10-png/studio-rs-tv/internal/pairing"
	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Handler streams fleet events to admin dashboards over WebSocket.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenService
	bus    plugin.EventBus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to fleet events.
func NewHandler(tokens *auth.TokenService, bus plugin.EventBus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/events", h.handleEventStream)
}

// handleEventStream upgrades the connection and streams fleet events.
func (h *Handler) handleEventStream(w http.ResponseWriter, r *http.Request) {
	// Validate JWT from query parameter (browser WS API doesn't support headers).
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Allow any origin since we validate via JWT token.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:    conn,
		subject: claims.Subject,
		send:    make(chan Message, 256),
		logger:  h.logger,
	}

	h.hub.Register(client)

	// Run read and write pumps. When either exits, clean up.
	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards bus events to all connected clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	forwardCode := func(msgType MessageType) plugin.EventHandler {
		return func(_ context.Context, event plugin.Event) {
			code, ok := event.Payload.(string)
			if !ok {
				return
			}
			h.hub.Broadcast(Message{
				Type:      msgType,
				Timestamp: event.Timestamp,
				Data:      TerminalData{TerminalCode: code},
			})
		}
	}

	h.bus.Subscribe(liveness.TopicTerminalOnline, forwardCode(MessageTerminalOnline))
	h.bus.Subscribe(liveness.TopicTerminalOffline, forwardCode(MessageTerminalOffline))

	h.bus.Subscribe(command.TopicCommandQueued, func(_ context.Context, event plugin.Event) {
		id, ok := event.Payload.(string)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageCommandQueued,
			Timestamp: event.Timestamp,
			Data:      CommandData{CommandID: id},
		})
	})

	h.bus.Subscribe(campaign.TopicCampaignSaved, func(_ context.Context, event plugin.Event) {
		id, ok := event.Payload.(string)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageCampaignSaved,
			Timestamp: event.Timestamp,
			Data:      CampaignData{CampaignID: id},
		})
	})

	forwardPairing := func(msgType MessageType) plugin.EventHandler {
		return func(_ context.Context, event plugin.Event) {
			code, ok := event.Payload.(string)
			if !ok {
				return
			}
			h.hub.Broadcast(Message{
				Type:      msgType,
				Timestamp: event.Timestamp,
				Data:      PairingData{Code: code},
			})
		}
	}
	h.bus.Subscribe(pairing.TopicPairingStarted, forwardPairing(MessagePairingStarted))
	h.bus.Subscribe(pairing.TopicPairingClaimed, forwardPairing(MessagePairingClaimed))

	h.logger.Info("subscribed to fleet events for WebSocket broadcasting")
}
