package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
)

// Client actions accepted over the socket.
const (
	ActionJoinConversation  = "join_conversation"
	ActionLeaveConversation = "leave_conversation"
	ActionSendMessage       = "send_message"
	ActionMarkAsRead        = "mark_as_read"
)

// ClientMessage represents an inbound message from a WebSocket client.
type ClientMessage struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id,omitempty"`
	Body           string `json:"body,omitempty"`
}

// ChatRouter handles conversation actions arriving over the socket. The
// messaging service implements it; persisting and broadcasting go through
// the same code path as the HTTP endpoints.
type ChatRouter interface {
	// CanAccessConversation reports whether the user participates in the
	// conversation (staff roles always may).
	CanAccessConversation(ctx context.Context, userID, conversationID uuid.UUID, role string) (bool, error)
	SendMessage(ctx context.Context, userID, conversationID uuid.UUID, body string) error
	MarkAsRead(ctx context.Context, userID, conversationID uuid.UUID) error
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced at the HTTP layer.
	},
}

// Handler upgrades HTTP connections to WebSocket and routes client messages.
type Handler struct {
	hub    *Hub
	router ChatRouter
}

// NewHandler creates a handler bound to the given Hub and chat router.
func NewHandler(hub *Hub, router ChatRouter) *Handler {
	return &Handler{hub: hub, router: router}
}

// RegisterRoutes registers the WebSocket endpoint on the provided Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", h.HandleConnect)
}

// HandleConnect upgrades an HTTP connection to WebSocket, registers the
// client with the hub subscribed to the user's own topic, and starts the
// read/write pumps.
func (h *Handler) HandleConnect(c echo.Context) error {
	reqCtx := c.Request().Context()
	userID := auth.UserUUIDFromContext(reqCtx)
	if userID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Role:   auth.RoleFromContext(reqCtx),
		Topics: []string{UserTopic(userID)},
		Send:   make(chan []byte, 256),
		conn:   &gorillaConnAdapter{conn},
	}

	h.hub.Register(client)

	// The request context is cancelled the moment this handler returns, so
	// the pumps run on a connection-scoped context that carries the caller's
	// identity and lives until the socket closes.
	ctx, cancel := context.WithCancel(context.Background())
	ctx = context.WithValue(ctx, auth.UserIDKey, userID.String())
	ctx = context.WithValue(ctx, auth.UserRoleKey, client.Role)

	go h.writePump(client)
	go h.readPump(ctx, cancel, client)

	return nil
}

// ProcessMessage dispatches one inbound client message. Exposed for tests;
// the read pump calls it for every frame.
func (h *Handler) ProcessMessage(ctx context.Context, client *Client, msg ClientMessage) {
	convID, err := uuid.Parse(msg.ConversationID)
	if err != nil {
		return // Ignore messages without a valid conversation.
	}

	switch msg.Action {
	case ActionJoinConversation:
		ok, err := h.router.CanAccessConversation(ctx, client.UserID, convID, client.Role)
		if err != nil || !ok {
			return
		}
		h.hub.Subscribe(client, []string{ConversationTopic(convID)})
	case ActionLeaveConversation:
		h.hub.Unsubscribe(client, []string{ConversationTopic(convID)})
	case ActionSendMessage:
		if msg.Body == "" {
			return
		}
		_ = h.router.SendMessage(ctx, client.UserID, convID, msg.Body)
	case ActionMarkAsRead:
		_ = h.router.MarkAsRead(ctx, client.UserID, convID)
	}
}

// readPump reads messages from the WebSocket connection and processes them.
func (h *Handler) readPump(ctx context.Context, cancel context.CancelFunc, client *Client) {
	defer func() {
		cancel()
		h.hub.Unregister(client)
		client.conn.Close()
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg ClientMessage
		if err := decodeClientMessage(message, &msg); err != nil {
			continue // Ignore malformed messages.
		}

		h.ProcessMessage(ctx, client, msg)
	}
}

// writePump writes messages from the Send channel to the WebSocket connection.
func (h *Handler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}

func decodeClientMessage(data []byte, msg *ClientMessage) error {
	return json.Unmarshal(data, msg)
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
