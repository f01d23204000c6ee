package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
)

type fakeRouter struct {
	accessible map[uuid.UUID]bool
	sent       []string
	readConvs  []uuid.UUID
	sendErr    error
}

func (f *fakeRouter) CanAccessConversation(_ context.Context, _, conversationID uuid.UUID, _ string) (bool, error) {
	return f.accessible[conversationID], nil
}

func (f *fakeRouter) SendMessage(_ context.Context, _, _ uuid.UUID, body string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, body)
	return nil
}

func (f *fakeRouter) MarkAsRead(_ context.Context, _, conversationID uuid.UUID) error {
	f.readConvs = append(f.readConvs, conversationID)
	return nil
}

func TestProcessMessage_JoinConversation(t *testing.T) {
	hub := newTestHub()
	convID := uuid.New()
	router := &fakeRouter{accessible: map[uuid.UUID]bool{convID: true}}
	h := NewHandler(hub, router)

	client := newTestClient()
	hub.Register(client)

	h.ProcessMessage(context.Background(), client, ClientMessage{
		Action:         ActionJoinConversation,
		ConversationID: convID.String(),
	})

	if hub.TopicCount(ConversationTopic(convID)) != 1 {
		t.Fatal("expected client to be subscribed to the conversation topic")
	}
}

func TestProcessMessage_JoinDeniedForNonParticipant(t *testing.T) {
	hub := newTestHub()
	convID := uuid.New()
	router := &fakeRouter{accessible: map[uuid.UUID]bool{}} // not a participant
	h := NewHandler(hub, router)

	client := newTestClient()
	hub.Register(client)

	h.ProcessMessage(context.Background(), client, ClientMessage{
		Action:         ActionJoinConversation,
		ConversationID: convID.String(),
	})

	if hub.TopicCount(ConversationTopic(convID)) != 0 {
		t.Fatal("expected join to be denied for a non-participant")
	}
}

func TestProcessMessage_LeaveConversation(t *testing.T) {
	hub := newTestHub()
	convID := uuid.New()
	router := &fakeRouter{accessible: map[uuid.UUID]bool{convID: true}}
	h := NewHandler(hub, router)

	client := newTestClient(ConversationTopic(convID))
	hub.Register(client)

	h.ProcessMessage(context.Background(), client, ClientMessage{
		Action:         ActionLeaveConversation,
		ConversationID: convID.String(),
	})

	if hub.TopicCount(ConversationTopic(convID)) != 0 {
		t.Fatal("expected client to be unsubscribed from the conversation topic")
	}
}

func TestProcessMessage_SendMessage(t *testing.T) {
	hub := newTestHub()
	convID := uuid.New()
	router := &fakeRouter{accessible: map[uuid.UUID]bool{convID: true}}
	h := NewHandler(hub, router)

	client := newTestClient()
	hub.Register(client)

	h.ProcessMessage(context.Background(), client, ClientMessage{
		Action:         ActionSendMessage,
		ConversationID: convID.String(),
		Body:           "any update on my results?",
	})

	if len(router.sent) != 1 || router.sent[0] != "any update on my results?" {
		t.Fatalf("expected message to be routed, got %v", router.sent)
	}
}

func TestProcessMessage_SendMessageEmptyBodyIgnored(t *testing.T) {
	hub := newTestHub()
	convID := uuid.New()
	router := &fakeRouter{accessible: map[uuid.UUID]bool{convID: true}}
	h := NewHandler(hub, router)

	client := newTestClient()
	hub.Register(client)

	h.ProcessMessage(context.Background(), client, ClientMessage{
		Action:         ActionSendMessage,
		ConversationID: convID.String(),
	})

	if len(router.sent) != 0 {
		t.Fatalf("expected empty body to be ignored, got %v", router.sent)
	}
}

func TestProcessMessage_MarkAsRead(t *testing.T) {
	hub := newTestHub()
	convID := uuid.New()
	router := &fakeRouter{accessible: map[uuid.UUID]bool{convID: true}}
	h := NewHandler(hub, router)

	client := newTestClient()
	hub.Register(client)

	h.ProcessMessage(context.Background(), client, ClientMessage{
		Action:         ActionMarkAsRead,
		ConversationID: convID.String(),
	})

	if len(router.readConvs) != 1 || router.readConvs[0] != convID {
		t.Fatalf("expected mark_as_read to be routed, got %v", router.readConvs)
	}
}

func TestProcessMessage_InvalidConversationIDIgnored(t *testing.T) {
	hub := newTestHub()
	router := &fakeRouter{sendErr: errors.New("should not be called")}
	h := NewHandler(hub, router)

	client := newTestClient()
	hub.Register(client)

	h.ProcessMessage(context.Background(), client, ClientMessage{
		Action:         ActionSendMessage,
		ConversationID: "not-a-uuid",
		Body:           "hello",
	})

	if len(router.sent) != 0 {
		t.Fatal("expected message with invalid conversation id to be dropped")
	}
}

// ctxCheckingRouter reports the context state of every action it receives.
type ctxCheckingRouter struct {
	states chan error
}

func (r *ctxCheckingRouter) CanAccessConversation(ctx context.Context, _, _ uuid.UUID, _ string) (bool, error) {
	r.states <- ctx.Err()
	return true, nil
}

func (r *ctxCheckingRouter) SendMessage(ctx context.Context, _, _ uuid.UUID, _ string) error {
	r.states <- ctx.Err()
	return nil
}

func (r *ctxCheckingRouter) MarkAsRead(ctx context.Context, _, _ uuid.UUID) error {
	r.states <- ctx.Err()
	return nil
}

// Actions sent over an upgraded connection arrive long after HandleConnect
// has returned and its request context has been cancelled; the router must
// still receive a live context.
func TestHandleConnect_ActionsOutliveRequestContext(t *testing.T) {
	hub := newTestHub()
	router := &ctxCheckingRouter{states: make(chan error, 2)}
	h := NewHandler(hub, router)

	userID := uuid.New()
	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		ctx := context.WithValue(c.Request().Context(), auth.UserIDKey, userID.String())
		ctx = context.WithValue(ctx, auth.UserRoleKey, auth.RolePatient)
		c.SetRequest(c.Request().WithContext(ctx))
		return h.HandleConnect(c)
	})
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := gorillawebsocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	convID := uuid.New().String()
	for _, msg := range []ClientMessage{
		{Action: ActionJoinConversation, ConversationID: convID},
		{Action: ActionSendMessage, ConversationID: convID, Body: "hello"},
	} {
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write %s: %v", msg.Action, err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case state := <-router.states:
			if state != nil {
				t.Fatalf("action %d reached the router on a dead context: %v", i, state)
			}
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for a socket action to reach the router")
		}
	}
}

func TestDecodeClientMessage(t *testing.T) {
	var msg ClientMessage
	raw := []byte(`{"action":"join_conversation","conversation_id":"abc"}`)
	if err := decodeClientMessage(raw, &msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Action != ActionJoinConversation {
		t.Errorf("expected action join_conversation, got %s", msg.Action)
	}

	if err := decodeClientMessage([]byte("{not json"), &msg); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
