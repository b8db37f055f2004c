package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/shoplist/internal/model"
	"github.com/vyrodovalexey/shoplist/internal/shoplist"
)

func newWebSocketServer(t *testing.T) (*WebSocketHandler, *shoplist.Broker, string) {
	t.Helper()

	broker := shoplist.NewBroker()
	handler := NewWebSocketHandler(broker, zap.NewNop())
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return handler, broker, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWebSocketHandler_RegisterRoutes(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(shoplist.NewBroker(), zap.NewNop())
	router := mux.NewRouter()

	// Act
	handler.RegisterRoutes(router)

	// Assert
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rr.Code == http.StatusNotFound {
		t.Error("route /ws not found")
	}
}

func TestWebSocketHandler_InvalidUpgrade(t *testing.T) {
	// Arrange
	broker := shoplist.NewBroker()
	handler := NewWebSocketHandler(broker, zap.NewNop())
	rr := httptest.NewRecorder()

	// Act
	handler.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))

	// Assert
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if broker.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", broker.Subscribers())
	}
}

func TestWebSocketHandler_ForwardsEvents(t *testing.T) {
	// Arrange
	handler, broker, url := newWebSocketServer(t)
	conn := dial(t, url)
	waitFor(t, func() bool { return broker.Subscribers() == 1 })

	// Act
	delivered := broker.Publish(model.Event{
		Type:      model.EventItemAdded,
		Item:      &model.CatalogItem{ItemID: "ID8", Name: "Yogurt", Category: "Dairy"},
		Timestamp: time.Now().UTC(),
	})

	// Assert
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	var event model.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if event.Type != model.EventItemAdded {
		t.Errorf("type = %s, want %s", event.Type, model.EventItemAdded)
	}
	if event.Item == nil || event.Item.ItemID != "ID8" {
		t.Errorf("item = %+v, want ID8", event.Item)
	}
	if handler.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", handler.ClientCount())
	}
}

func TestWebSocketHandler_MultipleClients(t *testing.T) {
	// Arrange
	_, broker, url := newWebSocketServer(t)
	conns := []*websocket.Conn{dial(t, url), dial(t, url), dial(t, url)}
	waitFor(t, func() bool { return broker.Subscribers() == len(conns) })

	// Act
	broker.Publish(model.Event{
		Type:      model.EventListFinalized,
		Finalized: &model.FinalizeEvent{Outcome: "created", TotalItems: 5, UniqueItems: 2},
	})

	// Assert
	for i, conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event model.Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("client %d: ReadJSON() error = %v", i, err)
		}
		if event.Finalized == nil || event.Finalized.TotalItems != 5 {
			t.Errorf("client %d: finalized = %+v", i, event.Finalized)
		}
	}
}

func TestWebSocketHandler_ClientDisconnectUnsubscribes(t *testing.T) {
	// Arrange
	handler, broker, url := newWebSocketServer(t)
	conn := dial(t, url)
	waitFor(t, func() bool { return broker.Subscribers() == 1 })

	// Act
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	_ = conn.Close()

	// Assert
	waitFor(t, func() bool { return broker.Subscribers() == 0 })
	waitFor(t, func() bool { return handler.ClientCount() == 0 })
}

func TestWebSocketHandler_ClientMessagesIgnored(t *testing.T) {
	// Arrange
	_, broker, url := newWebSocketServer(t)
	conn := dial(t, url)
	waitFor(t, func() bool { return broker.Subscribers() == 1 })

	// Act
	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	broker.Publish(model.Event{Type: model.EventItemAdded})

	// Assert
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event model.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if event.Type != model.EventItemAdded {
		t.Errorf("type = %s", event.Type)
	}
}

func TestWebSocketHandler_CloseAllConnections(t *testing.T) {
	// Arrange
	handler, broker, url := newWebSocketServer(t)
	conn := dial(t, url)
	waitFor(t, func() bool { return handler.ClientCount() == 1 })

	// Act
	handler.CloseAllConnections()

	// Assert
	if handler.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", handler.ClientCount())
	}
	if broker.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", broker.Subscribers())
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage() error = %v, want normal closure", err)
	}
}

func TestWebSocketHandler_CloseAllConnections_Empty(t *testing.T) {
	handler := NewWebSocketHandler(shoplist.NewBroker(), zap.NewNop())

	handler.CloseAllConnections()

	if handler.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", handler.ClientCount())
	}
}

func TestWebSocketConstants(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod (%v) must be shorter than pongWait (%v)", pingPeriod, pongWait)
	}
	if writeWait <= 0 || maxMessageSize <= 0 {
		t.Error("writeWait and maxMessageSize must be positive")
	}
}
