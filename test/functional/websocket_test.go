//go:build functional

package functional

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vyrodovalexey/shoplist/internal/auth"
	"github.com/vyrodovalexey/shoplist/internal/model"
)

func dialFeed(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: DefaultWebSocketTimeout}
	conn, resp, err := dialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect to websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) model.Event {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(DefaultWebSocketTimeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var event model.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	return event
}

// waitForSubscriber gives the server a moment to register the connection.
func waitForSubscriber(t *testing.T, ts *TestServer) {
	t.Helper()

	deadline := time.Now().Add(DefaultWebSocketTimeout)
	for time.Now().Before(deadline) {
		if ts.App.Service.Events().Subscribers() > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("websocket client never subscribed")
}

func TestFunctional_WebSocketFeed(t *testing.T) {
	LogTestStart(t, "FT-101", "websocket receives domain events")

	ts := NewTestServer(t)
	ts.Start()
	c := NewHTTPClient(t, ts.BaseURL)
	conn := dialFeed(t, ts.WSURL, nil)
	waitForSubscriber(t, ts)

	milk := addItem(t, c, "Milk", "Dairy", "")
	added := readEvent(t, conn)
	if added.Type != model.EventItemAdded || added.Item == nil || added.Item.ItemID != milk.ItemID {
		t.Errorf("Unexpected item event: %+v", added)
	}

	resp := c.MustPost("/api/v1/finalize", listBody{Items: []model.ListItem{{CatalogItem: milk, Quantity: 3}}})
	AssertStatusCode(t, resp, http.StatusOK)

	finalized := readEvent(t, conn)
	if finalized.Type != model.EventListFinalized || finalized.Finalized == nil {
		t.Fatalf("Unexpected finalize event: %+v", finalized)
	}
	if finalized.Finalized.TotalItems != 3 || finalized.Finalized.Outcome != "created" {
		t.Errorf("Unexpected finalize summary: %+v", finalized.Finalized)
	}
}

func TestFunctional_WebSocketRequiresAuth(t *testing.T) {
	LogTestStart(t, "FT-102", "websocket feed is authenticated")

	ts := NewTestServer(t, WithAPIKey())
	ts.Start()

	dialer := websocket.Dialer{HandshakeTimeout: DefaultWebSocketTimeout}
	_, resp, err := dialer.Dial(ts.WSURL, nil)
	if err == nil {
		t.Fatal("Expected handshake to fail without credentials")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 handshake response, got %v", resp)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	header := http.Header{}
	header.Set(auth.APIKeyHeader, TestAPIKey)
	dialFeed(t, ts.WSURL, header)
	waitForSubscriber(t, ts)
}
