package trade

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/simvest/trade-engine/internal/metrics"
)

func clientGauge() float64 {
	return testutil.ToFloat64(metrics.WebSocketClients)
}

func waitForGauge(t *testing.T, want float64, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for clientGauge() != want {
		if time.Now().After(deadline) {
			t.Fatalf("%s: gauge = %v, want %v", msg, clientGauge(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWSHub_BroadcastAndDisconnectKeepGaugeConsistent(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForGauge(t, 1, "after connect")

	hub.Broadcast(WSMessage{Type: "order_completed", OrderID: "o1", Symbol: "AAPL"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if msg.Type != "order_completed" || msg.OrderID != "o1" {
		t.Errorf("message = %+v, want order_completed/o1", msg)
	}

	// Drop the transport without a close handshake. Whether the hub
	// notices through a failed broadcast write or the read pump, the
	// client set and the gauge must end up in step.
	conn.UnderlyingConn().Close()

	deadline := time.Now().Add(3 * time.Second)
	for clientGauge() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("gauge never returned to 0 after client disconnect")
		}
		hub.Broadcast(WSMessage{Type: "order_completed", OrderID: "o2"})
		time.Sleep(10 * time.Millisecond)
	}
}
