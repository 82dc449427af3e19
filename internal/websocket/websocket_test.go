package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/chanceraffle/internal/logger"
	"github.com/abrezinsky/chanceraffle/internal/models"
)

// mockStatsService implements services.StatsServicer for testing
type mockStatsService struct {
	mu    sync.Mutex
	stats models.RaffleStats
	err   error
	calls int
}

func (m *mockStatsService) GetStats(ctx context.Context) (*models.RaffleStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	s := m.stats
	return &s, nil
}

func (m *mockStatsService) set(fn func(s *models.RaffleStats)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.stats)
}

func newStats() *mockStatsService {
	return &mockStatsService{stats: models.RaffleStats{
		CampaignName:     "Test Raffle",
		IsActive:         true,
		PrimaryRemaining: 360,
	}}
}

func startHub(t *testing.T, stats *mockStatsService) *Hub {
	t.Helper()
	hub := New(logger.New(), stats)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub.Start(ctx)
	return hub
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

// readType reads until a message of the given type arrives
func readType(t *testing.T, ws *websocket.Conn, msgType string) map[string]interface{} {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", msgType, err)
		}
		var msg struct {
			Type    string                 `json:"type"`
			Payload map[string]interface{} `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad message %s: %v", data, err)
		}
		if msg.Type == msgType {
			return msg.Payload
		}
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_CreatesHubWithDependencies(t *testing.T) {
	hub := New(logger.New(), newStats())

	if hub.clients == nil || hub.broadcast == nil || hub.register == nil || hub.unregister == nil || hub.dirty == nil {
		t.Fatal("expected channels and client map to be initialized")
	}
	if hub.stats == nil {
		t.Error("expected stats service to be set")
	}
}

func TestHub_BroadcastDoesNotBlockWithoutClients(t *testing.T) {
	hub := New(logger.New(), newStats())

	done := make(chan struct{})
	go func() {
		// hub not started: the queue fills and messages are dropped
		for i := 0; i < 200; i++ {
			hub.BroadcastMessage("test", i)
			hub.BroadcastStatsChanged()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("broadcast blocked")
	}
}

func TestServeWs_SendsStatsOnConnect(t *testing.T) {
	hub := startHub(t, newStats())
	ws := dial(t, hub)

	payload := readType(t, ws, MsgStats)
	if payload["campaign_name"] != "Test Raffle" {
		t.Errorf("unexpected stats payload: %v", payload)
	}
	if payload["primary_remaining"] != float64(360) {
		t.Errorf("expected 360 remaining, got %v", payload["primary_remaining"])
	}
}

func TestBroadcastStatsChanged_PushesFreshStats(t *testing.T) {
	stats := newStats()
	hub := startHub(t, stats)
	ws := dial(t, hub)
	readType(t, ws, MsgStats)

	stats.set(func(s *models.RaffleStats) {
		s.PrimaryEntriesCount = 1
		s.TotalEntries = 1
		s.PrimaryRemaining = 359
	})
	hub.BroadcastStatsChanged()

	payload := readType(t, ws, MsgStats)
	if payload["primary_remaining"] != float64(359) || payload["total_entries"] != float64(1) {
		t.Errorf("expected refreshed stats, got %v", payload)
	}
}

func TestBroadcastStatsChanged_StatsErrorSendsNothing(t *testing.T) {
	stats := newStats()
	stats.err = errors.New("database error")
	hub := startHub(t, stats)
	ws := dial(t, hub)
	waitForClients(t, hub, 1)

	hub.BroadcastStatsChanged()
	hub.BroadcastMessage("ping", nil)

	// the first message through must be the marker, not stats
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), `"type":"ping"`) {
		t.Errorf("expected only the marker message, got %s", data)
	}
}

func TestServeWs_MultipleClients(t *testing.T) {
	hub := startHub(t, newStats())
	clients := []*websocket.Conn{dial(t, hub), dial(t, hub), dial(t, hub)}
	waitForClients(t, hub, 3)

	hub.BroadcastMessage(MsgCountdown, map[string]interface{}{"overflow_time_remaining": 1000})

	for i, ws := range clients {
		payload := readType(t, ws, MsgCountdown)
		if payload["overflow_time_remaining"] != float64(1000) {
			t.Errorf("client %d: unexpected payload %v", i, payload)
		}
	}
}

func TestServeWs_ClientDisconnect(t *testing.T) {
	hub := startHub(t, newStats())
	ws := dial(t, hub)
	waitForClients(t, hub, 1)

	ws.Close()
	waitForClients(t, hub, 0)
}

func TestServeWs_UpgradeError(t *testing.T) {
	hub := startHub(t, newStats())

	req := httptest.NewRequest("GET", "/ws", nil)
	rec := httptest.NewRecorder()
	hub.ServeWs(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a plain HTTP request, got %d", rec.Code)
	}
	if hub.ClientCount() != 0 {
		t.Error("no client should be registered")
	}
}

func TestTick_CountdownWhileOverflowOpen(t *testing.T) {
	stats := newStats()
	remaining := int64(90 * 60 * 1000)
	stats.set(func(s *models.RaffleStats) {
		s.IsPrimarySoldOut = true
		s.PrimaryRemaining = 0
		s.IsOverflowActive = true
		s.OverflowTimeRemaining = &remaining
	})
	hub := startHub(t, stats)
	ws := dial(t, hub)
	waitForClients(t, hub, 1)

	hub.Tick(context.Background())

	payload := readType(t, ws, MsgCountdown)
	if payload["overflow_time_remaining"] != float64(remaining) {
		t.Errorf("unexpected countdown payload: %v", payload)
	}
}

func TestTick_AnnouncesCloseOnce(t *testing.T) {
	stats := newStats()
	remaining := int64(1000)
	stats.set(func(s *models.RaffleStats) {
		s.IsOverflowActive = true
		s.OverflowTimeRemaining = &remaining
	})
	hub := startHub(t, stats)
	ws := dial(t, hub)
	readType(t, ws, MsgStats)

	hub.Tick(context.Background())
	readType(t, ws, MsgCountdown)

	stats.set(func(s *models.RaffleStats) {
		s.IsOverflowActive = false
		s.OverflowTimeRemaining = nil
	})
	hub.Tick(context.Background())
	payload := readType(t, ws, MsgStats)
	if payload["is_overflow_active"] != false {
		t.Errorf("expected closed overflow in stats, got %v", payload)
	}

	hub.Tick(context.Background())
	hub.BroadcastMessage("marker", nil)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), `"type":"marker"`) {
		t.Errorf("closed window should be announced once, got %s", data)
	}
}

func TestTick_NothingWhenOverflowNeverOpened(t *testing.T) {
	stats := newStats()
	hub := New(logger.New(), stats)

	hub.Tick(context.Background())

	if len(hub.broadcast) != 0 {
		t.Errorf("expected no queued messages, got %d", len(hub.broadcast))
	}
	if stats.calls != 1 {
		t.Errorf("expected one stats lookup, got %d", stats.calls)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := New(logger.New(), newStats())
	ctx, cancel := context.WithCancel(context.Background())
	hub.Start(ctx)
	ws := dial(t, hub)
	waitForClients(t, hub, 1)

	cancel()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	if hub.ClientCount() != 0 {
		t.Errorf("expected clients to be dropped on shutdown, got %d", hub.ClientCount())
	}
}
