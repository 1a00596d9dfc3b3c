package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"loginsight/internal/alerts"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventAlert, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventAlert},
	}}

	alertEvent := &Event{Type: EventAlert}
	simEvent := &Event{Type: EventSimulation}

	if !h.shouldSend(client, alertEvent) {
		t.Error("Should receive alert events")
	}
	if h.shouldSend(client, simEvent) {
		t.Error("Should NOT receive simulation events")
	}
}

func TestShouldSend_UserFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		UserIDs: []string{"user_042"},
	}}

	matching := &Event{
		Type: EventAlert,
		Data: map[string]any{"user_id": "user_042"},
	}
	notMatching := &Event{
		Type: EventAlert,
		Data: map[string]any{"user_id": "user_777"},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on user_id")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match other users")
	}
}

func TestShouldSend_DecisionFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Decisions: []string{"escalate"},
	}}

	escalated := &Event{
		Type: EventAlert,
		Data: map[string]any{"decision": "escalate"},
	}
	suppressed := &Event{
		Type: EventAlert,
		Data: map[string]any{"decision": "suppress"},
	}

	if !h.shouldSend(client, escalated) {
		t.Error("Should receive escalated alerts")
	}
	if h.shouldSend(client, suppressed) {
		t.Error("Should NOT receive suppressed alerts")
	}
}

func TestShouldSend_MinScoreFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinScore: 70,
	}}

	high := &Event{
		Type: EventAlert,
		Data: map[string]any{"risk_score": 87},
	}
	low := &Event{
		Type: EventAlert,
		Data: map[string]any{"risk_score": 22},
	}
	sim := &Event{
		Type: EventSimulation,
		Data: map[string]any{"events_created": 100},
	}

	if !h.shouldSend(client, high) {
		t.Error("Should receive high-score alert")
	}
	if h.shouldSend(client, low) {
		t.Error("Should NOT receive low-score alert")
	}
	if !h.shouldSend(client, sim) {
		t.Error("MinScore filter should only apply to alerts")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventAlert}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_MissingDataFields(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		UserIDs: []string{"user_042"},
	}}

	// Events without a user_id pass through; the filter can't apply.
	event := &Event{
		Type: EventSimulation,
		Data: map[string]any{"events_created": 100},
	}

	if !h.shouldSend(client, event) {
		t.Error("Events without user_id should pass through the user filter")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: EventAlert, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_AlertCreatedReachesClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.AlertCreated(&alerts.Alert{
		AlertID:   "alr_1",
		Timestamp: time.Now(),
		UserID:    "user_042",
		EventID:   "evt_1",
		RiskScore: 87,
		Decision:  "escalate",
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants escalations
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{Decisions: []string{"escalate"}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a suppressed alert (should be filtered out)
	h.Broadcast(&Event{
		Type:      EventAlert,
		Timestamp: time.Now(),
		Data:      map[string]any{"decision": "suppress"},
	})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive suppressed alert")
	default:
		// Good - filtered out
	}

	// Send an escalated alert (should be received)
	h.Broadcast(&Event{
		Type:      EventAlert,
		Timestamp: time.Now(),
		Data:      map[string]any{"decision": "escalate"},
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive escalated alert")
	}
}
