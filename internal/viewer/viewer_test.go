package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"voice-order-service/internal/models"
	"voice-order-service/internal/service/order"
)

func transcriptJSON(t *testing.T, session, text string) []byte {
	t.Helper()
	b, err := json.Marshal(models.TranscriptEvent{
		EventType:   models.EventTypeTranscript,
		SessionID:   session,
		RecordingID: "rec-1",
		Timestamp:   time.Now().UnixMilli(),
		Language:    "en",
		CleanedText: text,
	})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDecode(t *testing.T) {
	ev, err := Decode("voice.transcript.cleaned", transcriptJSON(t, "s-1", "I want rice."))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.SessionID != "s-1" || ev.Summary != "I want rice." {
		t.Errorf("unexpected event %+v", ev)
	}

	orderJSON, _ := json.Marshal(models.OrderEvent{
		EventType: models.EventTypeOrder,
		SessionID: "s-2",
		Categories: []order.Category{
			{Name: "S1", Items: []order.Item{{Dimension: "8x10", Quantity: "10 kg"}, {Dimension: "16x20", Quantity: "5 kg"}}},
			{Name: "S2", Items: []order.Item{{Dimension: "10x12", Quantity: "3 kg"}}},
		},
	})
	ev, err = Decode("voice.order.extracted", orderJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Summary != "2 categories, 3 items" {
		t.Errorf("expected '2 categories, 3 items', got %q", ev.Summary)
	}

	if _, err := Decode("t", []byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := Decode("t", []byte(`{"eventType":"other"}`)); err == nil {
		t.Error("expected error for unknown event type")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abc", 5); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
	if got := truncate("আমি চাল চাই", 3); got != "আমি..." {
		t.Errorf("expected rune-safe truncation, got %q", got)
	}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(NewRouter(hub))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

func TestHub_BroadcastAndHistory(t *testing.T) {
	hub, srv := startHub(t)
	ctx := context.Background()

	first, _ := Decode("t", transcriptJSON(t, "s-1", "first"))
	if err := hub.Publish(ctx, first); err != nil {
		t.Fatal(err)
	}

	conn := dial(t, srv)
	if got := readEvent(t, conn); got.Summary != "first" {
		t.Errorf("expected history replay of 'first', got %q", got.Summary)
	}

	second, _ := Decode("t", transcriptJSON(t, "s-1", "second"))
	hub.Publish(ctx, second)
	if got := readEvent(t, conn); got.Summary != "second" {
		t.Errorf("expected live 'second', got %q", got.Summary)
	}

	if h := hub.History(); len(h) != 2 {
		t.Errorf("expected 2 retained events, got %d", len(h))
	}
}

func TestHub_HistoryBounded(t *testing.T) {
	hub := NewHub()
	for i := 0; i < historySize+10; i++ {
		hub.remember(Event{Summary: "x"})
	}
	if got := len(hub.History()); got != historySize {
		t.Errorf("expected %d events, got %d", historySize, got)
	}
}

func TestRouter_PageAndHistory(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("expected html page, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, err = http.Get(srv.URL + "/api/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode history: %v", err)
	}
}

type fakeReader struct {
	msgs   []kafka.Message
	errs   int
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if r.errs > 0 {
		r.errs--
		return kafka.Message{}, errors.New("broker unavailable")
	}
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsume(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	r := &fakeReader{
		errs: 1,
		msgs: []kafka.Message{
			{Value: []byte("garbage")},
			{Value: transcriptJSON(t, "s-1", "hello there.")},
		},
	}
	done := make(chan error, 1)
	go func() { done <- Consume(ctx, "voice.transcript.cleaned", r, hub, time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(hub.History()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	h := hub.History()
	if len(h) != 1 || h[0].Summary != "hello there." || h[0].Topic != "voice.transcript.cleaned" {
		t.Fatalf("expected one forwarded event, got %+v", h)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected nil on cancel, got %v", err)
	}
	if !r.closed {
		t.Error("expected reader closed")
	}
}
