package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	applogger "ChainPull/pkg/logger"

	"github.com/gorilla/websocket"
)

func streamForParsing(t *testing.T) *Stream {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewStream("wss://example", "BTCUSDT", "5m", time.Second, time.Second, l).(*Stream)
}

// flakyServer accepts WS connections and drops each one right after the
// subscribe frame.
func flakyServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, _, _ = c.ReadMessage()
		c.Close()
	}))
}

func TestReconnectDoesNotLeakPingLoops(t *testing.T) {
	srv := flakyServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	st := NewStream(wsURL, "BTCUSDT", "5m", time.Millisecond, time.Hour, l)

	ctx := context.Background()
	if err := st.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := st.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	before := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		if err := st.Reconnect(ctx); err != nil {
			t.Fatalf("reconnect %d: %v", i, err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	after := runtime.NumGoroutine()
	for time.Now().Before(deadline) && after > before+2 {
		time.Sleep(10 * time.Millisecond)
		after = runtime.NumGoroutine()
	}
	if after > before+2 {
		t.Fatalf("goroutines grew from %d to %d across reconnect cycles", before, after)
	}
}

func TestCloseAfterConnectReportsDisconnected(t *testing.T) {
	srv := flakyServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	st := NewStream(wsURL, "BTCUSDT", "5m", time.Millisecond, time.Hour, l)
	if st.IsConnected() {
		t.Fatalf("connected before Connect")
	}
	if err := st.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !st.IsConnected() {
		t.Fatalf("not connected after Connect")
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if st.IsConnected() {
		t.Fatalf("still connected after Close")
	}
}

func TestParseFrameKline(t *testing.T) {
	s := streamForParsing(t)

	frame := []byte(`{
		"e": "kline",
		"k": {"t": 1740830400000, "o": "100.1", "h": "101.2", "l": "99.9", "c": "100.8", "x": true}
	}`)
	u, ok := s.parseFrame(frame)
	if !ok {
		t.Fatalf("frame rejected")
	}
	if !u.Closed {
		t.Errorf("closed flag lost")
	}
	want := time.UnixMilli(1740830400000).UTC()
	if !u.Candle.OpenTime.Equal(want) {
		t.Errorf("open time = %v, want %v", u.Candle.OpenTime, want)
	}
	if u.Candle.Open != 100.1 || u.Candle.Close != 100.8 {
		t.Errorf("prices = %+v", u.Candle)
	}
}

func TestParseFrameSkipsAcksAndGarbage(t *testing.T) {
	s := streamForParsing(t)

	for _, frame := range []string{
		`{"result": null, "id": 1}`,
		`{"e": "trade"}`,
		`{"e": "kline", "k": {"t": 0}}`,
		`{"e": "kline", "k": {"t": 1740830400000, "o": "abc", "h": "1", "l": "1", "c": "1"}}`,
		`not json at all`,
	} {
		if _, ok := s.parseFrame([]byte(frame)); ok {
			t.Errorf("frame accepted: %s", frame)
		}
	}
}

func TestParseFrameOpenCandle(t *testing.T) {
	s := streamForParsing(t)

	frame := []byte(`{"e": "kline", "k": {"t": 1740830400000, "o": "1", "h": "1", "l": "1", "c": "1", "x": false}}`)
	u, ok := s.parseFrame(frame)
	if !ok {
		t.Fatalf("frame rejected")
	}
	if u.Closed {
		t.Errorf("in-progress candle marked closed")
	}
}
