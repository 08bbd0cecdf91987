package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
	applogger "ChainPull/pkg/logger"

	"github.com/gorilla/websocket"
)

const pingWriteWait = 10 * time.Second

// Stream implements a KlineStream backed by one Binance kline WebSocket
// subscription (one symbol, one interval).
type Stream struct {
	wsURL          string
	symbol         string
	interval       string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	pingDone  chan struct{}
}

// NewStream creates a kline stream for the given symbol and interval.
func NewStream(wsURL, symbol, interval string, reconnectDelay, pingInterval time.Duration, log *applogger.Logger) domrepo.KlineStream {
	return &Stream{
		wsURL:          wsURL,
		symbol:         symbol,
		interval:       interval,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log.With(applogger.String("interval", interval)),
	}
}

// Connect establishes the WebSocket connection and starts the ping loop
// for it. The loop lives until Close tears the connection down, so a
// reconnect replaces it instead of stacking another one.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	done := make(chan struct{})
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.pingDone = done
	s.mu.Unlock()
	go s.pingLoop(conn, done)
	return nil
}

// pingLoop keeps one connection alive. WriteControl is safe to call
// concurrently with the subscribe write.
func (s *Stream) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteWait))
		}
	}
}

// Subscribe subscribes to the kline stream for the configured interval.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	conn, connected := s.conn, s.connected
	s.mu.Unlock()
	if conn == nil || !connected {
		return fmt.Errorf("binance not connected")
	}
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{fmt.Sprintf("%s@kline_%s", strings.ToLower(s.symbol), s.interval)},
		"id":     1,
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe kline_%s: %w", s.interval, err)
	}
	return nil
}

type wsKline struct {
	OpenTime int64  `json:"t"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Closed   bool   `json:"x"`
}

type wsEvent struct {
	Event string  `json:"e"`
	Kline wsKline `json:"k"`
}

// Read streams candle updates and errors until ctx is cancelled or the
// connection drops.
func (s *Stream) Read(ctx context.Context) (<-chan *models.CandleUpdate, <-chan error) {
	updates := make(chan *models.CandleUpdate, 256)
	errs := make(chan error, 1)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	// read loop, bound to the connection current at call time
	go func() {
		defer close(updates)
		defer close(errs)
		if conn == nil {
			errs <- fmt.Errorf("binance conn nil")
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}
				u, ok := s.parseFrame(b)
				if !ok {
					continue
				}
				select {
				case updates <- u:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return updates, errs
}

// parseFrame decodes one frame into a candle update. Subscription acks and
// malformed frames are skipped.
func (s *Stream) parseFrame(b []byte) (*models.CandleUpdate, bool) {
	var ev wsEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		s.log.Warn("malformed stream frame", applogger.Error(err))
		return nil, false
	}
	if ev.Event != "kline" {
		// subscribe ack or unrelated event
		return nil, false
	}
	c, err := candleFromKline(ev.Kline)
	if err != nil {
		s.log.Warn("malformed kline payload", applogger.Error(err))
		return nil, false
	}
	return &models.CandleUpdate{Candle: c, Closed: ev.Kline.Closed}, true
}

func candleFromKline(k wsKline) (models.Candle, error) {
	if k.OpenTime <= 0 {
		return models.Candle{}, fmt.Errorf("kline open time %d", k.OpenTime)
	}
	c := models.Candle{OpenTime: time.UnixMilli(k.OpenTime).UTC()}
	for _, f := range []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", k.Open, &c.Open},
		{"high", k.High, &c.High},
		{"low", k.Low, &c.Low},
		{"close", k.Close, &c.Close},
	} {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("kline %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}
	return c, nil
}

// Reconnect closes and re-establishes the same subscription.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close stops the connection's ping loop and closes the socket.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.connected = false
	conn := s.conn
	s.conn = nil
	if s.pingDone != nil {
		close(s.pingDone)
		s.pingDone = nil
	}
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
