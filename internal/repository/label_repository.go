package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
	pkgkafka "ChainPull/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage for labeled candles.
func NewClickHouseStorage(db *sql.DB, table string) domrepo.Storage {
	return &ClickHouseStorage{db: db, table: table}
}

func (s *ClickHouseStorage) Store(ctx context.Context, tf domrepo.Timeframe, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	values := make([]string, 0, len(candles))
	args := make([]interface{}, 0, len(candles)*7)
	for _, c := range candles {
		if c.OpenTime.IsZero() {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			string(tf),
			c.OpenTime,
			c.Open,
			c.High,
			c.Low,
			c.Close,
			encodeLabel(c.Label),
		)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (timeframe, open_time, open, high, low, close, label) VALUES %s",
		s.table, strings.Join(values, ","),
	)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store labels: %w", err)
	}
	return nil
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // pool managed by pkg/clickhouse
}

// encodeLabel renders an opaque label value as JSON text for storage and
// transport.
func encodeLabel(label interface{}) string {
	if label == nil {
		return ""
	}
	b, err := json.Marshal(label)
	if err != nil {
		return fmt.Sprintf("%v", label)
	}
	return string(b)
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka publisher for labeled candles.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, tf domrepo.Timeframe, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(candles))
	for i, c := range candles {
		// key by timeframe so one partition keeps per-timeframe order
		msgs[i] = pkgkafka.Message{
			Key: []byte(tf),
			Value: map[string]interface{}{
				"timeframe": string(tf),
				"open_time": c.OpenTime.UnixMilli(),
				"open":      c.Open,
				"high":      c.High,
				"low":       c.Low,
				"close":     c.Close,
				"label":     c.Label,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
