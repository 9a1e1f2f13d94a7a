package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

const producerName = "counselbridge-backend"

type Meta struct {
	CorrelationID *string   `json:"correlation_id,omitempty"`
	ID            string    `json:"id"`
	Producer      *string   `json:"producer,omitempty"`
	Time          time.Time `json:"time"`
	Type          string    `json:"type"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// StatisticsPublisher sends statistics events to a topic exchange.
type StatisticsPublisher interface {
	Publish(ctx context.Context, event types.StatisticsEvent) error
	Close() error
}

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Config struct {
	URL      string
	Exchange string
}

type statisticsPublisher struct {
	log      *logger.Logger
	conn     *amqp.Connection
	exchange string
	channel  func() (publishChannel, error)
}

func NewStatisticsPublisher(log *logger.Logger, cfg Config) (StatisticsPublisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("missing RABBITMQ_URL")
	}
	if strings.TrimSpace(cfg.Exchange) == "" {
		cfg.Exchange = "statistics.topic"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	p := &statisticsPublisher{
		log:      log.With("client", "StatisticsPublisher"),
		conn:     conn,
		exchange: cfg.Exchange,
	}
	p.channel = func() (publishChannel, error) { return p.conn.Channel() }
	return p, nil
}

// RoutingKey is statistics.<event type in lower case>.
func RoutingKey(event types.StatisticsEvent) string {
	return "statistics." + strings.ToLower(strings.TrimSpace(event.EventType))
}

func NewEnvelope(event types.StatisticsEvent, correlationID string) Envelope {
	producer := producerName
	meta := Meta{
		ID:       uuid.NewString(),
		Producer: &producer,
		Time:     event.Timestamp,
		Type:     "statistics." + strings.ToLower(event.EventType) + ".v1",
	}
	if meta.Time.IsZero() {
		meta.Time = time.Now().UTC()
	}
	if correlationID != "" {
		meta.CorrelationID = &correlationID
	}
	return Envelope{Meta: meta, Data: event}
}

func (p *statisticsPublisher) Publish(ctx context.Context, event types.StatisticsEvent) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	env := NewEnvelope(event, ctxutil.RequestID(ctx))
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	key := RoutingKey(event)
	err = ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: ctxutil.RequestID(ctx),
		Timestamp:     env.Meta.Time,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	p.log.Debug("statistics event published", "key", key, "session_id", event.SessionID)
	return nil
}

func (p *statisticsPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
