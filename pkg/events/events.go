package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for every message the gateway publishes.
//
// Topic naming: gateway.<domain>.<action>
// Event types are versioned independently of topics: "trade.executed.v1".
type Event struct {
	// EventID is a unique identifier for this event instance
	EventID string `json:"event_id"`

	// EventType describes the event in format: <domain>.<action>.v<version>
	EventType string `json:"event_type"`

	// OccurredAt is when the event actually happened (not when it was published)
	OccurredAt time.Time `json:"occurred_at"`

	// CorrelationID links the event to the HTTP request that caused it
	CorrelationID string `json:"correlation_id,omitempty"`

	// Source identifies the service that produced this event
	Source string `json:"source"`

	// Payload contains the event-specific data
	Payload any `json:"payload"`
}

// NewEvent creates a new event with auto-generated ID and timestamp.
func NewEvent(eventType, source string, payload any) *Event {
	return &Event{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Source:     source,
		Payload:    payload,
	}
}

// WithCorrelationID sets the correlation ID for request tracing.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

const (
	// TopicTradeExecuted is published after the provider confirms a market order.
	// Payload: TradeExecutedPayload
	TopicTradeExecuted = "gateway.trades.executed"

	// TopicPositionClosed is published after the provider confirms a position close,
	// including each close performed by close-all.
	// Payload: PositionClosedPayload
	TopicPositionClosed = "gateway.positions.closed"
)

const (
	EventTypeTradeExecuted  = "trade.executed.v1"
	EventTypePositionClosed = "position.closed.v1"
)

// TradeExecutedPayload describes a filled market order.
type TradeExecutedPayload struct {
	AccountID  string   `json:"account_id"`
	Symbol     string   `json:"symbol"`
	Direction  string   `json:"direction"`
	Volume     float64  `json:"volume"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	OrderID    string   `json:"order_id"`
	PositionID string   `json:"position_id"`
}

// PositionClosedPayload describes a confirmed position close.
type PositionClosedPayload struct {
	AccountID  string `json:"account_id"`
	PositionID string `json:"position_id"`
	OrderID    string `json:"order_id"`
}

// Publisher publishes events to topics. Implementations must be safe for
// concurrent use by request handlers.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}
