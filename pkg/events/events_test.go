package events

import (
	"testing"
)

func TestNewEvent(t *testing.T) {
	payload := TradeExecutedPayload{
		AccountID: "acct-1",
		Symbol:    "EURUSD",
		Direction: "BUY",
		Volume:    0.1,
	}

	e := NewEvent(EventTypeTradeExecuted, "metaapi-gateway", payload)

	if e.EventID == "" {
		t.Error("EventID should be auto-generated")
	}
	if e.EventType != EventTypeTradeExecuted {
		t.Errorf("EventType = %s, want %s", e.EventType, EventTypeTradeExecuted)
	}
	if e.OccurredAt.IsZero() {
		t.Error("OccurredAt should be set")
	}
	if e.Source != "metaapi-gateway" {
		t.Errorf("Source = %s, want metaapi-gateway", e.Source)
	}
}

func TestEvent_WithCorrelationID(t *testing.T) {
	e := NewEvent(EventTypePositionClosed, "metaapi-gateway", nil).
		WithCorrelationID("req-123")

	if e.CorrelationID != "req-123" {
		t.Errorf("CorrelationID = %s, want req-123", e.CorrelationID)
	}
}

func TestKafkaPublisher_WriterReuse(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"})
	defer p.Close()

	w1 := p.getWriter(TopicTradeExecuted)
	w2 := p.getWriter(TopicTradeExecuted)
	if w1 != w2 {
		t.Error("getWriter should reuse the writer for a topic")
	}

	w3 := p.getWriter(TopicPositionClosed)
	if w3 == w1 {
		t.Error("distinct topics should get distinct writers")
	}
}

func TestTopics(t *testing.T) {
	for _, topic := range []string{TopicTradeExecuted, TopicPositionClosed} {
		if topic == "" {
			t.Error("topic should not be empty")
		}
	}
}
