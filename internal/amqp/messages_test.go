package amqp

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestNewAutomationEvent(t *testing.T) {
	created := []core.Transaction{
		{Amount: decimal.RequireFromString("750.00"), Category: "Food"},
		{Amount: decimal.RequireFromString("250.00"), Category: "Transport"},
	}

	event := NewAutomationEvent(EventDistributionCompleted, "ana@example.com", created)

	if event.EventID == "" {
		t.Error("EventID is empty")
	}
	if event.Kind != EventDistributionCompleted {
		t.Errorf("Kind = %q, want %q", event.Kind, EventDistributionCompleted)
	}
	if event.Count != 2 {
		t.Errorf("Count = %d, want 2", event.Count)
	}
	if event.Total != "1000.00" {
		t.Errorf("Total = %q, want 1000.00", event.Total)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestAutomationEventRoundTrip(t *testing.T) {
	event := &AutomationEvent{
		EventID:   "e-1",
		Kind:      EventRecurringMaterialized,
		UserEmail: "ana@example.com",
		Count:     1,
		Total:     "15.00",
		Timestamp: time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC),
	}

	body, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := AutomationEventFromJSON(body)
	if err != nil {
		t.Fatalf("AutomationEventFromJSON() error = %v", err)
	}
	if *got != *event {
		t.Errorf("round trip = %+v, want %+v", got, event)
	}
}

func TestAutomationEventFromJSONRejectsGarbage(t *testing.T) {
	if _, err := AutomationEventFromJSON([]byte("{not json")); err == nil {
		t.Error("AutomationEventFromJSON() error = nil for malformed input")
	}
}
