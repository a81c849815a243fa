package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	EventDistributionCompleted = "distribution.completed"
	EventRecurringMaterialized = "recurring.materialized"
)

// AutomationEvent notifies downstream consumers that the automation
// core created transactions for a user. It carries only summary data;
// consumers fetch details from storage.
type AutomationEvent struct {
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"`
	UserEmail string    `json:"user_email"`
	Count     int       `json:"count"`
	Total     string    `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAutomationEvent builds an event summarizing the created
// transactions. Total is the sum of their amounts.
func NewAutomationEvent(kind, userEmail string, created []core.Transaction) *AutomationEvent {
	total := decimal.Zero
	for _, t := range created {
		total = total.Add(t.Amount)
	}
	return &AutomationEvent{
		EventID:   uuid.NewString(),
		Kind:      kind,
		UserEmail: userEmail,
		Count:     len(created),
		Total:     total.StringFixed(2),
		Timestamp: time.Now(),
	}
}

func (e *AutomationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func AutomationEventFromJSON(data []byte) (*AutomationEvent, error) {
	var e AutomationEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
