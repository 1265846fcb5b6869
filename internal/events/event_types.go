package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/fdbank/deposit-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCustomerRegistered EventType = "customer_registered"
	EventDepositInvested    EventType = "deposit_invested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, userID, actor string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// CustomerRegisteredPayload payload.
type CustomerRegisteredPayload struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
}

// DepositInvestedPayload payload.
type DepositInvestedPayload struct {
	Reference      string    `json:"reference"`
	Principal      float64   `json:"principal"`
	Rate           float64   `json:"rate"`
	TenureInMonths int       `json:"tenure_in_months"`
	MaturityAmount float64   `json:"maturity_amount"`
	MaturesAt      time.Time `json:"matures_at"`
}
