package mq

import "time"

// Routing keys on the habit.events exchange.
const (
	RoutingKeyCompletionToggled = "completion.toggled"
	RoutingKeyRoutineChanged    = "routine.changed"
	RoutingKeyHistoryCleared    = "history.cleared"
)

// RoutingKeys lists every key the analytics worker binds.
var RoutingKeys = []string{
	RoutingKeyCompletionToggled,
	RoutingKeyRoutineChanged,
	RoutingKeyHistoryCleared,
}

// HabitEvent is the envelope shared by all habit events. EventID doubles as
// the AMQP message id.
type HabitEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	UserID     int       `json:"user_id"`
	Date       string    `json:"date,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	TraceID    string    `json:"trace_id,omitempty"`

	Completion *CompletionToggledPayload `json:"completion,omitempty"`
	Routine    *RoutineChangedPayload    `json:"routine,omitempty"`
}

type CompletionToggledPayload struct {
	RoutineID string `json:"routine_id"`
	Completed bool   `json:"completed"`
}

// RoutineChangedPayload.Action is one of created, updated, deleted, reset.
type RoutineChangedPayload struct {
	RoutineID string `json:"routine_id,omitempty"`
	Action    string `json:"action"`
}
