package booking

import "fmt"

// Status represents the current state of a booking in its lifecycle.
type Status string

const (
	StatusRequested       Status = "requested"
	StatusAccepted        Status = "accepted"
	StatusOnTheWay        Status = "on_the_way"
	StatusInProgress      Status = "in_progress"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusCompleted       Status = "completed"
	StatusDeclined        Status = "declined"
	StatusCancelled       Status = "cancelled"
)

// Deprecated aliases still present in stored rows and old clients.
// "pending" predates "requested"; "pro_en_route" predates "on_the_way".
const (
	legacyStatusPending = "pending"
	legacyStatusEnRoute = "pro_en_route"
)

// validTransitions defines the state machine for booking status transitions.
var validTransitions = map[Status][]Status{
	StatusRequested:       {StatusAccepted, StatusDeclined, StatusCancelled},
	StatusAccepted:        {StatusOnTheWay, StatusInProgress, StatusCancelled},
	StatusOnTheWay:        {StatusInProgress, StatusCancelled},
	StatusInProgress:      {StatusAwaitingPayment, StatusCancelled},
	StatusAwaitingPayment: {StatusCompleted, StatusCancelled},
	StatusCompleted:       {},
	StatusDeclined:        {},
	StatusCancelled:       {},
}

// IsValid returns true if the status is a recognized booking status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// CanBeCancelled returns true if the booking can be cancelled from this status.
func (s Status) CanBeCancelled() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// AllowsPaymentAuthorization returns true if a payment intent may be created
// or reused while the booking is in this status.
func (s Status) AllowsPaymentAuthorization() bool {
	switch s {
	case StatusAccepted, StatusOnTheWay, StatusInProgress, StatusAwaitingPayment:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// StoredNames returns every string form the status may take in persisted
// rows: the canonical name plus any deprecated alias. Writes that filter on
// a previously-read status must match all of them, or rows persisted under
// an alias could never transition.
func (s Status) StoredNames() []string {
	switch s {
	case StatusRequested:
		return []string{string(StatusRequested), legacyStatusPending}
	case StatusOnTheWay:
		return []string{string(StatusOnTheWay), legacyStatusEnRoute}
	}
	return []string{string(s)}
}

// ParseStatus converts a stored or client-supplied string to a Status.
// Legacy aliases are normalized to their canonical names.
func ParseStatus(s string) (Status, error) {
	switch s {
	case legacyStatusPending:
		return StatusRequested, nil
	case legacyStatusEnRoute:
		return StatusOnTheWay, nil
	}
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
