package enums

import "fmt"

// IdempotencyState tracks the lifecycle of one (scope, key) reservation.
type IdempotencyState string

const (
	IdempotencyStateInProgress IdempotencyState = "in_progress"
	IdempotencyStateCompleted  IdempotencyState = "completed"
)

var validIdempotencyStates = []IdempotencyState{
	IdempotencyStateInProgress,
	IdempotencyStateCompleted,
}

// IsValid reports whether the value matches the canonical idempotency state enum.
func (i IdempotencyState) IsValid() bool {
	for _, candidate := range validIdempotencyStates {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIdempotencyState converts the raw string to IdempotencyState.
func ParseIdempotencyState(value string) (IdempotencyState, error) {
	for _, candidate := range validIdempotencyStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid idempotency state %q", value)
}
