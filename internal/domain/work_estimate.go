package domain

import "time"

const (
	MinEstimatedMinutes = 1
	MaxEstimatedMinutes = 480
)

// WorkEstimate is the expected on-site service duration for a single ticket.
// A ticket has at most one estimate.
type WorkEstimate struct {
	TicketID         string
	EstimatedMinutes int
	Notes            *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func ValidEstimatedMinutes(m int) bool {
	return m >= MinEstimatedMinutes && m <= MaxEstimatedMinutes
}
