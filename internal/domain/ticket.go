package domain

import "time"

// Represents a scheduled field visit.
// Tickets are owned by the ticketing side; Location is nil when the
// address was never geocoded.
type Ticket struct {
	ID            string
	ScheduledDate time.Time
	Location      *Coordinates
}
