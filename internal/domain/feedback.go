package domain

import "time"

// Feedback is a requester's rating of a resolved ticket.
type Feedback struct {
	ID        string
	TicketID  string
	UserID    string
	Rating    int
	Text      string
	CreatedAt time.Time
}
