package domain

import "time"

// Domain is the top-level classification of a category (a department).
type Domain struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// Scope is a sub-unit within a domain.
type Scope struct {
	ID        string
	DomainID  string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// Category groups tickets and carries the SLA used for deadlines.
type Category struct {
	ID        string
	Name      string
	DomainID  string
	SLAHours  float64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
