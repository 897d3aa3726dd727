package domain

import "time"

// Notification is the payload pushed to connected clients. It has no identity
// and is not stored.
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Details   string    `json:"details"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
