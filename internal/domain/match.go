package domain

import "time"

// MatchStatus is the broadcast state of a match.
type MatchStatus string

const (
	MatchStatusLive   MatchStatus = "Live"
	MatchStatusReplay MatchStatus = "Replay"
)

// Valid reports whether s is a known status.
func (s MatchStatus) Valid() bool {
	return s == MatchStatusLive || s == MatchStatusReplay
}

type Match struct {
	MatchID     string      `json:"id" dynamodbav:"match_id"`
	Title       string      `json:"title" dynamodbav:"title"`
	Competition string      `json:"competition" dynamodbav:"competition"`
	Date        time.Time   `json:"date" dynamodbav:"date"`
	Status      MatchStatus `json:"status" dynamodbav:"status"`
	StreamURL   *string     `json:"stream_url" dynamodbav:"stream_url"`
}

type MatchInput struct {
	ID          string      `json:"id"`
	Title       string      `json:"title" validate:"required,max=100"`
	Competition string      `json:"competition" validate:"required,max=50"`
	Date        time.Time   `json:"date" validate:"required"`
	Status      MatchStatus `json:"status" validate:"required,oneof=Live Replay"`
	StreamURL   *string     `json:"stream_url" validate:"omitempty,url"`
}

// StatusChangeEvent describes one status transition made by a reconciliation pass.
// It is never persisted.
type StatusChangeEvent struct {
	MatchID    string
	MatchTitle string
	OldStatus  MatchStatus
	NewStatus  MatchStatus
}
