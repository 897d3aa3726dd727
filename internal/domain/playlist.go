package domain

import "time"

// PlaylistEntry bookmarks one match for one user.
// PK: user_id, SK: match_id.
type PlaylistEntry struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	MatchID   string    `json:"match_id" dynamodbav:"match_id"`
	DateAdded time.Time `json:"date_added" dynamodbav:"date_added"`
}
