package validate

import (
	"errors"
	"testing"

	"github.com/sports-playlist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_Valid(t *testing.T) {
	err := Struct(&domain.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret123"})
	assert.NoError(t, err)
}

func TestStruct_UsesJSONNamesAndWrapsBadRequest(t *testing.T) {
	err := Struct(&domain.RegisterRequest{Username: "al", Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Contains(t, err.Error(), "username must be at least 3 characters")
	assert.Contains(t, err.Error(), "email must be a valid email address")
	assert.Contains(t, err.Error(), "password is required")
}

func TestStruct_PasswordUpperBound(t *testing.T) {
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	err := Struct(&domain.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: string(long)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password must be at most 72 characters")
}

func TestStruct_MatchStatusOneOf(t *testing.T) {
	url := "s3://streams/live1.m3u8"
	in := domain.MatchInput{Title: "Inter vs Milan", Competition: "Serie A", Status: "Delayed", StreamURL: &url}
	err := Struct(&in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status must be one of: Live Replay")
	assert.Contains(t, err.Error(), "date is required")
	assert.NotContains(t, err.Error(), "stream_url")
}
