package seed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sports-playlist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Empty(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

type mockMatchStore struct{ mock.Mock }

func (m *mockMatchStore) Put(ctx context.Context, match *domain.Match) error {
	return m.Called(ctx, match).Error(0)
}

var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func TestRun_EmptyStore_SeedsUsersAndMatches(t *testing.T) {
	us, ms := &mockUserStore{}, &mockMatchStore{}
	us.On("Empty", mock.Anything).Return(true, nil)
	us.On("Put", mock.Anything, mock.Anything).Return(nil)
	ms.On("Put", mock.Anything, mock.Anything).Return(nil)

	seeded, err := Run(context.Background(), Deps{
		UserRepo:   us,
		MatchRepo:  ms,
		BcryptCost: bcrypt.MinCost,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	assert.True(t, seeded)
	us.AssertNumberOfCalls(t, "Put", 2)
	ms.AssertNumberOfCalls(t, "Put", 4)

	admin := us.Calls[1].Arguments.Get(1).(*domain.User)
	assert.Equal(t, "admin", admin.Username)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("Admin123!")))

	first := ms.Calls[0].Arguments.Get(1).(*domain.Match)
	assert.Equal(t, "Liverpool vs Manchester United", first.Title)
	assert.Equal(t, now.Add(2*time.Hour), first.Date)
	assert.Equal(t, domain.MatchStatusLive, first.Status)
	require.NotNil(t, first.StreamURL)
	assert.Equal(t, "https://example.com/stream/live1", *first.StreamURL)
}

func TestRun_UsersPresent_Skips(t *testing.T) {
	us, ms := &mockUserStore{}, &mockMatchStore{}
	us.On("Empty", mock.Anything).Return(false, nil)

	seeded, err := Run(context.Background(), Deps{UserRepo: us, MatchRepo: ms})
	require.NoError(t, err)
	assert.False(t, seeded)
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRun_StoreFailure(t *testing.T) {
	us := &mockUserStore{}
	us.On("Empty", mock.Anything).Return(false, domain.ErrStore)

	_, err := Run(context.Background(), Deps{UserRepo: us})
	assert.True(t, errors.Is(err, domain.ErrStore))
}
