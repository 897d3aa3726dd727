package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/sports-playlist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(u *domain.User) (string, error) {
	args := m.Called(u)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func newService(us *mockUserStore, signer *mockSigner) Service {
	return NewService(ServiceDeps{UserRepo: us, JWTProvider: signer, BcryptCost: bcrypt.MinCost})
}

func baseReq() domain.RegisterRequest {
	return domain.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"}
}

// --- Register tests ---

func TestRegister_UsernameConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{}, nil)

	_, err := newService(us, nil).Register(context.Background(), baseReq())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Contains(t, err.Error(), "username")
	us.AssertExpectations(t)
}

func TestRegister_EmailConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(&domain.User{}, nil)

	_, err := newService(us, nil).Register(context.Background(), baseReq())

	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Contains(t, err.Error(), "email")
}

func TestRegister_LookupStoreError_Propagates(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrStore)

	_, err := newService(us, nil).Register(context.Background(), baseReq())

	assert.True(t, errors.Is(err, domain.ErrStore))
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_Success(t *testing.T) {
	us := &mockUserStore{}
	signer := &mockSigner{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Username == "alice" &&
			u.Role == domain.RoleUser &&
			u.UserID != "" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("password123")) == nil
	})).Return(nil)
	signer.On("Sign", mock.Anything).Return("signed.jwt", nil)

	resp, err := newService(us, signer).Register(context.Background(), baseReq())

	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.Equal(t, "signed.jwt", resp.Token)
	assert.NotEmpty(t, resp.UserID)
	us.AssertExpectations(t)
}

// --- Login tests ---

func storedUser(t *testing.T) *domain.User {
	t.Helper()
	u, err := NewUser("user1", "user1@example.com", "User123!", domain.RoleUser, bcrypt.MinCost)
	require.NoError(t, err)
	return u
}

func TestLogin_Success(t *testing.T) {
	u := storedUser(t)
	us := &mockUserStore{}
	signer := &mockSigner{}
	us.On("GetByUsername", mock.Anything, "user1").Return(u, nil)
	signer.On("Sign", u).Return("tok", nil)

	resp, err := newService(us, signer).Login(context.Background(), domain.LoginRequest{Username: "user1", Password: "User123!"})

	require.NoError(t, err)
	assert.Equal(t, u.UserID, resp.UserID)
	assert.Equal(t, "tok", resp.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "user1").Return(storedUser(t), nil)

	_, err := newService(us, nil).Login(context.Background(), domain.LoginRequest{Username: "user1", Password: "nope"})

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	assert.Contains(t, err.Error(), "invalid username or password")
}

func TestLogin_UnknownUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	_, err := newService(us, nil).Login(context.Background(), domain.LoginRequest{Username: "ghost", Password: "x"})

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_SignFailure(t *testing.T) {
	u := storedUser(t)
	us := &mockUserStore{}
	signer := &mockSigner{}
	us.On("GetByUsername", mock.Anything, "user1").Return(u, nil)
	signer.On("Sign", u).Return("", errors.New("no key"))

	_, err := newService(us, signer).Login(context.Background(), domain.LoginRequest{Username: "user1", Password: "User123!"})

	assert.ErrorContains(t, err, "sign token")
}
