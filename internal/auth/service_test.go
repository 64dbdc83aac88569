package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"live-app/internal/apperrors"
	"live-app/internal/config"
	"live-app/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{JWT: config.JWTConfig{Secret: []byte("test-secret"), ExpiresIn: time.Hour}}
}

func TestRegister_IssuesTokenForNewUser(t *testing.T) {
	req := require.New(t)
	repo := new(mockUserRepo)
	repo.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.RegisterRequest")).
		Return(&models.User{ID: 7, Username: "alice", Email: "alice@example.com", PasswordHash: "x"}, nil)
	repo.On("GetUserByID", mock.Anything, 7).
		Return(&models.User{ID: 7, Username: "alice", Email: "alice@example.com"}, nil)
	svc := NewService(repo, testConfig())

	resp, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: "  alice ", Email: "alice@example.com", Password: "correct-horse",
	})

	req.NoError(err)
	req.NotEmpty(resp.Token)
	req.Empty(resp.User.PasswordHash)

	user, err := svc.GetUserFromToken(context.Background(), resp.Token)
	req.NoError(err)
	req.Equal(7, user.ID)
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	cases := map[string]models.RegisterRequest{
		"short password": {Username: "alice", Email: "alice@example.com", Password: "short"},
		"bad email":      {Username: "alice", Email: "not-an-email", Password: "correct-horse"},
		"short username": {Username: "al", Email: "alice@example.com", Password: "correct-horse"},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			repo := new(mockUserRepo)
			svc := NewService(repo, testConfig())

			_, err := svc.Register(context.Background(), &r)

			require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
			repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
		})
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := new(mockUserRepo)
	repo.On("GetUserByEmail", mock.Anything, "bob@example.com").
		Return(&models.User{ID: 3, Username: "bob", Email: "bob@example.com", PasswordHash: string(hash)}, nil)
	svc := NewService(repo, testConfig())

	t.Run("valid password", func(t *testing.T) {
		resp, err := svc.Login(context.Background(), &models.LoginRequest{Email: "bob@example.com", Password: "correct-horse"})
		require.NoError(t, err)
		require.NotEmpty(t, resp.Token)
		require.Empty(t, resp.User.PasswordHash)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), &models.LoginRequest{Email: "bob@example.com", Password: "nope-nope"})
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("email is normalized", func(t *testing.T) {
		_, err := svc.Login(context.Background(), &models.LoginRequest{Email: " Bob@Example.com ", Password: "correct-horse"})
		require.NoError(t, err)
	})
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := new(mockUserRepo)
	repo.On("GetUserByEmail", mock.Anything, "ghost@example.com").
		Return(nil, fmt.Errorf("user ghost@example.com: %w", apperrors.ErrNotFound))
	svc := NewService(repo, testConfig())

	_, err := svc.Login(context.Background(), &models.LoginRequest{Email: "ghost@example.com", Password: "whatever"})

	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestParseToken_RejectsForeignSignature(t *testing.T) {
	other := NewService(new(mockUserRepo), &config.Config{JWT: config.JWTConfig{Secret: []byte("other"), ExpiresIn: time.Hour}})
	token, err := other.generateToken(&models.User{ID: 1})
	require.NoError(t, err)

	_, err = NewService(new(mockUserRepo), testConfig()).ParseToken(token)

	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestParseToken_Expired(t *testing.T) {
	req := require.New(t)
	svc := NewService(new(mockUserRepo), testConfig())
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	token, err := svc.generateToken(&models.User{ID: 5})
	req.NoError(err)

	claims, err := svc.ParseToken(token)
	req.NoError(err)
	req.Equal(5, claims.UserID)

	// Given the clock moves past the one hour expiry
	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }

	_, err = svc.ParseToken(token)
	req.ErrorIs(err, apperrors.ErrUnauthorized)
}

func TestGetUserFromToken_DeletedUser(t *testing.T) {
	repo := new(mockUserRepo)
	repo.On("GetUserByID", mock.Anything, 9).Return(nil, fmt.Errorf("user 9: %w", apperrors.ErrNotFound))
	svc := NewService(repo, testConfig())
	token, err := svc.generateToken(&models.User{ID: 9})
	require.NoError(t, err)

	_, err = svc.GetUserFromToken(context.Background(), token)

	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
