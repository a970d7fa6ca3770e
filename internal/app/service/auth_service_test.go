package service

import (
	"testing"
	"time"

	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/internal/app/repository"
	"github.com/pcforge/pcforge-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthServiceTest(t *testing.T) AuthService {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	userRepo := repository.NewUserRepository(testDB)
	return NewAuthService(
		userRepo,
		"test-jwt-secret",
		15*time.Minute,
		7*24*time.Hour,
	)
}

func TestAuthService_Register(t *testing.T) {
	authService := setupAuthServiceTest(t)

	tests := []struct {
		name     string
		email    string
		password string
		userName string
		address  string
		wantErr  error
	}{
		{
			name:     "Valid registration",
			email:    "test@example.com",
			password: "password123",
			userName: "Test User",
			address:  "123 Test Street",
			wantErr:  nil,
		},
		{
			name:     "Duplicate email",
			email:    "test@example.com",
			password: "password456",
			userName: "Another User",
			address:  "456 Test Street",
			wantErr:  ErrEmailAlreadyExists,
		},
		{
			name:     "Email without @",
			email:    "not-an-email",
			password: "password123",
			userName: "Test User",
			address:  "123 Test Street",
			wantErr:  ErrInvalidEmail,
		},
		{
			name:     "Email too short",
			email:    "a@b",
			password: "password123",
			userName: "Test User",
			address:  "123 Test Street",
			wantErr:  ErrInvalidEmail,
		},
		{
			name:     "Password too short",
			email:    "short@example.com",
			password: "1234567",
			userName: "Test User",
			address:  "123 Test Street",
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "Missing name",
			email:    "noname@example.com",
			password: "password123",
			userName: "   ",
			address:  "123 Test Street",
			wantErr:  ErrNameRequired,
		},
		{
			name:     "Missing address",
			email:    "noaddr@example.com",
			password: "password123",
			userName: "Test User",
			address:  "",
			wantErr:  ErrAddressRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, tokens, err := authService.Register(
				tt.email,
				tt.password,
				tt.userName,
				tt.address,
			)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				assert.Nil(t, tokens)
			} else {
				require.NoError(t, err)
				require.NotNil(t, user)
				require.NotNil(t, tokens)
				assert.Equal(t, tt.email, user.Email)
				assert.Equal(t, tt.userName, user.Name)
				assert.Equal(t, model.RoleUser, user.Role)
				assert.NotEmpty(t, tokens.AccessToken)
				assert.NotEmpty(t, tokens.RefreshToken)
				assert.NotEqual(t, tt.password, user.PasswordHash)
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	authService := setupAuthServiceTest(t)

	_, _, err := authService.Register("login@example.com", "password123", "Login User", "123 Test Street")
	require.NoError(t, err)

	t.Run("Valid credentials", func(t *testing.T) {
		user, tokens, err := authService.Login("login@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "login@example.com", user.Email)
		assert.NotEmpty(t, tokens.AccessToken)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, _, err := authService.Login("login@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown email", func(t *testing.T) {
		_, _, err := authService.Login("missing@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_GetUserByID(t *testing.T) {
	authService := setupAuthServiceTest(t)

	registered, _, err := authService.Register("get@example.com", "password123", "Get User", "123 Test Street")
	require.NoError(t, err)

	user, err := authService.GetUserByID(registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "get@example.com", user.Email)

	_, err = authService.GetUserByID(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	authService := setupAuthServiceTest(t)

	registered, _, err := authService.Register("update@example.com", "password123", "Old Name", "Old Street")
	require.NoError(t, err)

	user, err := authService.UpdateProfile(registered.ID, "New Name", "New Street")
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.Name)
	assert.Equal(t, "New Street", user.Address)

	// Empty fields leave the profile untouched
	user, err = authService.UpdateProfile(registered.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.Name)
	assert.Equal(t, "New Street", user.Address)

	_, err = authService.UpdateProfile(9999, "Name", "Street")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
