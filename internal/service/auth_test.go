package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"coursepdf/internal/model"
	"coursepdf/internal/repository"
	repoMocks "coursepdf/internal/repository/mocks"
)

var testSecret = []byte("unit-test-secret")

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	valid := RegisterInput{
		Username:        "alice",
		Email:           "alice@example.edu",
		Password:        "correct horse",
		PasswordConfirm: "correct horse",
	}

	t.Run("happy path stores a bcrypt hash and ensures the profile", func(t *testing.T) {
		mUsers := new(repoMocks.MockUserRepository)
		mProfiles := new(repoMocks.MockProfileRepository)
		svc := NewAuthService(mUsers, mProfiles, testSecret, time.Hour)

		mUsers.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
			if u.Username != "alice" || u.PasswordHash == valid.Password {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(valid.Password)) == nil
		})).Return(&model.User{ID: "user-1", Username: "alice"}, nil)
		mProfiles.On("Ensure", ctx, "user-1").Return(&model.UserProfile{UserID: "user-1"}, nil)

		user, err := svc.Register(ctx, valid)

		assert.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		mUsers.AssertExpectations(t)
		mProfiles.AssertExpectations(t)
	})

	t.Run("blank username", func(t *testing.T) {
		svc := NewAuthService(new(repoMocks.MockUserRepository), new(repoMocks.MockProfileRepository), testSecret, time.Hour)

		in := valid
		in.Username = "  "
		_, err := svc.Register(ctx, in)

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("short password", func(t *testing.T) {
		svc := NewAuthService(new(repoMocks.MockUserRepository), new(repoMocks.MockProfileRepository), testSecret, time.Hour)

		in := valid
		in.Password, in.PasswordConfirm = "short", "short"
		_, err := svc.Register(ctx, in)

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("password mismatch", func(t *testing.T) {
		svc := NewAuthService(new(repoMocks.MockUserRepository), new(repoMocks.MockProfileRepository), testSecret, time.Hour)

		in := valid
		in.PasswordConfirm = "something else"
		_, err := svc.Register(ctx, in)

		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "passwords do not match")
	})

	t.Run("taken username is a conflict", func(t *testing.T) {
		mUsers := new(repoMocks.MockUserRepository)
		svc := NewAuthService(mUsers, new(repoMocks.MockProfileRepository), testSecret, time.Hour)

		mUsers.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicateUsername)

		_, err := svc.Register(ctx, valid)

		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{ID: "user-1", Username: "alice", PasswordHash: string(hash)}

	t.Run("issues a parseable token with the user id as subject", func(t *testing.T) {
		mUsers := new(repoMocks.MockUserRepository)
		svc := NewAuthService(mUsers, new(repoMocks.MockProfileRepository), testSecret, time.Hour)

		mUsers.On("FindByUsername", ctx, "alice").Return(user, nil)

		signed, err := svc.Login(ctx, "alice", "correct horse")

		require.NoError(t, err)
		require.NotEmpty(t, signed)

		claims := &jwt.RegisteredClaims{}
		_, err = jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
			return testSecret, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.True(t, claims.ExpiresAt.After(time.Now()))
	})

	t.Run("unknown user", func(t *testing.T) {
		mUsers := new(repoMocks.MockUserRepository)
		svc := NewAuthService(mUsers, new(repoMocks.MockProfileRepository), testSecret, time.Hour)

		mUsers.On("FindByUsername", ctx, "nobody").Return(nil, sql.ErrNoRows)

		_, err := svc.Login(ctx, "nobody", "whatever")

		// Unknown user and wrong password are indistinguishable to the caller.
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		mUsers := new(repoMocks.MockUserRepository)
		svc := NewAuthService(mUsers, new(repoMocks.MockProfileRepository), testSecret, time.Hour)

		mUsers.On("FindByUsername", ctx, "alice").Return(user, nil)

		_, err := svc.Login(ctx, "alice", "wrong")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
