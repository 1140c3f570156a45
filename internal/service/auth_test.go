package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"telemed/config"
	"telemed/internal/domain"
)

var testJWT = config.JWTConfig{
	SigningKey:      "test-signing-key",
	AccessTokenTTL:  15 * time.Minute,
	RefreshTokenTTL: 24 * time.Hour,
}

type authFixture struct {
	service  *AuthServiceImpl
	users    *fakeUserRepo
	sessions *fakeAuthRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := newFakeUserRepo()
	sessions := newFakeAuthRepo()

	return &authFixture{
		service:  NewAuthService(sessions, users, testJWT, zap.NewNop()),
		users:    users,
		sessions: sessions,
	}
}

func (f *authFixture) addUser(t *testing.T, email, password string, role domain.UserRole) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{
		ID:           int64(len(f.users.users) + 1),
		Email:        email,
		Name:         "Тест Тестов",
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	f.users.users[user.ID] = user
	return user
}

func TestAuthService_Register(t *testing.T) {
	t.Run("регистрация пациента", func(t *testing.T) {
		f := newAuthFixture(t)

		id, err := f.service.Register(context.Background(), domain.RegisterRequest{
			Email:    "patient@test.ru",
			Name:     "иван петров",
			Password: "Secret123",
			Role:     domain.UserRolePatient,
		})
		require.NoError(t, err)

		user := f.users.users[id]
		require.NotNil(t, user)
		assert.Equal(t, "Иван Петров", user.Name)
		assert.NotEqual(t, "Secret123", user.PasswordHash)
	})

	t.Run("регистрация врача с профилем", func(t *testing.T) {
		f := newAuthFixture(t)

		id, err := f.service.Register(context.Background(), domain.RegisterRequest{
			Email:    "doctor@test.ru",
			Name:     "Анна Сидорова",
			Password: "Secret123",
			Role:     domain.UserRoleDoctor,
			Doctor: &domain.DoctorProfileDTO{
				Specialty:  "Кардиолог",
				Experience: 7,
			},
		})
		require.NoError(t, err)

		user := f.users.users[id]
		require.NotNil(t, user)
		assert.Equal(t, "Кардиолог", user.Specialty)
		assert.Equal(t, domain.VerificationStatusPending, user.VerificationStatus)
	})

	t.Run("врач без профиля", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.service.Register(context.Background(), domain.RegisterRequest{
			Email:    "doctor@test.ru",
			Name:     "Анна Сидорова",
			Password: "Secret123",
			Role:     domain.UserRoleDoctor,
		})
		assert.Error(t, err)
	})

	t.Run("повторная регистрация email", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, "patient@test.ru", "Secret123", domain.UserRolePatient)

		_, err := f.service.Register(context.Background(), domain.RegisterRequest{
			Email:    "patient@test.ru",
			Name:     "Иван Петров",
			Password: "Secret123",
			Role:     domain.UserRolePatient,
		})
		assert.Error(t, err)
	})

	t.Run("некорректный email", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.service.Register(context.Background(), domain.RegisterRequest{
			Email:    "не-email",
			Name:     "Иван Петров",
			Password: "Secret123",
			Role:     domain.UserRolePatient,
		})
		assert.Error(t, err)
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Run("успешный вход и разбор токена", func(t *testing.T) {
		f := newAuthFixture(t)
		user := f.addUser(t, "patient@test.ru", "Secret123", domain.UserRolePatient)

		tokens, err := f.service.Login(context.Background(), domain.LoginRequest{
			Login:    "patient@test.ru",
			Password: "Secret123",
		}, "test-agent", "127.0.0.1")
		require.NoError(t, err)

		assert.NotEmpty(t, tokens.AccessToken)
		assert.NotEmpty(t, tokens.RefreshToken)
		assert.Len(t, f.sessions.sessions, 1)

		userID, role, err := f.service.ParseToken(context.Background(), tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, userID)
		assert.Equal(t, domain.UserRolePatient, role)
	})

	t.Run("неверный пароль", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, "patient@test.ru", "Secret123", domain.UserRolePatient)

		_, err := f.service.Login(context.Background(), domain.LoginRequest{
			Login:    "patient@test.ru",
			Password: "другой-пароль",
		}, "", "")
		assert.Error(t, err)
	})

	t.Run("деактивированный аккаунт", func(t *testing.T) {
		f := newAuthFixture(t)
		user := f.addUser(t, "patient@test.ru", "Secret123", domain.UserRolePatient)
		user.IsActive = false

		_, err := f.service.Login(context.Background(), domain.LoginRequest{
			Login:    "patient@test.ru",
			Password: "Secret123",
		}, "", "")
		assert.Error(t, err)
	})
}

func TestAuthService_RefreshTokens(t *testing.T) {
	t.Run("обновление ротирует сессию", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, "patient@test.ru", "Secret123", domain.UserRolePatient)

		tokens, err := f.service.Login(context.Background(), domain.LoginRequest{
			Login:    "patient@test.ru",
			Password: "Secret123",
		}, "", "")
		require.NoError(t, err)

		refreshed, err := f.service.RefreshTokens(context.Background(), tokens.RefreshToken, "", "")
		require.NoError(t, err)

		assert.NotEmpty(t, refreshed.AccessToken)

		// Старая сессия удалена, хранится ровно одна — с новым refresh token.
		require.Len(t, f.sessions.sessions, 1)
		for _, session := range f.sessions.sessions {
			assert.Equal(t, refreshed.RefreshToken, session.RefreshToken)
		}
	})

	t.Run("неизвестный refresh token", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.service.RefreshTokens(context.Background(), "неизвестный", "", "")
		assert.Error(t, err)
	})
}

func TestAuthService_Logout(t *testing.T) {
	t.Run("выход удаляет сессию", func(t *testing.T) {
		f := newAuthFixture(t)
		f.addUser(t, "patient@test.ru", "Secret123", domain.UserRolePatient)

		tokens, err := f.service.Login(context.Background(), domain.LoginRequest{
			Login:    "patient@test.ru",
			Password: "Secret123",
		}, "", "")
		require.NoError(t, err)

		require.NoError(t, f.service.Logout(context.Background(), tokens.RefreshToken))
		assert.Empty(t, f.sessions.sessions)
	})

	t.Run("выход без сессии не ошибка", func(t *testing.T) {
		f := newAuthFixture(t)

		assert.NoError(t, f.service.Logout(context.Background(), "неизвестный"))
	})
}
