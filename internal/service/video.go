package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// VideoProvisioner выпускает реквизиты видеосессии: идентификатор сессии
// и подписанный токен, привязанный к конкретной записи и участнику.
type VideoProvisioner struct {
	signingKey string
}

func NewVideoProvisioner(signingKey string) *VideoProvisioner {
	return &VideoProvisioner{signingKey: signingKey}
}

func (p *VideoProvisioner) NewSessionID() string {
	return uuid.New().String()
}

type videoClaims struct {
	jwt.RegisteredClaims
	AppointmentID int64  `json:"appointment_id"`
	UserID        int64  `json:"user_id"`
	SessionID     string `json:"session_id"`
}

// MintToken подписывает токен со сроком действия до конца приема.
func (p *VideoProvisioner) MintToken(appointmentID, userID int64, sessionID string, expiresAt time.Time) (string, error) {
	claims := videoClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		AppointmentID: appointmentID,
		UserID:        userID,
		SessionID:     sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(p.signingKey))
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена видеосессии: %w", err)
	}

	return signed, nil
}
