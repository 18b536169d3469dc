package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Dosada05/golf-society/migrate"
)

const (
	inviteTokenLength      = 16 // Длина токена в байтах (32 символа в hex)
	inviteTokenMaxAttempts = 3  // Попытки сгенерировать уникальный токен
)

var ErrInviteTokenGeneration = errors.New("failed to generate unique invite token")

func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// newTokenSource returns a migrate.TokenFunc that never hands out the same
// token twice within one migration run.
func newTokenSource(generate func(int) (string, error)) migrate.TokenFunc {
	issued := make(map[string]struct{})
	return func() (string, error) {
		for attempt := 0; attempt < inviteTokenMaxAttempts; attempt++ {
			token, err := generate(inviteTokenLength)
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrInviteTokenGeneration, err)
			}
			if _, dup := issued[token]; dup {
				continue
			}
			issued[token] = struct{}{}
			return token, nil
		}
		return "", fmt.Errorf("%w after %d attempts", ErrInviteTokenGeneration, inviteTokenMaxAttempts)
	}
}
