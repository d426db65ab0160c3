package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRecoveryInvalid indicates a recovery code that is unknown, expired or
// does not match the email it was issued for.
var ErrRecoveryInvalid = errors.New("auth: invalid or expired recovery code")

// RecoveryStore keeps short-lived password recovery codes in Redis, one per
// email. Issuing a new code replaces any outstanding one.
type RecoveryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRecoveryStore constructs RecoveryStore.
func NewRecoveryStore(client *redis.Client, ttl time.Duration) *RecoveryStore {
	return &RecoveryStore{client: client, ttl: ttl}
}

// Issue generates a six digit code for the email and stores it with a TTL.
func (s *RecoveryStore) Issue(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	if err := s.client.Set(ctx, recoveryKey(email), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store recovery code: %w", err)
	}
	return code, nil
}

// Consume verifies the code for the email and deletes it on success. A code
// can be used exactly once.
func (s *RecoveryStore) Consume(ctx context.Context, email, code string) error {
	stored, err := s.client.Get(ctx, recoveryKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrRecoveryInvalid
		}
		return fmt.Errorf("load recovery code: %w", err)
	}
	if stored != code {
		return ErrRecoveryInvalid
	}
	return s.client.Del(ctx, recoveryKey(email)).Err()
}

func recoveryKey(email string) string {
	return "recovery:" + email
}
