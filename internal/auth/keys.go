// Package auth holds the two credential schemes the API speaks: hashed API
// keys for service callers and Firebase ID tokens for app clients.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// secretPrefix marks our keys so leaked-credential scanners can recognize
// them.
const secretPrefix = "rbk_"

var (
	ErrKeyNotFound = errors.New("auth: api key not found")
	ErrKeyRevoked  = errors.New("auth: api key revoked")
	ErrBadSecret   = errors.New("auth: malformed api key secret")
)

type APIKey struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	KeyHash   string
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (APIKey) TableName() string { return "rubbish.api_keys" }

// IssueKey mints a new key and stores only its bcrypt hash. The returned
// secret is shown once; it cannot be recovered later.
func IssueKey(ctx context.Context, d *gorm.DB, name string) (secret string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: generating key material: %w", err)
	}

	id := uuid.NewString()
	secret = secretPrefix + id + "." + hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing key: %w", err)
	}

	key := APIKey{ID: id, Name: name, KeyHash: string(hash)}
	if err := d.WithContext(ctx).Create(&key).Error; err != nil {
		return "", fmt.Errorf("auth: storing key %q: %w", name, err)
	}
	return secret, nil
}

// RevokeKey marks the named key unusable without deleting its audit trail.
func RevokeKey(ctx context.Context, d *gorm.DB, name string) error {
	now := time.Now()
	res := d.WithContext(ctx).Model(&APIKey{}).
		Where("name = ? AND revoked_at IS NULL", name).
		Update("revoked_at", &now)
	if res.Error != nil {
		return fmt.Errorf("auth: revoking key %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// splitSecret extracts the embedded key id so verification costs one primary
// key lookup plus one bcrypt compare, not a scan over every stored hash.
func splitSecret(secret string) (id string, err error) {
	rest, ok := strings.CutPrefix(secret, secretPrefix)
	if !ok {
		return "", ErrBadSecret
	}
	id, _, ok = strings.Cut(rest, ".")
	if !ok || id == "" {
		return "", ErrBadSecret
	}
	return id, nil
}

// KeyStore verifies API key secrets against the database. It satisfies
// middleware.KeyFetcher.
type KeyStore struct {
	db *gorm.DB
}

func NewKeyStore(d *gorm.DB) *KeyStore {
	return &KeyStore{db: d}
}

func (s *KeyStore) VerifyKey(ctx context.Context, secret string) (string, error) {
	id, err := splitSecret(secret)
	if err != nil {
		return "", err
	}

	var key APIKey
	if err := s.db.WithContext(ctx).First(&key, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("auth: loading key %s: %w", id, err)
	}
	if key.RevokedAt != nil {
		return "", ErrKeyRevoked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(secret)); err != nil {
		return "", ErrKeyNotFound
	}
	return key.Name, nil
}
