package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

const envelopePrefix = "enc:v1:"

var (
	// ErrInvalidKey is returned for keys that are not 32 bytes long.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")

	// ErrNotEncrypted is returned when a stored value is not an encryption envelope.
	ErrNotEncrypted = errors.New("state value is missing its encryption envelope")
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new values. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt a value.
	// They allow rotating keys without rewriting the store.
	FallbackKeys [][]byte
}

// DecodeKey parses a base64 encoded AES-256 key.
func DecodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 key: %w", err)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return key, nil
}

type encryptionMiddleware struct {
	next   ports.StateStore
	config EncryptionConfig
}

// NewEncryptionMiddleware encrypts every state value with AES-GCM.
// The wrapped store only sees opaque string envelopes; keys stay in clear so Keys and Delete work unchanged.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrInvalidKey
	}
	for _, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, ErrInvalidKey
		}
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) seal(v domain.Value) (domain.Value, error) {
	if v == nil {
		v = domain.Null()
	}
	plainText, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", domain.ErrNotSerializable)
	}
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt state: %w", err)
	}
	return domain.Str(envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext)), nil
}

func (m *encryptionMiddleware) open(v domain.Value) (domain.Value, error) {
	s, ok := domain.Raw(v).(string)
	if !ok || !strings.HasPrefix(s, envelopePrefix) {
		return nil, ErrNotEncrypted
	}
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, envelopePrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state: %w", err)
	}
	var raw any
	if err := json.Unmarshal(plainText, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted state: %w", err)
	}
	return domain.FromAny(raw)
}

func (m *encryptionMiddleware) Get(ctx context.Context, scriptID, key string) (domain.Value, error) {
	v, err := m.next.Get(ctx, scriptID, key)
	if err != nil {
		return nil, err
	}
	return m.open(v)
}

func (m *encryptionMiddleware) Set(ctx context.Context, scriptID, key string, value domain.Value) error {
	sealed, err := m.seal(value)
	if err != nil {
		return err
	}
	return m.next.Set(ctx, scriptID, key, sealed)
}

func (m *encryptionMiddleware) GetOrCreate(ctx context.Context, scriptID, key string, create func() domain.Value) (domain.Value, error) {
	var sealErr error
	v, err := m.next.GetOrCreate(ctx, scriptID, key, func() domain.Value {
		sealed, err := m.seal(create())
		if err != nil {
			sealErr = err
			return domain.Null()
		}
		return sealed
	})
	if sealErr != nil {
		return nil, sealErr
	}
	if err != nil {
		return nil, err
	}
	return m.open(v)
}

func (m *encryptionMiddleware) Update(ctx context.Context, scriptID, key string, fn func(domain.Value) (domain.Value, error)) (domain.Value, error) {
	v, err := m.next.Update(ctx, scriptID, key, func(current domain.Value) (domain.Value, error) {
		if current != nil {
			plain, err := m.open(current)
			if err != nil {
				return nil, err
			}
			current = plain
		}
		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		return m.seal(next)
	})
	if err != nil {
		return nil, err
	}
	return m.open(v)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, scriptID, key string) error {
	return m.next.Delete(ctx, scriptID, key)
}

func (m *encryptionMiddleware) Keys(ctx context.Context, scriptID string) ([]string, error) {
	return m.next.Keys(ctx, scriptID)
}

func (m *encryptionMiddleware) Clear(ctx context.Context, scriptID string) error {
	return m.next.Clear(ctx, scriptID)
}

func (m *encryptionMiddleware) Close() error {
	return closeNext(m.next)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
