package file

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"trustid/pkg/platform/sentinel"
)

const (
	envelopeVersion = 1
	saltSize        = 16
	sealedPrefix    = "TRUSTID1\n"

	kdfName     = "argon2id"
	kdfTime     = 2
	kdfMemoryKB = 64 * 1024
	kdfThreads  = 1
)

var (
	errAuthFailed = errors.New("session record authentication failed")
	errUnsealed   = errors.New("session record is not sealed")
)

type envelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

func (e envelope) supported() bool {
	return e.Version == envelopeVersion &&
		e.KDF == kdfName &&
		e.KDFTime == kdfTime &&
		e.KDFMemoryKB == kdfMemoryKB &&
		e.KDFThreads == kdfThreads &&
		len(e.Salt) == saltSize &&
		len(e.Nonce) == chacha20poly1305.NonceSizeX
}

func seal(secret string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(secret), salt, kdfTime, kdfMemoryKB, kdfThreads, chacha20poly1305.KeySize)
	defer clear(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(envelope{
		Version:     envelopeVersion,
		KDF:         kdfName,
		KDFTime:     kdfTime,
		KDFMemoryKB: kdfMemoryKB,
		KDFThreads:  kdfThreads,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, plaintext, []byte(sealedPrefix)),
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(sealedPrefix), raw...), nil
}

// open reports sentinel.ErrCorrupt for anything that does not decrypt with
// secret, including plaintext records written without a secret.
func open(secret string, data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), sealedPrefix) {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrCorrupt, errUnsealed)
	}
	var env envelope
	if err := json.Unmarshal(data[len(sealedPrefix):], &env); err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrCorrupt, err)
	}
	if !env.supported() {
		return nil, fmt.Errorf("%w: unsupported envelope", sentinel.ErrCorrupt)
	}

	// The stored parameters are only checked; derivation always uses the
	// compiled-in cost.
	key := argon2.IDKey([]byte(secret), env.Salt, kdfTime, kdfMemoryKB, kdfThreads, chacha20poly1305.KeySize)
	defer clear(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, []byte(sealedPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrCorrupt, errAuthFailed)
	}
	return plaintext, nil
}
