// Package file keeps the session record in a single file on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"trustid/pkg/platform/sentinel"
)

const (
	fileName = "kyc_user.json"
	fileMode = 0o600
	dirMode  = 0o700
)

// Store writes the record atomically (temp file then rename). When a secret is
// set, the record is sealed with XChaCha20-Poly1305 under an argon2id key.
type Store struct {
	path   string
	secret string
}

type Option func(*Store)

// WithSecret seals records with secret. Records written without it become
// unreadable.
func WithSecret(secret string) Option {
	return func(s *Store) {
		s.secret = secret
	}
}

func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("session directory is required")
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	s := &Store{path: filepath.Join(dir, fileName)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path is where the record lives.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session record: %w", err)
	}
	if s.secret == "" {
		return data, nil
	}
	return open(s.secret, data)
}

func (s *Store) Save(_ context.Context, data []byte) error {
	if s.secret != "" {
		sealed, err := seal(s.secret, data)
		if err != nil {
			return fmt.Errorf("seal session record: %w", err)
		}
		data = sealed
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+fileName+".*")
	if err != nil {
		return fmt.Errorf("create temp session record: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after a successful rename

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync session record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session record: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace session record: %w", err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session record: %w", err)
	}
	return nil
}
