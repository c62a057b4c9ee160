package session

import (
	"bytes"
	"encoding/json"
	"fmt"

	"trustid/internal/domain"
	"trustid/pkg/platform/sentinel"
)

// tombstone marks a record that was signed out but could not be erased.
var tombstone = []byte("null")

func isTombstone(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), tombstone)
}

func encodeIdentity(identity domain.Identity) ([]byte, error) {
	data, err := json.Marshal(identity)
	if err != nil {
		return nil, fmt.Errorf("encode session record: %w", err)
	}
	return data, nil
}

// decodeIdentity accepts only a record that would have been a valid identity
// when written.
func decodeIdentity(data []byte) (domain.Identity, error) {
	var identity domain.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return domain.Identity{}, fmt.Errorf("decode session record: %w: %w", sentinel.ErrCorrupt, err)
	}
	if !identity.Valid() {
		return domain.Identity{}, fmt.Errorf("session record incomplete: %w", sentinel.ErrCorrupt)
	}
	role, _ := domain.ParseRole(string(identity.Role))
	identity.Role = role
	return identity, nil
}
