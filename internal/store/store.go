package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"aimdot-bot/internal/constants"
)

var ErrNotFound = errors.New("document not found")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-.]+$`)

// Store persists whole documents under string keys. Multi-key updates are
// independent single-document writes.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, doc []byte) error
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid document key %q", key)
	}
	return nil
}

func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func GetJSON[T any](ctx context.Context, s Store, key string) (*T, error) {
	raw, err := s.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &doc, nil
}

func PutJSON(ctx context.Context, s Store, key string, doc any) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Write(ctx, key, raw)
}

// Namespaces counts keys under the well-known prefixes. Party keys exclude
// user records because party_ is a prefix of party_user_.
func Namespaces(ctx context.Context, s Store) (map[string]int, error) {
	parties, err := s.Keys(ctx, constants.PartyKeyPrefix)
	if err != nil {
		return nil, err
	}
	users, err := s.Keys(ctx, constants.UserRecordKeyPrefix)
	if err != nil {
		return nil, err
	}
	web, err := s.Keys(ctx, constants.WebUserKeyPrefix)
	if err != nil {
		return nil, err
	}
	return map[string]int{
		"parties":     len(parties) - len(users),
		"userRecords": len(users),
		"webUsers":    len(web),
	}, nil
}
