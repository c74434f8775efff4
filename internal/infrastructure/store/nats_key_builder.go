// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/akamensky/base58"
	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// Common key prefixes
const (
	KeyPrefixSession    = "session"
	KeyPrefixEntry      = "entry"
	KeyPrefixSkippedDay = "skipped"

	KeyPrefixIndex         = "index"
	KeyPrefixIndexActivity = "activity"
)

// KeyBuilder provides utilities for building consistent NATS KV keys.
//
// Encoded keys carry arbitrary identifiers: every "/" separated part is base58
// encoded and the parts are joined with ".", so the result only uses characters
// NATS accepts and the encoded key of a prefix is a prefix of the encoded key.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with an optional prefix
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
	}
}

// EntityKey builds a key for an entity (e.g., "session/uid-123")
func (kb *KeyBuilder) EntityKey(entityType, uid string) string {
	return kb.applyPrefix(fmt.Sprintf("%s/%s", entityType, uid), false)
}

// EntityKeyEncoded builds an encoded key for an entity
func (kb *KeyBuilder) EntityKeyEncoded(entityType, uid string) string {
	return kb.applyPrefix(fmt.Sprintf("%s/%s", entityType, uid), true)
}

// IndexKeyEncoded builds an encoded index key from its parts
// (e.g., "index/activity/<activity>/<group>/<unix>/<session>").
func (kb *KeyBuilder) IndexKeyEncoded(indexType string, parts ...string) string {
	key := strings.Join(append([]string{KeyPrefixIndex, indexType}, parts...), "/")
	return kb.applyPrefix(key, true)
}

// CompoundKeyEncoded builds an encoded key from multiple parts.
func (kb *KeyBuilder) CompoundKeyEncoded(parts ...string) string {
	return kb.applyPrefix(strings.Join(parts, "/"), true)
}

// PrefixEncoded returns the encoded form of the leading parts followed by the
// part separator, for filtering encoded keys by prefix.
func (kb *KeyBuilder) PrefixEncoded(parts ...string) string {
	return kb.applyPrefix(strings.Join(parts, "/"), true) + "."
}

func (kb *KeyBuilder) applyPrefix(key string, encode bool) string {
	fullKey := key
	if kb.prefix != "" {
		fullKey = fmt.Sprintf("%s/%s", kb.prefix, key)
	}

	if !encode {
		return fullKey
	}
	encodedKey, err := kb.EncodeKey(fullKey)
	if err != nil {
		slog.Error("error encoding key", logging.ErrKey, err, "key", fullKey)
		return fullKey
	}
	return encodedKey
}

// EncodeKey encodes a "/" separated key for the NATS KV store.
// The wildcards ">" and "*" are kept as-is.
//
// NATS limitations: https://docs.nats.io/nats-concepts/jetstream/key-value-store#notes
func (kb *KeyBuilder) EncodeKey(key string) (string, error) {
	parts := strings.Split(strings.TrimPrefix(key, "/"), "/")
	res := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == ">" || part == "*" {
			res = append(res, part)
			continue
		}
		if part == "" {
			return "", nats.ErrInvalidKey
		}
		res = append(res, base58.Encode([]byte(part)))
	}

	return strings.Join(res, "."), nil
}

// DecodeKey reverses EncodeKey. The result has a leading "/".
func (kb *KeyBuilder) DecodeKey(key string) (string, error) {
	parts, err := kb.DecodeParts(key)
	if err != nil {
		return "", err
	}
	return "/" + strings.Join(parts, "/"), nil
}

// DecodeParts decodes each part of an encoded key.
func (kb *KeyBuilder) DecodeParts(key string) ([]string, error) {
	if key == "" {
		return nil, nats.ErrInvalidKey
	}
	encoded := strings.Split(key, ".")
	res := make([]string, 0, len(encoded))
	for _, part := range encoded {
		k, err := base58.Decode(part)
		if err != nil {
			return nil, err
		}
		res = append(res, string(k))
	}
	return res, nil
}
