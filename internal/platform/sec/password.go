// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

package sec

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// # Argon2id Parameters

// Fixed cost parameters for password hashing. Memory-hard so that offline
// brute-forcing is expensive even on GPU rigs.
const (
	// argonMemoryKB is the memory cost in KiB (64 MiB).
	argonMemoryKB uint32 = 64 * 1024
	// argonTime is the number of iterations.
	argonTime uint32 = 3
	// argonParallelism is the number of lanes.
	argonParallelism uint8 = 1
	// argonSaltLength is the random salt size in bytes.
	argonSaltLength = 16
	// argonKeyLength is the derived key size in bytes.
	argonKeyLength uint32 = 32
)

// hashPrefix is the algorithm tag every stored hash must carry.
const hashPrefix = "$argon2"

/*
HashPassword hashes a plain-text password using Argon2id.

Description: Derives a key with a fresh random salt and encodes the result
in the self-describing PHC string format
($argon2id$v=19$m=65536,t=3,p=1$<salt>$<digest>). Two calls with the same
input always produce different outputs.

Parameters:
  - plainTextPassword: string

Returns:
  - string: PHC-encoded hash
  - error: Entropy source failures only
*/
func HashPassword(plainTextPassword string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("sec: failed to generate salt: %w", err)
	}

	digest := argon2.IDKey(
		[]byte(plainTextPassword),
		salt,
		argonTime,
		argonMemoryKB,
		argonParallelism,
		argonKeyLength,
	)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemoryKB,
		argonTime,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return encoded, nil
}

/*
CheckPasswordHash compares a plain-text password with its stored Argon2id hash.

Description: Fail-closed boolean predicate. A missing hash, a hash without
the $argon2 prefix, or any decode/parse failure returns false — never an
error. Callers can treat legacy or corrupted rows as a plain mismatch.
The digest comparison itself is constant-time.

Parameters:
  - plainTextPassword: string
  - existingHash: string

Returns:
  - bool: true only when the password matches a well-formed stored hash
*/
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	if existingHash == "" || !strings.HasPrefix(existingHash, hashPrefix) {
		return false
	}

	parsed, err := parseArgonHash(existingHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey(
		[]byte(plainTextPassword),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.digest)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.digest) == 1
}

// parsedArgonHash holds the decoded components of a PHC hash string.
type parsedArgonHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	digest      []byte
}

// parseArgonHash decodes a PHC-formatted argon2id string.
func parseArgonHash(encodedHash string) (*parsedArgonHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}

	if parts[1] != "argon2id" {
		return nil, errors.New("unsupported algorithm")
	}

	if !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	parsed := &parsedArgonHash{}
	for _, pair := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("invalid parameter entry")
		}
		value, err := strconv.ParseUint(kv[1], 10, 32)
		if err != nil {
			return nil, errors.New("invalid parameter value")
		}
		switch kv[0] {
		case "m":
			parsed.memory = uint32(value)
		case "t":
			parsed.time = uint32(value)
		case "p":
			parsed.parallelism = uint8(value)
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if parsed.memory == 0 || parsed.time == 0 || parsed.parallelism == 0 {
		return nil, errors.New("missing parameters")
	}

	parsed.salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(parsed.salt) == 0 {
		return nil, errors.New("invalid salt encoding")
	}

	parsed.digest, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(parsed.digest) == 0 {
		return nil, errors.New("invalid digest encoding")
	}

	return parsed, nil
}
