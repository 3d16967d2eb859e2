package password

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

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPassBytes          = 10
	algorithmID           = "argon2id"

	// dummyPlaintext seeds the precomputed decoy hash used to equalize
	// verification cost for unknown identifiers.
	dummyPlaintext = "credlock-decoy-plaintext"
)

// Config defines a public type used by credlock APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 defines a public type used by credlock APIs.
//
// Argon2 instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Argon2 struct {
	config    Config
	dummyHash string
}

type phcFields struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

// NewArgon2 validates cfg against the hard parameter floors and
// precomputes the decoy hash for [Argon2.VerifyDummy].
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	a := &Argon2{config: cfg}

	dummy, err := a.Hash(dummyPlaintext)
	if err != nil {
		return nil, fmt.Errorf("precompute dummy hash: %w", err)
	}
	a.dummyHash = dummy

	return a, nil
}

// Hash derives an argon2id digest with a fresh random salt and returns
// it PHC-encoded. Identical passwords never produce identical output.
func (a *Argon2) Hash(plaintext string) (string, error) {
	// Raw string bytes exactly as provided (no Unicode normalization).
	if len(plaintext) < minPassBytes {
		return "", errors.New("password must be at least 10 bytes")
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		[]byte(plaintext),
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash),
	), nil
}

// Verify recomputes the digest using the cost parameters embedded in
// encodedHash and compares in constant time. The result does not depend
// on where a mismatch occurs.
func (a *Argon2) Verify(plaintext string, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(plaintext),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		parsed.keyLength,
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// VerifyDummy runs a full verification against the precomputed decoy
// hash and discards the result. Login flows call it when the identifier
// does not exist so unknown-user and wrong-password attempts spend
// statistically indistinguishable time.
func (a *Argon2) VerifyDummy(plaintext string) {
	_, _ = a.Verify(plaintext, a.dummyHash)
}

// NeedsUpgrade reports whether encodedHash was derived with weaker cost
// parameters than the current configuration. Used by upgrade-on-login.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	switch {
	case a.config.Memory > parsed.memory:
		return true, nil
	case a.config.Time > parsed.time:
		return true, nil
	case a.config.Parallelism > parsed.parallelism:
		return true, nil
	case a.config.KeyLength != parsed.keyLength:
		return true, nil
	}

	return false, nil
}

func parsePHC(encodedHash string) (*phcFields, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	if !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	fields := &phcFields{}
	if err := parseCostParams(parts[3], fields); err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	fields.salt = salt

	hash, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, errors.New("invalid hash")
	}
	fields.hash = hash
	fields.keyLength = uint32(len(hash))

	return fields, nil
}

func parseCostParams(part string, fields *phcFields) error {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return errors.New("invalid parameter format")
	}

	var haveMemory, haveTime, haveParallelism bool
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return errors.New("invalid parameter entry")
		}

		switch kv[0] {
		case "m":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return errors.New("invalid memory parameter")
			}
			fields.memory = uint32(v)
			haveMemory = true
		case "t":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return errors.New("invalid time parameter")
			}
			fields.time = uint32(v)
			haveTime = true
		case "p":
			v, err := strconv.ParseUint(kv[1], 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return errors.New("invalid parallelism parameter")
			}
			fields.parallelism = uint8(v)
			haveParallelism = true
		default:
			return errors.New("unsupported parameter")
		}
	}

	if !haveMemory || !haveTime || !haveParallelism {
		return errors.New("missing parameters")
	}

	return nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}

	return nil
}
