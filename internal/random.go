package internal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
)

// ID is a 128-bit random identifier used for both refresh families and
// the per-generation session records inside a family.
type ID [16]byte

const credentialRawSize = 16 + 16 + 8

// ErrCredentialMalformed is returned when a refresh credential fails
// structural decoding.
var ErrCredentialMalformed = errors.New("malformed refresh credential")

func NewID() (ID, error) {
	var id ID
	_, err := rand.Read(id[:])
	return id, err
}

func (id ID) Bytes() []byte {
	return id[:]
}

func (id ID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(id[:])
}

func ParseID(s string) (ID, error) {
	var id ID

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid id size")
	}

	copy(id[:], raw)
	return id, nil
}

// EncodeCredential packs a refresh credential: family ID, session ID,
// and the generation the holder claims to be at. The credential is
// opaque to clients; only the session store can judge its freshness.
func EncodeCredential(familyID, sessionID string, generation uint64) (string, error) {
	fid, err := ParseID(familyID)
	if err != nil {
		return "", err
	}
	sid, err := ParseID(sessionID)
	if err != nil {
		return "", err
	}

	var raw [credentialRawSize]byte
	copy(raw[:16], fid[:])
	copy(raw[16:32], sid[:])
	binary.BigEndian.PutUint64(raw[32:], generation)

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// DecodeCredential is the inverse of [EncodeCredential]. Any structural
// defect maps to [ErrCredentialMalformed] so callers cannot leak which
// part of the encoding was wrong.
func DecodeCredential(credential string) (familyID, sessionID string, generation uint64, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(credential)
	if err != nil {
		return "", "", 0, ErrCredentialMalformed
	}
	if len(raw) != credentialRawSize {
		return "", "", 0, ErrCredentialMalformed
	}

	var fid, sid ID
	copy(fid[:], raw[:16])
	copy(sid[:], raw[16:32])
	generation = binary.BigEndian.Uint64(raw[32:])

	return fid.String(), sid.String(), generation, nil
}
