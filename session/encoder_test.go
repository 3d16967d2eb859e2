package session

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/credlock/credlock/internal"
)

func testSession(t *testing.T) *Session {
	t.Helper()

	fid, err := internal.NewID()
	if err != nil {
		t.Fatalf("NewID error: %v", err)
	}
	sid, err := internal.NewID()
	if err != nil {
		t.Fatalf("NewID error: %v", err)
	}

	now := time.Now()
	return &Session{
		FamilyID:   fid.String(),
		SessionID:  sid.String(),
		UserID:     "user-42",
		Generation: 7,
		Revoked:    false,
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(time.Hour).Unix(),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := testSession(t)

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if *decoded != *original {
		t.Fatalf("round-trip mismatch:\n got %+v\nwant %+v", decoded, original)
	}
}

// TestEncodeFixedOffsets pins the byte offsets the Lua scripts in
// store.go depend on. If this test fails, the scripts must change too.
func TestEncodeFixedOffsets(t *testing.T) {
	sess := testSession(t)
	sess.Generation = 0x0102030405060708
	sess.Revoked = true

	data, err := Encode(sess)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	if data[0] != sessionFormatVersionCurrent {
		t.Fatalf("version byte = %d", data[0])
	}
	if got := binary.BigEndian.Uint64(data[offGeneration : offGeneration+8]); got != sess.Generation {
		t.Fatalf("generation at fixed offset = %#x", got)
	}
	if data[offRevoked] != 1 {
		t.Fatalf("revoked flag at fixed offset = %d", data[offRevoked])
	}
	if got := int64(binary.BigEndian.Uint64(data[offExpiresAt : offExpiresAt+8])); got != sess.ExpiresAt {
		t.Fatalf("expires_at at fixed offset = %d", got)
	}
	if int(data[offUserLen]) != len(sess.UserID) {
		t.Fatalf("user length byte = %d", data[offUserLen])
	}
	if !bytes.Equal(data[offUserLen+1:], []byte(sess.UserID)) {
		t.Fatal("user ID bytes misplaced")
	}
}

func TestEncodeRejectsInvalidFields(t *testing.T) {
	base := testSession(t)

	badFamily := *base
	badFamily.FamilyID = "not-an-id"
	if _, err := Encode(&badFamily); err == nil {
		t.Fatal("expected invalid family id to be rejected")
	}

	badUser := *base
	badUser.UserID = ""
	if _, err := Encode(&badUser); err == nil {
		t.Fatal("expected empty user id to be rejected")
	}

	longUser := *base
	longUser.UserID = string(make([]byte, 256))
	if _, err := Encode(&longUser); err == nil {
		t.Fatal("expected oversized user id to be rejected")
	}
}

func TestDecodeRejectsDamage(t *testing.T) {
	data, err := Encode(testSession(t))
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	if _, err := Decode(data[:10]); err == nil {
		t.Fatal("expected truncated blob to be rejected")
	}

	wrongVersion := append([]byte(nil), data...)
	wrongVersion[0] = 9
	if _, err := Decode(wrongVersion); err == nil {
		t.Fatal("expected unknown version to be rejected")
	}

	trailing := append(append([]byte(nil), data...), 0xFF)
	if _, err := Decode(trailing); err == nil {
		t.Fatal("expected trailing bytes to be rejected")
	}

	truncatedUser := data[:len(data)-1]
	if _, err := Decode(truncatedUser); err == nil {
		t.Fatal("expected truncated user id to be rejected")
	}
}
