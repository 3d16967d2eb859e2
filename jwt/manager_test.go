package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:     ttl,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "credlock-test",
		Leeway:        time.Second,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return m
}

func TestCreateAndParseRoundTrip(t *testing.T) {
	m := newTestManager(t, time.Minute)

	token, err := m.CreateAccess("user-1", "fam-1", "sess-1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("ParseAccess error: %v", err)
	}
	if claims.UID != "user-1" || claims.FID != "fam-1" || claims.SID != "sess-1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.TokenType != "access" {
		t.Fatalf("unexpected token type: %s", claims.TokenType)
	}
}

func TestParseExpiredTokenDistinguishable(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	// No leeway: the token must read as expired the instant its TTL lapses.
	m, err := NewManager(Config{
		AccessTTL:     time.Millisecond,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "credlock-test",
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	token, err := m.CreateAccess("user-1", "fam-1", "sess-1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	_, err = m.ParseAccess(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	issuer := newTestManager(t, time.Minute)
	verifier := newTestManager(t, time.Minute)

	token, err := issuer.CreateAccess("user-1", "fam-1", "sess-1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}

	_, err = verifier.ParseAccess(token)
	if !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for foreign signature, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := newTestManager(t, time.Minute)

	for _, tokenStr := range []string{"", "garbage", "a.b.c", strings.Repeat("x", 500)} {
		_, err := m.ParseAccess(tokenStr)
		if !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("expected ErrTokenMalformed for %q, got %v", tokenStr, err)
		}
	}
}

func TestParseRejectsTamperedPayload(t *testing.T) {
	m := newTestManager(t, time.Minute)

	token, err := m.CreateAccess("user-1", "fam-1", "sess-1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	if _, err := m.ParseAccess(tampered); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for tampered token, got %v", err)
	}
}

func TestVerifyKeysOverlapWindow(t *testing.T) {
	pubOld, privOld, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	pubNew, privNew, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	oldSigner, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    privOld,
		KeyID:         "old",
		VerifyKeys:    map[string][]byte{"old": pubOld},
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	// Rotated manager signs with the new key but still verifies both.
	rotated, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    privNew,
		KeyID:         "new",
		VerifyKeys: map[string][]byte{
			"old": pubOld,
			"new": pubNew,
		},
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	oldToken, err := oldSigner.CreateAccess("user-1", "fam-1", "sess-1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}
	newToken, err := rotated.CreateAccess("user-1", "fam-1", "sess-1")
	if err != nil {
		t.Fatalf("CreateAccess error: %v", err)
	}

	if _, err := rotated.ParseAccess(oldToken); err != nil {
		t.Fatalf("expected old-key token to verify during overlap, got %v", err)
	}
	if _, err := rotated.ParseAccess(newToken); err != nil {
		t.Fatalf("expected new-key token to verify, got %v", err)
	}
}

func TestNewManagerConfigValidation(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	cases := []Config{
		{AccessTTL: 0, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub},
		{AccessTTL: time.Minute, SigningMethod: MethodEd25519},
		{AccessTTL: time.Minute, SigningMethod: MethodHS256},
		{AccessTTL: time.Minute, SigningMethod: "rs256", PrivateKey: priv},
		{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, Leeway: 5 * time.Minute},
		{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, KeyID: "k1", VerifyKeys: map[string][]byte{"other": pub}},
	}

	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config rejection", i)
		}
	}
}
