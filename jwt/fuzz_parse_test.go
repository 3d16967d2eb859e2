package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

// FuzzParseAccess ensures arbitrary token strings never panic the
// parser and never verify against the configured key.
func FuzzParseAccess(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatal(err)
	}

	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		f.Fatal(err)
	}

	valid, err := m.CreateAccess("user-1", "fam-1", "sess-1")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJub25lIn0.e30.")

	f.Fuzz(func(t *testing.T, tokenStr string) {
		claims, err := m.ParseAccess(tokenStr)
		if err != nil {
			return
		}
		if tokenStr != valid {
			t.Fatalf("mutated token verified: %q -> %+v", tokenStr, claims)
		}
	})
}
