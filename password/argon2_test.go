package password

import (
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification to succeed")
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("correct-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := hasher.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password verification to fail")
	}
}

func TestHashSaltsAreUnique(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	first, err := hasher.Hash("repeated-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	second, err := hasher.Hash("repeated-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if first == second {
		t.Fatal("expected per-call random salt to produce distinct hashes")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	if _, err := hasher.Hash("short"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
}

func TestVerifyRejectsMalformedPHC(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	cases := []string{
		"",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",         // salt too short
		"$argon2i$v=19$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$a", // wrong variant
		"$argon2id$v=18$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$a",
		"$argon2id$v=19$m=8192,t=1$AAAAAAAAAAAAAAAAAAAAAA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$aGFzaA", // below memory floor
		"not-a-phc-string",
	}

	for _, encoded := range cases {
		if _, err := hasher.Verify("whatever-password", encoded); err == nil {
			t.Fatalf("expected malformed hash to error: %q", encoded)
		}
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := weak.Hash("upgrade-me-please")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strongCfg := fastConfig()
	strongCfg.Memory = 64 * 1024
	strongCfg.Time = 3
	strong, err := NewArgon2(strongCfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	needs, err := strong.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if !needs {
		t.Fatal("expected weaker hash to need upgrade")
	}

	needs, err = weak.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if needs {
		t.Fatal("expected same-cost hash to not need upgrade")
	}
}

func TestVerifyDummyDoesNotPanic(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hasher.VerifyDummy("any-password-at-all")
}

func TestConfigFloors(t *testing.T) {
	cases := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}

	for i, cfg := range cases {
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("case %d: expected config below floor to be rejected", i)
		}
	}
}
