package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/credlock/credlock/internal"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, "cl", 0), mr
}

func newID(t *testing.T) string {
	t.Helper()
	id, err := internal.NewID()
	if err != nil {
		t.Fatalf("NewID error: %v", err)
	}
	return id.String()
}

func seedSession(t *testing.T, store *Store, userID string, generation uint64, lifetime time.Duration) *Session {
	t.Helper()

	now := time.Now()
	sess := &Session{
		FamilyID:   newID(t),
		SessionID:  newID(t),
		UserID:     userID,
		Generation: generation,
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(lifetime).Unix(),
	}
	if err := store.Save(context.Background(), sess, lifetime); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	return sess
}

func TestSaveAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	sess := seedSession(t, store, "user-1", 0, time.Hour)

	got, err := store.Get(context.Background(), sess.FamilyID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if *got != *sess {
		t.Fatalf("session mismatch:\n got %+v\nwant %+v", got, sess)
	}
}

func TestGetMissingFamily(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), newID(t))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAdvanceGenerationHappyPath(t *testing.T) {
	store, _ := newTestStore(t)
	sess := seedSession(t, store, "user-1", 4, time.Hour)

	nextSID := newID(t)
	advanced, err := store.AdvanceGeneration(context.Background(), sess.FamilyID, 4, nextSID)
	if err != nil {
		t.Fatalf("AdvanceGeneration error: %v", err)
	}

	if advanced.Generation != 5 {
		t.Fatalf("generation = %d, want 5", advanced.Generation)
	}
	if advanced.SessionID != nextSID {
		t.Fatalf("session id not replaced: %s", advanced.SessionID)
	}
	if advanced.FamilyID != sess.FamilyID || advanced.UserID != sess.UserID {
		t.Fatal("family identity changed during advance")
	}
	if advanced.ExpiresAt != sess.ExpiresAt {
		t.Fatal("family absolute expiry changed during advance")
	}

	stored, err := store.Get(context.Background(), sess.FamilyID)
	if err != nil {
		t.Fatalf("Get after advance error: %v", err)
	}
	if *stored != *advanced {
		t.Fatal("stored state does not match advance result")
	}
}

func TestAdvanceGenerationMismatchRevokesFamily(t *testing.T) {
	store, _ := newTestStore(t)
	sess := seedSession(t, store, "user-1", 4, time.Hour)

	_, err := store.AdvanceGeneration(context.Background(), sess.FamilyID, 3, newID(t))
	if !errors.Is(err, ErrGenerationConflict) {
		t.Fatalf("expected ErrGenerationConflict, got %v", err)
	}

	// The conflict must have revoked the whole family atomically.
	stored, err := store.Get(context.Background(), sess.FamilyID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !stored.Revoked {
		t.Fatal("expected family to be revoked after generation conflict")
	}

	// Even the correct generation is now refused: REVOKED is absorbing.
	_, err = store.AdvanceGeneration(context.Background(), sess.FamilyID, 4, newID(t))
	if !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestAdvanceGenerationPreservesTTL(t *testing.T) {
	store, mr := newTestStore(t)
	sess := seedSession(t, store, "user-1", 0, time.Hour)

	if _, err := store.AdvanceGeneration(context.Background(), sess.FamilyID, 0, newID(t)); err != nil {
		t.Fatalf("AdvanceGeneration error: %v", err)
	}

	ttl := mr.TTL("cl:" + sess.FamilyID)
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected TTL after advance: %v", ttl)
	}
}

func TestAdvanceGenerationMissingFamily(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.AdvanceGeneration(context.Background(), newID(t), 0, newID(t))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAdvanceGenerationLogicallyExpired(t *testing.T) {
	store, _ := newTestStore(t)

	// Long Redis TTL, short logical expiry: the script must treat the
	// record as expired and delete it.
	now := time.Now()
	sess := &Session{
		FamilyID:   newID(t),
		SessionID:  newID(t),
		UserID:     "user-1",
		Generation: 0,
		CreatedAt:  now.Add(-2 * time.Hour).Unix(),
		ExpiresAt:  now.Add(-time.Hour).Unix(),
	}
	if err := store.Save(context.Background(), sess, time.Hour); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	_, err := store.AdvanceGeneration(context.Background(), sess.FamilyID, 0, newID(t))
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	_, err = store.Get(context.Background(), sess.FamilyID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected deletion after expiry, got %v", err)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	sess := seedSession(t, store, "user-1", 0, time.Hour)

	for i := 0; i < 3; i++ {
		if err := store.Revoke(context.Background(), sess.FamilyID); err != nil {
			t.Fatalf("Revoke call %d error: %v", i, err)
		}
	}

	stored, err := store.Get(context.Background(), sess.FamilyID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !stored.Revoked {
		t.Fatal("expected family to be revoked")
	}

	// Revoking an unknown family also succeeds.
	if err := store.Revoke(context.Background(), newID(t)); err != nil {
		t.Fatalf("Revoke of unknown family error: %v", err)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	store, _ := newTestStore(t)

	first := seedSession(t, store, "user-1", 0, time.Hour)
	second := seedSession(t, store, "user-1", 2, time.Hour)
	other := seedSession(t, store, "user-2", 0, time.Hour)

	if err := store.RevokeAllForUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("RevokeAllForUser error: %v", err)
	}

	for _, familyID := range []string{first.FamilyID, second.FamilyID} {
		if _, err := store.Get(context.Background(), familyID); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected family %s gone, got %v", familyID, err)
		}
	}

	if _, err := store.Get(context.Background(), other.FamilyID); err != nil {
		t.Fatalf("expected unrelated user's family to survive, got %v", err)
	}
}

func TestTTLEviction(t *testing.T) {
	store, mr := newTestStore(t)
	sess := seedSession(t, store, "user-1", 0, time.Minute)

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(context.Background(), sess.FamilyID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected eviction after TTL, got %v", err)
	}
}

func TestUserIndexEvictedWithFamilies(t *testing.T) {
	store, mr := newTestStore(t)
	seedSession(t, store, "user-1", 0, time.Minute)
	seedSession(t, store, "user-1", 0, time.Minute)

	indexKey := store.userKey("user-1")
	if ttl := mr.TTL(indexKey); ttl <= 0 {
		t.Fatalf("expected bounded TTL on user index, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)

	if mr.Exists(indexKey) {
		t.Fatal("expected user index to expire with its families")
	}
}

func TestConcurrentAdvanceSingleWinner(t *testing.T) {
	store, _ := newTestStore(t)
	sess := seedSession(t, store, "user-1", 0, time.Hour)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := store.AdvanceGeneration(context.Background(), sess.FamilyID, 0, mustNewID())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	losers := 0
	for err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrGenerationConflict), errors.Is(err, ErrSessionRevoked):
			losers++
		default:
			t.Fatalf("unexpected advance error: %v", err)
		}
	}

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if losers != n-1 {
		t.Fatalf("expected %d losers, got %d", n-1, losers)
	}
}

func mustNewID() string {
	id, err := internal.NewID()
	if err != nil {
		panic(err)
	}
	return id.String()
}
