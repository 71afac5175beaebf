package crypto

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	keys := map[string][]byte{
		"k1": mustKey(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="),
	}
	kr, err := NewKeyring("k1", keys)
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}

	raw, err := kr.SealString("sk-a-very-real-token")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if strings.Contains(raw, "sk-a-very-real-token") {
		t.Fatal("sealed form leaks the plaintext")
	}

	out, err := kr.OpenString(raw)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if out != "sk-a-very-real-token" {
		t.Fatalf("expected original secret, got %q", out)
	}
}

func TestRotationOpensOldSealsNew(t *testing.T) {
	oldKey := mustKey(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	newKey := mustKey(t, "AQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQEBAQE=")

	oldRing, err := NewKeyring("old", map[string][]byte{"old": oldKey})
	if err != nil {
		t.Fatalf("old keyring: %v", err)
	}
	sealed, err := oldRing.SealString("legacy")
	if err != nil {
		t.Fatalf("seal with old key: %v", err)
	}

	rotated, err := NewKeyring("new", map[string][]byte{"old": oldKey, "new": newKey})
	if err != nil {
		t.Fatalf("rotated keyring: %v", err)
	}

	plain, err := rotated.OpenString(sealed)
	if err != nil {
		t.Fatalf("open with old key failed: %v", err)
	}
	if plain != "legacy" {
		t.Fatalf("unexpected plaintext: %q", plain)
	}

	resealed, err := rotated.Reseal(sealed)
	if err != nil {
		t.Fatalf("reseal: %v", err)
	}
	again, err := rotated.OpenString(resealed)
	if err != nil {
		t.Fatalf("open resealed: %v", err)
	}
	if again != "legacy" {
		t.Fatalf("reseal changed the secret: %q", again)
	}
}

func mustKey(t *testing.T, b64 string) []byte {
	t.Helper()
	k, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	if len(k) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(k))
	}
	return k
}
