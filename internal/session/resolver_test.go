package session

import (
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"relaybot/internal/crypto"
	"relaybot/internal/providers"
)

func testKeyring(t *testing.T) *crypto.Keyring {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	kr, err := crypto.NewKeyring("k1", map[string][]byte{"k1": key})
	if err != nil {
		t.Fatal(err)
	}
	return kr
}

func sealFor(t *testing.T, kr *crypto.Keyring, secret string) string {
	t.Helper()
	sealed, err := kr.SealString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return sealed
}

func TestResolveUserRecordWinsOverGlobal(t *testing.T) {
	kr := testKeyring(t)
	store := NewStore()
	store.SetCredential(1, CredentialRecord{
		Provider:  providers.ChatGPT,
		Secret:    sealFor(t, kr, "sk-user"),
		Model:     "gpt-4o",
		CreatedAt: time.Now(),
	})
	r := NewResolver(store, map[providers.ID]string{providers.ChatGPT: "sk-global"}, kr)

	cred, err := r.Resolve(1, providers.ChatGPT)
	if err != nil {
		t.Fatal(err)
	}
	if cred.Source != SourceUser || cred.Secret != "sk-user" || cred.Model != "gpt-4o" {
		t.Fatalf("got %+v, want the user's own record", cred)
	}
}

func TestResolveGlobalFallsBackToDefaultModel(t *testing.T) {
	kr := testKeyring(t)
	r := NewResolver(NewStore(), map[providers.ID]string{providers.Gemini: "g-key"}, kr)

	cred, err := r.Resolve(1, providers.Gemini)
	if err != nil {
		t.Fatal(err)
	}
	if cred.Source != SourceGlobal || cred.Secret != "g-key" {
		t.Fatalf("got %+v, want the global credential", cred)
	}
	if cred.Model != "gemini-2.5-flash" {
		t.Fatalf("model = %q, want the provider default", cred.Model)
	}
}

func TestResolveUnavailable(t *testing.T) {
	r := NewResolver(NewStore(), nil, testKeyring(t))
	if _, err := r.Resolve(1, providers.Claude); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestResolveUserRecordWithoutModelUsesDefault(t *testing.T) {
	kr := testKeyring(t)
	store := NewStore()
	store.SetCredential(5, CredentialRecord{
		Provider:  providers.Grok,
		Secret:    sealFor(t, kr, "xai-key"),
		CreatedAt: time.Now(),
	})
	r := NewResolver(store, nil, kr)

	cred, err := r.Resolve(5, providers.Grok)
	if err != nil {
		t.Fatal(err)
	}
	if cred.Model != "grok-4-fast" {
		t.Fatalf("model = %q, want the provider default", cred.Model)
	}
}

func TestUsabilityClasses(t *testing.T) {
	kr := testKeyring(t)
	store := NewStore()
	store.SetCredential(1, CredentialRecord{
		Provider:  providers.Claude,
		Secret:    sealFor(t, kr, "sk-ant"),
		CreatedAt: time.Now(),
	})
	r := NewResolver(store, map[providers.ID]string{providers.ChatGPT: "sk"}, kr)

	cases := []struct {
		provider providers.ID
		want     Usability
	}{
		{providers.ChatGPT, UsabilityGlobal},
		{providers.Claude, UsabilityUserToken},
		{providers.Gemini, UsabilityNeedsSetup},
	}
	for _, tc := range cases {
		if got := r.Usability(1, tc.provider); got != tc.want {
			t.Errorf("Usability(%s) = %q, want %q", tc.provider, got, tc.want)
		}
	}
}
