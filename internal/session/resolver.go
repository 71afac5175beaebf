package session

import (
	"fmt"

	"relaybot/internal/crypto"
	"relaybot/internal/providers"
	"relaybot/internal/providers/registry"
)

// Source says where a resolved credential came from.
type Source string

const (
	SourceUser   Source = "user"
	SourceGlobal Source = "global"
)

// Credential is a resolved, ready-to-dispatch credential. Secret is plaintext
// and must not outlive the dispatch that needed it.
type Credential struct {
	Secret string
	Model  string
	Source Source
}

// Resolver answers "what key and model do we call this provider with for this
// user". A user's own record wins outright over a global key, model included;
// a global key falls back to the provider's default model.
type Resolver struct {
	store   *Store
	globals map[providers.ID]string
	keyring *crypto.Keyring
}

func NewResolver(store *Store, globals map[providers.ID]string, keyring *crypto.Keyring) *Resolver {
	return &Resolver{store: store, globals: globals, keyring: keyring}
}

func (r *Resolver) Resolve(userID int64, provider providers.ID) (Credential, error) {
	if rec, ok := r.store.Credential(userID, provider); ok {
		secret, err := r.keyring.OpenString(rec.Secret)
		if err != nil {
			return Credential{}, fmt.Errorf("open credential for %s: %w", provider, err)
		}
		model := rec.Model
		if model == "" {
			model = defaultModel(provider)
		}
		return Credential{Secret: secret, Model: model, Source: SourceUser}, nil
	}
	if key := r.globals[provider]; key != "" {
		return Credential{Secret: key, Model: defaultModel(provider), Source: SourceGlobal}, nil
	}
	return Credential{}, ErrUnavailable
}

// Usability reports how the provider menu should label this provider for this
// user. Global access is surfaced ahead of a stored personal token.
func (r *Resolver) Usability(userID int64, provider providers.ID) Usability {
	if r.globals[provider] != "" {
		return UsabilityGlobal
	}
	if _, ok := r.store.Credential(userID, provider); ok {
		return UsabilityUserToken
	}
	return UsabilityNeedsSetup
}

func defaultModel(provider providers.ID) string {
	if d, ok := registry.Get(provider); ok {
		return d.DefaultModel
	}
	return ""
}
