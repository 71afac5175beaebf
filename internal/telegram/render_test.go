package telegram

import (
	"strings"
	"testing"

	"relaybot/internal/providers"
	"relaybot/internal/providers/registry"
	"relaybot/internal/session"
)

func TestProviderKeyboardCarriesUsabilityIcons(t *testing.T) {
	entries := []session.ProviderEntry{}
	for _, desc := range registry.All() {
		entries = append(entries, session.ProviderEntry{
			Descriptor: desc,
			Usability:  session.UsabilityNeedsSetup,
		})
	}
	entries[0].Usability = session.UsabilityGlobal

	kb := providerKeyboard(entries)
	if len(kb.InlineKeyboard) != len(entries) {
		t.Fatalf("rows = %d, want %d", len(kb.InlineKeyboard), len(entries))
	}
	first := kb.InlineKeyboard[0][0]
	if !strings.HasPrefix(first.Text, "✅ ") {
		t.Fatalf("global provider label = %q, want the globally-usable icon", first.Text)
	}
	if !strings.HasPrefix(first.CallbackData, cbProvider) {
		t.Fatalf("callback data = %q", first.CallbackData)
	}
}

func TestModelKeyboardHasBackRow(t *testing.T) {
	kb := modelKeyboard([]string{"a", "b"})
	if len(kb.InlineKeyboard) != 3 {
		t.Fatalf("rows = %d, want models plus back", len(kb.InlineKeyboard))
	}
	back := kb.InlineKeyboard[2][0]
	if back.CallbackData != cbProviders {
		t.Fatalf("back button data = %q", back.CallbackData)
	}
}

func TestCredentialKeyboardOffersBackAndCancel(t *testing.T) {
	kb := credentialKeyboard()
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want back and cancel", len(kb.InlineKeyboard))
	}
	if kb.InlineKeyboard[0][0].CallbackData != cbProviders {
		t.Fatalf("back button data = %q", kb.InlineKeyboard[0][0].CallbackData)
	}
	if kb.InlineKeyboard[1][0].CallbackData != cbCancel {
		t.Fatalf("cancel button data = %q", kb.InlineKeyboard[1][0].CallbackData)
	}
}

func TestProviderSignatureUsesDisplayName(t *testing.T) {
	got := providerSignature(providers.ChatGPT, "gpt-4o-mini")
	if !strings.Contains(got, "gpt-4o-mini") || strings.Contains(got, "chatgpt") {
		t.Fatalf("signature = %q, want display name and model", got)
	}
}

func TestErrorTextCoversEveryKind(t *testing.T) {
	kinds := []session.Kind{
		session.NotReady,
		session.NoCredential,
		session.AuthFailure,
		session.TransientFailure,
		session.UnknownFailure,
	}
	seen := map[string]session.Kind{}
	for _, k := range kinds {
		text := errorText(k)
		if text == "" {
			t.Fatalf("no text for %q", k)
		}
		if prev, dup := seen[text]; dup && prev != session.UnknownFailure {
			t.Fatalf("kinds %q and %q share text %q", prev, k, text)
		}
		seen[text] = k
	}
}

func TestConfigTextNeverShowsSecrets(t *testing.T) {
	desc, _ := registry.Get(providers.Gemini)
	text := configText(session.ConfigReport{
		Preferred: providers.Gemini,
		Configured: []session.ConfiguredProvider{
			{Provider: desc, Model: "gemini-2.5-pro", CreatedAt: "2026-09-01T10:00:00Z"},
		},
		HistoryLen: 4,
	})
	if !strings.Contains(text, "gemini-2.5-pro") || !strings.Contains(text, "4 turns") {
		t.Fatalf("config text = %q", text)
	}
}
