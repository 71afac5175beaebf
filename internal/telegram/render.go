package telegram

import (
	"fmt"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"relaybot/internal/providers"
	"relaybot/internal/providers/registry"
	"relaybot/internal/session"
)

// render turns the engine's semantic responses into Telegram messages. When
// the event came from a callback, menu-shaped responses edit the message the
// button lives on instead of stacking new ones.
func (s *Service) render(b *gotgbot.Bot, ctx *ext.Context, out []session.Response, fromCallback bool) error {
	for _, r := range out {
		var err error
		switch r := r.(type) {
		case session.ShowProviderMenu:
			err = s.sendMenu(b, ctx, fromCallback, "Choose a provider:", providerKeyboard(r.Entries))
		case session.ShowModelMenu:
			text := fmt.Sprintf("Choose a model for %s:", r.Provider.DisplayName)
			err = s.sendMenu(b, ctx, fromCallback, text, modelKeyboard(r.Models))
		case session.RequestCredential:
			text := strings.Join([]string{
				fmt.Sprintf("Send me your %s API key as a plain message.", r.Provider.DisplayName),
				"",
				"You can get one here: " + r.Provider.KeyURL,
				"The message with the key is deleted as soon as it is read.",
			}, "\n")
			err = s.sendMenu(b, ctx, fromCallback, text, credentialKeyboard())
		case session.PurgeOriginatingMessage:
			s.purgeMessage(b, ctx)
		case session.CredentialSaved:
			err = s.reply(ctx, b, fmt.Sprintf("Token for %s saved.", r.Provider.DisplayName))
		case session.CredentialRemoved:
			if r.Removed {
				err = s.reply(ctx, b, fmt.Sprintf("Token for %s removed.", r.Provider.DisplayName))
			} else {
				err = s.reply(ctx, b, "There was no stored token for that provider.")
			}
		case session.SetupComplete:
			err = s.reply(ctx, b, fmt.Sprintf(
				"All set: %s (%s). Send me a message and I'll pass it on.",
				r.Provider.DisplayName, r.Model))
		case session.ChatReply:
			err = s.sendChatReply(b, ctx, r)
		case session.ErrorNotice:
			err = s.reply(ctx, b, errorText(r.Kind))
		case session.SetupCancelled:
			err = s.reply(ctx, b, "Token entry cancelled. Use /start to try again.")
		case session.DataWiped:
			err = s.reply(ctx, b, "All your data has been removed. /start begins from scratch.")
		case session.HistoryCleared:
			err = s.reply(ctx, b, "Conversation history cleared. Tokens are untouched.")
		case session.ConfigReport:
			err = s.reply(ctx, b, configText(r))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) sendMenu(b *gotgbot.Bot, ctx *ext.Context, fromCallback bool, text string, markup *gotgbot.InlineKeyboardMarkup) error {
	if fromCallback {
		return s.editOrReplyCallback(ctx, b, text, markup)
	}
	return s.replyWithMarkup(ctx, b, text, markup)
}

func (s *Service) sendChatReply(b *gotgbot.Bot, ctx *ext.Context, r session.ChatReply) error {
	text := r.Text + "\n\n— " + providerSignature(r.Provider, r.Model)
	return s.reply(ctx, b, text)
}

// purgeMessage deletes the inbound message that carried a secret.
func (s *Service) purgeMessage(b *gotgbot.Bot, ctx *ext.Context) {
	msg := ctx.EffectiveMessage
	if msg == nil {
		return
	}
	if _, err := b.DeleteMessage(msg.Chat.Id, msg.MessageId, nil); err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", msg.Chat.Id).Msg("delete secret message")
		return
	}
	s.metrics.SecretsPurged.Inc()
}

func providerKeyboard(entries []session.ProviderEntry) *gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{
			Text:         usabilityIcon(e.Usability) + " " + e.Descriptor.DisplayName,
			CallbackData: cbProvider + string(e.Descriptor.ID),
		}})
	}
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func modelKeyboard(models []string) *gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(models)+1)
	for _, m := range models {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{
			Text:         m,
			CallbackData: cbModel + m,
		}})
	}
	rows = append(rows, []gotgbot.InlineKeyboardButton{{
		Text:         "« Back to providers",
		CallbackData: cbProviders,
	}})
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func credentialKeyboard() *gotgbot.InlineKeyboardMarkup {
	return &gotgbot.InlineKeyboardMarkup{InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
		{{Text: "« Back to providers", CallbackData: cbProviders}},
		{{Text: "❌ Cancel", CallbackData: cbCancel}},
	}}
}

func usabilityIcon(u session.Usability) string {
	switch u {
	case session.UsabilityGlobal:
		return "✅"
	case session.UsabilityUserToken:
		return "🔑"
	default:
		return "⚙️"
	}
}

func providerSignature(id providers.ID, model string) string {
	if desc, ok := registry.Get(id); ok {
		return fmt.Sprintf("%s (%s)", desc.DisplayName, model)
	}
	return fmt.Sprintf("%s (%s)", id, model)
}

func errorText(kind session.Kind) string {
	switch kind {
	case session.NotReady:
		return "Finish setup first."
	case session.NoCredential:
		return "There is no usable token for your provider anymore. Pick a provider again."
	case session.AuthFailure:
		return "The provider rejected your token. Use /settoken to replace it."
	case session.TransientFailure:
		return "The provider is unavailable right now. Send your message again in a moment."
	default:
		return "Something went wrong. Try again."
	}
}

func configText(r session.ConfigReport) string {
	lines := []string{"Your configuration:"}
	if r.Preferred != "" {
		lines = append(lines, "Active provider: "+string(r.Preferred))
	} else {
		lines = append(lines, "Active provider: not set — run /start")
	}
	if len(r.Configured) == 0 {
		lines = append(lines, "Stored tokens: none")
	} else {
		lines = append(lines, "Stored tokens:")
		for _, cp := range r.Configured {
			lines = append(lines, fmt.Sprintf("- %s, model %s, set %s",
				cp.Provider.DisplayName, cp.Model, cp.CreatedAt))
		}
	}
	lines = append(lines, fmt.Sprintf("History: %d turns", r.HistoryLen))
	return strings.Join(lines, "\n")
}

func welcomeText() string {
	return strings.Join([]string{
		"Hi! I relay your messages to an AI provider of your choice.",
		"Pick a provider below; if it needs your own API key I'll walk you through it.",
		"/help lists everything I can do.",
	}, "\n")
}

func helpText() string {
	return strings.Join([]string{
		"Commands:",
		"/start - pick a provider and model",
		"/settoken - set or replace a provider API key",
		"/removetoken - delete a stored API key",
		"/myconfig - show your current setup",
		"/clear - forget the conversation history",
		"/cleardata - delete everything I know about you",
		"/about - what this bot is",
		"",
		"Once set up, just send me text and I'll answer with your chosen model.",
	}, "\n")
}

func aboutText() string {
	return strings.Join([]string{
		"relaybot routes your messages to ChatGPT, Gemini, Claude, Grok or a",
		"custom OpenAI-compatible endpoint, with your own API key or a shared one.",
		"Keys are held encrypted in memory only and vanish on restart.",
	}, "\n")
}
