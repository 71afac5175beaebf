package telegram

import (
	"context"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"relaybot/internal/providers/registry"
	"relaybot/internal/session"
)

func (s *Service) start(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat == nil || ctx.EffectiveUser == nil {
		return nil
	}
	if err := s.reply(ctx, b, welcomeText()); err != nil {
		return err
	}
	return s.handleEvent(b, ctx, session.RestartSetup{})
}

func (s *Service) help(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.reply(ctx, b, helpText())
}

func (s *Service) about(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.reply(ctx, b, aboutText())
}

func (s *Service) setToken(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat == nil {
		return nil
	}
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(registry.All()))
	for _, desc := range registry.All() {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{
			Text:         desc.DisplayName,
			CallbackData: cbSetToken + string(desc.ID),
		}})
	}
	return s.replyWithMarkup(ctx, b, "Which provider's token do you want to set or replace?",
		&gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (s *Service) removeToken(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat == nil || ctx.EffectiveUser == nil {
		return nil
	}
	out, err := s.engine.HandleEvent(context.Background(), ctx.EffectiveUser.Id, session.ShowConfig{})
	if err != nil {
		s.logger.Error().Err(err).Msg("load config for /removetoken")
		return s.reply(ctx, b, "Something went wrong. Try again.")
	}
	report, ok := findResponse[session.ConfigReport](out)
	if !ok || len(report.Configured) == 0 {
		return s.reply(ctx, b, "You have no stored tokens.")
	}
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(report.Configured))
	for _, cp := range report.Configured {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{
			Text:         cp.Provider.DisplayName,
			CallbackData: cbRemoveToken + string(cp.Provider.ID),
		}})
	}
	return s.replyWithMarkup(ctx, b, "Which token should be removed?",
		&gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (s *Service) myConfig(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.handleEvent(b, ctx, session.ShowConfig{})
}

func (s *Service) clearData(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx.EffectiveChat == nil {
		return nil
	}
	return s.replyWithMarkup(ctx, b,
		"This removes your tokens, provider choice and conversation history. Continue?",
		&gotgbot.InlineKeyboardMarkup{InlineKeyboard: [][]gotgbot.InlineKeyboardButton{{
			{Text: "Yes, delete everything", CallbackData: cbWipeConfirm},
			{Text: "Cancel", CallbackData: cbWipeCancel},
		}}})
}

func (s *Service) clearHistory(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.handleEvent(b, ctx, session.ClearHistory{})
}

func (s *Service) privateText(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveUser == nil {
		return nil
	}
	text := strings.TrimSpace(msg.GetText())
	if text == "" {
		return nil
	}
	// Provider calls can take a while; show activity in the meantime.
	_, _ = b.SendChatAction(msg.Chat.Id, "typing", nil)
	return s.handleEvent(b, ctx, session.PlainMessage{Text: text})
}

func (s *Service) nonText(b *gotgbot.Bot, ctx *ext.Context) error {
	return s.reply(ctx, b, "I can only work with text messages.")
}

// handleEvent runs one semantic event through the engine and renders whatever
// comes back.
func (s *Service) handleEvent(b *gotgbot.Bot, ctx *ext.Context, ev session.Event) error {
	if ctx.EffectiveUser == nil {
		return nil
	}
	out, err := s.engine.HandleEvent(context.Background(), ctx.EffectiveUser.Id, ev)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", ctx.EffectiveUser.Id).Msg("handle event")
		return s.reply(ctx, b, "Something went wrong. Try again.")
	}
	return s.render(b, ctx, out, false)
}

func (s *Service) reply(ctx *ext.Context, b *gotgbot.Bot, text string) error {
	if ctx.EffectiveChat == nil {
		return nil
	}
	_, err := b.SendMessage(ctx.EffectiveChat.Id, text, nil)
	return err
}

func (s *Service) replyWithMarkup(ctx *ext.Context, b *gotgbot.Bot, text string, markup *gotgbot.InlineKeyboardMarkup) error {
	if ctx == nil || ctx.EffectiveChat == nil {
		return nil
	}
	opts := &gotgbot.SendMessageOpts{}
	if markup != nil {
		opts.ReplyMarkup = *markup
	}
	_, err := b.SendMessage(ctx.EffectiveChat.Id, text, opts)
	return err
}

func findResponse[T session.Response](out []session.Response) (T, bool) {
	for _, r := range out {
		if v, ok := r.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
