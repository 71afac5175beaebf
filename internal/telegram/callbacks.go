package telegram

import (
	"context"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"relaybot/internal/providers"
	"relaybot/internal/session"
)

const (
	cbPrefix = "rb:"

	cbProvider    = cbPrefix + "prov:"
	cbModel       = cbPrefix + "model:"
	cbSetToken    = cbPrefix + "set:"
	cbRemoveToken = cbPrefix + "del:"
	cbProviders   = cbPrefix + "providers"
	cbCancel      = cbPrefix + "cancel"
	cbWipeConfirm = cbPrefix + "wipe_yes"
	cbWipeCancel  = cbPrefix + "wipe_no"
)

func (s *Service) onCallback(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx == nil || ctx.CallbackQuery == nil || ctx.EffectiveUser == nil {
		return nil
	}
	data := strings.TrimSpace(ctx.CallbackQuery.Data)
	s.answerCallback(b, ctx, "", false)

	switch {
	case strings.HasPrefix(data, cbProvider):
		return s.handleCallbackEvent(b, ctx, session.ChooseProvider{
			Provider: providers.ID(strings.TrimPrefix(data, cbProvider)),
		})

	case strings.HasPrefix(data, cbModel):
		return s.handleCallbackEvent(b, ctx, session.ChooseModel{
			Model: strings.TrimPrefix(data, cbModel),
		})

	case strings.HasPrefix(data, cbSetToken):
		return s.handleCallbackEvent(b, ctx, session.SetCredential{
			Provider: providers.ID(strings.TrimPrefix(data, cbSetToken)),
		})

	case strings.HasPrefix(data, cbRemoveToken):
		return s.handleCallbackEvent(b, ctx, session.RemoveCredential{
			Provider: providers.ID(strings.TrimPrefix(data, cbRemoveToken)),
		})

	case data == cbProviders:
		return s.handleCallbackEvent(b, ctx, session.RestartSetup{})

	case data == cbCancel:
		return s.handleCallbackEvent(b, ctx, session.CancelSetup{})

	case data == cbWipeConfirm:
		return s.handleCallbackEvent(b, ctx, session.Wipe{})

	case data == cbWipeCancel:
		return s.editOrReplyCallback(ctx, b, "Nothing was deleted.", nil)

	default:
		s.answerCallback(b, ctx, "Unknown action.", true)
		return nil
	}
}

func (s *Service) handleCallbackEvent(b *gotgbot.Bot, ctx *ext.Context, ev session.Event) error {
	out, err := s.engine.HandleEvent(context.Background(), ctx.EffectiveUser.Id, ev)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", ctx.EffectiveUser.Id).Msg("handle callback event")
		s.answerCallback(b, ctx, "Something went wrong. Try again.", true)
		return nil
	}
	return s.render(b, ctx, out, true)
}

func (s *Service) answerCallback(b *gotgbot.Bot, ctx *ext.Context, text string, alert bool) {
	if ctx == nil || ctx.CallbackQuery == nil {
		return
	}
	opts := &gotgbot.AnswerCallbackQueryOpts{ShowAlert: alert}
	if text != "" {
		opts.Text = text
	}
	_, _ = b.AnswerCallbackQuery(ctx.CallbackQuery.Id, opts)
}

func (s *Service) editOrReplyCallback(ctx *ext.Context, b *gotgbot.Bot, text string, markup *gotgbot.InlineKeyboardMarkup) error {
	if ctx != nil && ctx.CallbackQuery != nil && ctx.CallbackQuery.Message != nil {
		opts := &gotgbot.EditMessageTextOpts{}
		if markup != nil {
			opts.ReplyMarkup = *markup
		}
		_, _, err := ctx.CallbackQuery.Message.EditText(b, text, opts)
		if err == nil {
			return nil
		}
		if strings.Contains(strings.ToLower(err.Error()), "message is not modified") {
			return nil
		}
		// Fallback to sending a regular message if edit failed.
	}
	return s.replyWithMarkup(ctx, b, text, markup)
}
