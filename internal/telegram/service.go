package telegram

import (
	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
	"github.com/rs/zerolog"

	"relaybot/internal/metrics"
	"relaybot/internal/session"
)

// Service binds the session engine to Telegram. It translates updates into
// semantic events and renders the engine's responses back into messages and
// inline keyboards; all onboarding decisions stay in the engine.
type Service struct {
	engine  *session.Engine
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type Config struct {
	Engine  *session.Engine
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

func NewService(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	return &Service{
		engine:  cfg.Engine,
		logger:  cfg.Logger,
		metrics: m,
	}
}

func (s *Service) Register(d *ext.Dispatcher) {
	d.AddHandler(handlers.NewCommand("start", s.start))
	d.AddHandler(handlers.NewCommand("help", s.help))
	d.AddHandler(handlers.NewCommand("about", s.about))
	d.AddHandler(handlers.NewCommand("settoken", s.setToken))
	d.AddHandler(handlers.NewCommand("removetoken", s.removeToken))
	d.AddHandler(handlers.NewCommand("myconfig", s.myConfig))
	d.AddHandler(handlers.NewCommand("cleardata", s.clearData))
	d.AddHandler(handlers.NewCommand("clear", s.clearHistory))
	d.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbPrefix), s.onCallback))
	d.AddHandler(handlers.NewMessage(func(msg *gotgbot.Message) bool {
		return message.Private(msg) && message.Text(msg)
	}, s.privateText))
	d.AddHandler(handlers.NewMessage(func(msg *gotgbot.Message) bool {
		return message.Private(msg) && !message.Text(msg)
	}, s.nonText))
}
