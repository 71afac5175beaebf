package session

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"relaybot/internal/crypto"
	"relaybot/internal/metrics"
	"relaybot/internal/providers"
	"relaybot/internal/providers/registry"
)

// Invoker calls one provider adapter. The engine holds exactly one and routes
// by provider id.
type Invoker interface {
	Invoke(ctx context.Context, id providers.ID, req providers.ChatRequest) (providers.ChatResponse, error)
}

// Auditor records non-secret user actions. Optional; a nil auditor disables
// the audit trail.
type Auditor interface {
	Record(ctx context.Context, userID int64, action string, meta map[string]any) error
	PurgeUser(ctx context.Context, userID int64) error
}

type Config struct {
	Store    *Store
	History  *History
	Resolver *Resolver
	Keyring  *crypto.Keyring
	Invoker  Invoker
	Auditor  Auditor
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger

	ProviderTimeout time.Duration
	MaxTokens       int
	Temperature     float64
}

// Engine drives the per-user onboarding flow and dispatches ready-state
// messages to a provider. One engine serves all users; units of work for the
// same user are serialized end-to-end, different users run in parallel.
type Engine struct {
	store    *Store
	history  *History
	resolver *Resolver
	keyring  *crypto.Keyring
	invoker  Invoker
	auditor  Auditor
	metrics  *metrics.Metrics
	log      zerolog.Logger

	providerTimeout time.Duration
	maxTokens       int
	temperature     float64
}

func NewEngine(cfg Config) *Engine {
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Engine{
		store:           cfg.Store,
		history:         cfg.History,
		resolver:        cfg.Resolver,
		keyring:         cfg.Keyring,
		invoker:         cfg.Invoker,
		auditor:         cfg.Auditor,
		metrics:         cfg.Metrics,
		log:             cfg.Logger,
		providerTimeout: timeout,
		maxTokens:       cfg.MaxTokens,
		temperature:     cfg.Temperature,
	}
}

// HandleEvent processes one semantic event for one user under that user's
// serialization lock. Domain failures come back as ErrorNotice responses; the
// error return is reserved for faults the transport cannot render.
func (e *Engine) HandleEvent(ctx context.Context, userID int64, ev Event) ([]Response, error) {
	release := e.store.Acquire(userID)
	defer release()

	if e.metrics != nil {
		e.metrics.EventsTotal.Inc()
	}

	switch ev := ev.(type) {
	case RestartSetup:
		e.store.SetState(userID, SelectingProvider())
		return []Response{e.providerMenu(userID)}, nil
	case CancelSetup:
		e.store.SetState(userID, Idle())
		return []Response{SetupCancelled{}}, nil
	case ChooseProvider:
		return e.chooseProvider(ctx, userID, ev.Provider)
	case SubmitCredential:
		return e.submitCredential(ctx, userID, ev.Secret)
	case ChooseModel:
		return e.chooseModel(ctx, userID, ev.Model)
	case PlainMessage:
		return e.dispatch(ctx, userID, ev.Text)
	case RemoveCredential:
		return e.removeCredential(ctx, userID, ev.Provider)
	case SetCredential:
		return e.setCredential(ctx, userID, ev.Provider)
	case Wipe:
		return e.wipe(ctx, userID)
	case ClearHistory:
		e.history.Clear(userID)
		e.audit(ctx, userID, "history_clear", nil)
		return []Response{HistoryCleared{}}, nil
	case ShowConfig:
		return e.showConfig(userID), nil
	default:
		return e.notReady(userID), nil
	}
}

func (e *Engine) chooseProvider(ctx context.Context, userID int64, p providers.ID) ([]Response, error) {
	desc, ok := registry.Get(p)
	if !ok {
		return []Response{ErrorNotice{Kind: UnknownFailure, Provider: p}}, nil
	}
	st := e.store.State(userID)
	if st.Stage != StageSelectingProvider {
		return e.notReady(userID), nil
	}
	if e.resolver.Usability(userID, p) == UsabilityNeedsSetup {
		e.store.SetState(userID, AwaitingCredential(p))
		return []Response{RequestCredential{Provider: desc}}, nil
	}
	e.store.SetState(userID, SelectingModel(p))
	return []Response{ShowModelMenu{Provider: desc, Models: desc.Models}}, nil
}

func (e *Engine) submitCredential(ctx context.Context, userID int64, secret string) ([]Response, error) {
	st := e.store.State(userID)
	if st.Stage != StageAwaitingCredential {
		return e.notReady(userID), nil
	}
	desc, ok := registry.Get(st.Provider)
	if !ok {
		e.store.SetState(userID, SelectingProvider())
		return []Response{e.providerMenu(userID)}, nil
	}
	if strings.TrimSpace(secret) == "" {
		// Empty input is a defined retry, not an error.
		return []Response{RequestCredential{Provider: desc}}, nil
	}

	sealed, err := e.keyring.SealString(secret)
	if err != nil {
		e.log.Error().Err(err).Int64("user_id", userID).Msg("seal credential")
		return []Response{PurgeOriginatingMessage{}, ErrorNotice{Kind: UnknownFailure, Provider: st.Provider}}, nil
	}
	rec := CredentialRecord{
		Provider:  st.Provider,
		Secret:    sealed,
		CreatedAt: time.Now().UTC(),
	}
	if st.Resume != nil && st.Resume.Provider == st.Provider {
		// A token replacement keeps the model the restored Ready state
		// dispatches with, so reports stay truthful.
		rec.Model = st.Resume.Model
	}
	e.store.SetCredential(userID, rec)
	e.audit(ctx, userID, "token_set", map[string]any{"provider": string(st.Provider)})

	out := []Response{PurgeOriginatingMessage{}, CredentialSaved{Provider: desc}}
	if st.Resume != nil {
		ref := *st.Resume
		e.store.SetState(userID, Ready(ref.Provider, ref.Model))
		return out, nil
	}
	e.store.SetState(userID, SelectingModel(st.Provider))
	return append(out, ShowModelMenu{Provider: desc, Models: desc.Models}), nil
}

func (e *Engine) chooseModel(ctx context.Context, userID int64, model string) ([]Response, error) {
	st := e.store.State(userID)
	if st.Stage != StageSelectingModel {
		return e.notReady(userID), nil
	}
	desc, ok := registry.Get(st.Provider)
	if !ok {
		e.store.SetState(userID, SelectingProvider())
		return []Response{e.providerMenu(userID)}, nil
	}
	if !desc.HasModel(model) {
		return []Response{ShowModelMenu{Provider: desc, Models: desc.Models}}, nil
	}
	e.store.SetCredentialModel(userID, st.Provider, model)
	e.store.SetPreferred(userID, st.Provider)
	e.store.SetState(userID, Ready(st.Provider, model))
	e.audit(ctx, userID, "model_select", map[string]any{
		"provider": string(st.Provider),
		"model":    model,
	})
	return []Response{SetupComplete{Provider: desc, Model: model}}, nil
}

func (e *Engine) dispatch(ctx context.Context, userID int64, prompt string) ([]Response, error) {
	st := e.store.State(userID)
	if st.Stage == StageAwaitingCredential {
		// Free text while a credential is expected is the credential.
		return e.submitCredential(ctx, userID, prompt)
	}
	if !st.IsReady() {
		return e.notReady(userID), nil
	}

	cred, err := e.resolver.Resolve(userID, st.Provider)
	if err != nil {
		if err == ErrUnavailable {
			// Credential vanished mid-session; restart provider selection.
			e.store.SetState(userID, SelectingProvider())
			return []Response{
				ErrorNotice{Kind: NoCredential, Provider: st.Provider},
				e.providerMenu(userID),
			}, nil
		}
		e.log.Error().Err(err).Int64("user_id", userID).Str("provider", string(st.Provider)).Msg("resolve credential")
		return []Response{ErrorNotice{Kind: UnknownFailure, Provider: st.Provider}}, nil
	}

	turns := e.history.Snapshot(userID)
	req := providers.ChatRequest{
		Model:       st.Model,
		APIKey:      cred.Secret,
		Prompt:      prompt,
		History:     toProviderMessages(turns),
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	}

	callCtx, cancel := context.WithTimeout(ctx, e.providerTimeout)
	defer cancel()
	if e.metrics != nil {
		e.metrics.DispatchesTotal.Inc()
	}
	resp, err := e.invoker.Invoke(callCtx, st.Provider, req)
	if err != nil {
		kind := classifyProviderError(err)
		if e.metrics != nil {
			e.metrics.ProviderFailures.WithLabelValues(string(kind)).Inc()
		}
		e.log.Warn().
			Err(err).
			Int64("user_id", userID).
			Str("provider", string(st.Provider)).
			Str("kind", string(kind)).
			Msg("provider call failed")
		return []Response{ErrorNotice{Kind: kind, Provider: st.Provider}}, nil
	}

	now := time.Now().UTC()
	e.history.Append(userID, Turn{Role: providers.RoleUser, Text: prompt, At: now})
	e.history.Append(userID, Turn{Role: providers.RoleAssistant, Text: resp.Text, At: now})
	return []Response{ChatReply{Text: resp.Text, Provider: st.Provider, Model: st.Model}}, nil
}

func (e *Engine) removeCredential(ctx context.Context, userID int64, p providers.ID) ([]Response, error) {
	desc, _ := registry.Get(p)
	removed := e.store.RemoveCredential(userID, p)
	out := []Response{CredentialRemoved{Provider: desc, Removed: removed}}
	if !removed {
		return out, nil
	}
	e.audit(ctx, userID, "token_remove", map[string]any{"provider": string(p)})

	profile := e.store.Profile(userID)
	if profile.Preferred == p && e.resolver.Usability(userID, p) == UsabilityNeedsSetup {
		e.store.SetState(userID, SelectingProvider())
		out = append(out, e.providerMenu(userID))
	}
	return out, nil
}

func (e *Engine) setCredential(ctx context.Context, userID int64, p providers.ID) ([]Response, error) {
	desc, ok := registry.Get(p)
	if !ok {
		return []Response{ErrorNotice{Kind: UnknownFailure, Provider: p}}, nil
	}
	st := e.store.State(userID)
	var resume *ReadyRef
	if st.IsReady() {
		resume = &ReadyRef{Provider: st.Provider, Model: st.Model}
	}
	e.store.SetState(userID, AwaitingCredential(p).withResume(resume))
	return []Response{RequestCredential{Provider: desc}}, nil
}

func (e *Engine) wipe(ctx context.Context, userID int64) ([]Response, error) {
	e.store.Wipe(userID)
	e.history.Clear(userID)
	if e.auditor != nil {
		if err := e.auditor.PurgeUser(ctx, userID); err != nil {
			e.log.Error().Err(err).Int64("user_id", userID).Msg("purge audit log")
		}
	}
	e.audit(ctx, userID, "wipe", nil)
	return []Response{DataWiped{}}, nil
}

func (e *Engine) showConfig(userID int64) []Response {
	profile := e.store.Profile(userID)
	report := ConfigReport{
		Preferred:  profile.Preferred,
		HistoryLen: e.history.Len(userID),
	}
	for _, desc := range registry.All() {
		rec, ok := profile.Credentials[desc.ID]
		if !ok {
			continue
		}
		model := rec.Model
		if model == "" {
			model = desc.DefaultModel
		}
		report.Configured = append(report.Configured, ConfiguredProvider{
			Provider:  desc,
			Model:     model,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		})
	}
	return []Response{report}
}

// notReady recovers locally from an event the current stage cannot accept by
// re-showing whatever the user should be looking at.
func (e *Engine) notReady(userID int64) []Response {
	st := e.store.State(userID)
	out := []Response{ErrorNotice{Kind: NotReady, Provider: st.Provider}}
	switch st.Stage {
	case StageAwaitingCredential:
		if desc, ok := registry.Get(st.Provider); ok {
			return append(out, RequestCredential{Provider: desc})
		}
	case StageSelectingModel:
		if desc, ok := registry.Get(st.Provider); ok {
			return append(out, ShowModelMenu{Provider: desc, Models: desc.Models})
		}
	case StageReady:
		return out
	case StageIdle:
		e.store.SetState(userID, SelectingProvider())
	}
	return append(out, e.providerMenu(userID))
}

func (e *Engine) providerMenu(userID int64) ShowProviderMenu {
	all := registry.All()
	entries := make([]ProviderEntry, 0, len(all))
	for _, desc := range all {
		entries = append(entries, ProviderEntry{
			Descriptor: desc,
			Usability:  e.resolver.Usability(userID, desc.ID),
		})
	}
	return ShowProviderMenu{Entries: entries}
}

func (e *Engine) audit(ctx context.Context, userID int64, action string, meta map[string]any) {
	if e.auditor == nil {
		return
	}
	if err := e.auditor.Record(ctx, userID, action, meta); err != nil {
		e.log.Error().Err(err).Int64("user_id", userID).Str("action", action).Msg("audit record")
	}
}

func toProviderMessages(turns []Turn) []providers.Message {
	if len(turns) == 0 {
		return nil
	}
	out := make([]providers.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, providers.Message{Role: t.Role, Content: t.Text})
	}
	return out
}
