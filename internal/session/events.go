package session

import (
	"relaybot/internal/providers"
	"relaybot/internal/providers/registry"
)

// Event is a semantic inbound event from the transport. The core knows
// nothing about commands, buttons or message formatting.
type Event interface{ isEvent() }

type RestartSetup struct{}

type CancelSetup struct{}

type ChooseProvider struct{ Provider providers.ID }

type SubmitCredential struct{ Secret string }

type ChooseModel struct{ Model string }

type PlainMessage struct{ Text string }

type RemoveCredential struct{ Provider providers.ID }

type SetCredential struct{ Provider providers.ID }

type Wipe struct{}

type ClearHistory struct{}

type ShowConfig struct{}

func (RestartSetup) isEvent()     {}
func (CancelSetup) isEvent()      {}
func (ChooseProvider) isEvent()   {}
func (SubmitCredential) isEvent() {}
func (ChooseModel) isEvent()      {}
func (PlainMessage) isEvent()     {}
func (RemoveCredential) isEvent() {}
func (SetCredential) isEvent()    {}
func (Wipe) isEvent()             {}
func (ClearHistory) isEvent()     {}
func (ShowConfig) isEvent()       {}

// Usability says why a provider can (or cannot) be used right now.
type Usability string

const (
	UsabilityGlobal     Usability = "global"
	UsabilityUserToken  Usability = "user_token"
	UsabilityNeedsSetup Usability = "needs_setup"
)

// Response is a semantic outbound value for the transport to render.
type Response interface{ isResponse() }

type ProviderEntry struct {
	Descriptor registry.Descriptor
	Usability  Usability
}

type ShowProviderMenu struct{ Entries []ProviderEntry }

type ShowModelMenu struct {
	Provider registry.Descriptor
	Models   []string
}

type RequestCredential struct{ Provider registry.Descriptor }

// PurgeOriginatingMessage tells the transport to delete the inbound message
// that carried a secret from durable view.
type PurgeOriginatingMessage struct{}

type CredentialSaved struct{ Provider registry.Descriptor }

type CredentialRemoved struct {
	Provider registry.Descriptor
	Removed  bool
}

type SetupComplete struct {
	Provider registry.Descriptor
	Model    string
}

type ChatReply struct {
	Text     string
	Provider providers.ID
	Model    string
}

type ErrorNotice struct {
	Kind     Kind
	Provider providers.ID
}

type SetupCancelled struct{}

type DataWiped struct{}

type HistoryCleared struct{}

type ConfiguredProvider struct {
	Provider  registry.Descriptor
	Model     string
	CreatedAt string
}

type ConfigReport struct {
	Preferred  providers.ID
	Configured []ConfiguredProvider
	HistoryLen int
}

func (ShowProviderMenu) isResponse()        {}
func (ShowModelMenu) isResponse()           {}
func (RequestCredential) isResponse()       {}
func (PurgeOriginatingMessage) isResponse() {}
func (CredentialSaved) isResponse()         {}
func (CredentialRemoved) isResponse()       {}
func (SetupComplete) isResponse()           {}
func (ChatReply) isResponse()               {}
func (ErrorNotice) isResponse()             {}
func (SetupCancelled) isResponse()          {}
func (DataWiped) isResponse()               {}
func (HistoryCleared) isResponse()          {}
func (ConfigReport) isResponse()            {}
