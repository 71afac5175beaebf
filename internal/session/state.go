package session

import "relaybot/internal/providers"

type Stage string

const (
	StageIdle               Stage = "idle"
	StageSelectingProvider  Stage = "selecting_provider"
	StageAwaitingCredential Stage = "awaiting_credential"
	StageSelectingModel     Stage = "selecting_model"
	StageReady              Stage = "ready"
)

// State is one user's onboarding position. Provider is meaningful from
// AwaitingCredential onward, Model only in Ready. Resume is set when the
// awaiting-credential stage was entered through a credential update while the
// user was already Ready; it names the Ready state to restore afterward.
type State struct {
	Stage    Stage
	Provider providers.ID
	Model    string
	Resume   *ReadyRef
}

type ReadyRef struct {
	Provider providers.ID
	Model    string
}

func Idle() State {
	return State{Stage: StageIdle}
}

func SelectingProvider() State {
	return State{Stage: StageSelectingProvider}
}

func AwaitingCredential(p providers.ID) State {
	return State{Stage: StageAwaitingCredential, Provider: p}
}

func SelectingModel(p providers.ID) State {
	return State{Stage: StageSelectingModel, Provider: p}
}

func Ready(p providers.ID, model string) State {
	return State{Stage: StageReady, Provider: p, Model: model}
}

func (s State) IsReady() bool {
	return s.Stage == StageReady
}

func (s State) withResume(ref *ReadyRef) State {
	s.Resume = ref
	return s
}
