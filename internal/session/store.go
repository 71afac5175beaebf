package session

import (
	"sync"
	"time"

	"relaybot/internal/providers"
)

// CredentialRecord is one user's credential for one provider. Secret holds
// the sealed envelope, never plaintext. Records are replaced whole, never
// mutated in place.
type CredentialRecord struct {
	Provider  providers.ID
	Secret    string
	Model     string
	CreatedAt time.Time
}

type Profile struct {
	UserID      int64
	Credentials map[providers.ID]CredentialRecord
	Preferred   providers.ID
	State       State
}

// Store holds every user profile in memory. Map access is guarded by a short
// store-wide mutex; end-to-end serialization of one user's event is the
// caller's job via Acquire. Nothing survives a restart.
type Store struct {
	mu       sync.Mutex
	profiles map[int64]*Profile
	locks    map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewStore() *Store {
	return &Store{
		profiles: make(map[int64]*Profile),
		locks:    make(map[int64]*userLock),
	}
}

// Acquire blocks until this user's serialization lock is held and returns the
// release func. Locks for different users are independent; lock entries are
// dropped once the last holder releases.
func (s *Store) Acquire(userID int64) (release func()) {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// Profile returns a copy of the user's profile, creating an Idle one first if
// the user has never been seen. Create-on-read is atomic under the store
// mutex, so two concurrent first touches yield one profile.
func (s *Store) Profile(userID int64) Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProfile(s.profile(userID))
}

func (s *Store) profile(userID int64) *Profile {
	p, ok := s.profiles[userID]
	if !ok {
		p = &Profile{
			UserID:      userID,
			Credentials: make(map[providers.ID]CredentialRecord),
			State:       Idle(),
		}
		s.profiles[userID] = p
	}
	return p
}

func copyProfile(p *Profile) Profile {
	out := Profile{
		UserID:    p.UserID,
		Preferred: p.Preferred,
		State:     p.State,
	}
	if p.State.Resume != nil {
		ref := *p.State.Resume
		out.State.Resume = &ref
	}
	out.Credentials = make(map[providers.ID]CredentialRecord, len(p.Credentials))
	for id, rec := range p.Credentials {
		out.Credentials[id] = rec
	}
	return out
}

func (s *Store) State(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile(userID).State
}

func (s *Store) SetState(userID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile(userID).State = st
}

func (s *Store) SetPreferred(userID int64, p providers.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile(userID).Preferred = p
}

func (s *Store) Credential(userID int64, provider providers.ID) (CredentialRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.profile(userID).Credentials[provider]
	return rec, ok
}

// SetCredential replaces the whole record for (user, provider).
func (s *Store) SetCredential(userID int64, rec CredentialRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile(userID).Credentials[rec.Provider] = rec
}

// SetCredentialModel replaces the record with a copy carrying the chosen
// model. No-op when the user has no record for the provider.
func (s *Store) SetCredentialModel(userID int64, provider providers.ID, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profile(userID)
	rec, ok := p.Credentials[provider]
	if !ok {
		return
	}
	rec.Model = model
	p.Credentials[provider] = rec
}

func (s *Store) RemoveCredential(userID int64, provider providers.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profile(userID)
	if _, ok := p.Credentials[provider]; !ok {
		return false
	}
	delete(p.Credentials, provider)
	return true
}

// Wipe removes the entire profile. The next read observes a brand-new user.
func (s *Store) Wipe(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
}
