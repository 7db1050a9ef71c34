package client

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNotAuthenticated is returned by CredentialStore.Token when no access
// credential is held.
var ErrNotAuthenticated = errors.New("not authenticated")

// Credentials is the client's view of a session.
type Credentials struct {
	Access  string `json:"accessToken,omitempty"`
	Refresh string `json:"refreshToken,omitempty"`
}

// Token converts the credentials for use with golang.org/x/oauth2.
func (c Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.Access,
		TokenType:    "Bearer",
		RefreshToken: c.Refresh,
	}
}

// CredentialStore holds the current session and keeps a durable mirror in
// step with it. The mirror is written before memory changes, so a failed
// write leaves the previous session in place.
type CredentialStore struct {
	mu      sync.Mutex
	creds   Credentials
	mirror  Mirror
	cleared bool // no rehydration until the next Set
}

var _ oauth2.TokenSource = (*CredentialStore)(nil)

// NewCredentialStore returns a store backed by mirror. A nil mirror keeps
// credentials in memory only.
func NewCredentialStore(mirror Mirror) *CredentialStore {
	if mirror == nil {
		mirror = NewMemoryMirror()
	}
	return &CredentialStore{mirror: mirror}
}

// Set replaces both credentials.
func (s *CredentialStore) Set(access, refresh string) error {
	next := Credentials{Access: access, Refresh: refresh}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mirror.Save(next); err != nil {
		return err
	}
	s.creds = next
	s.cleared = false
	return nil
}

// Clear forgets the session in memory and in the mirror. Memory is cleared
// even when the mirror fails, and a stale mirror is not read back until the
// next Set.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	s.cleared = true
	return s.mirror.Clear()
}

// Get returns the current credentials, rehydrating from the mirror first
// when no access credential is held in memory.
func (s *CredentialStore) Get() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds.Access == "" && !s.cleared {
		if loaded, err := s.mirror.Load(); err == nil && loaded.Access != "" {
			s.creds = loaded
		}
	}
	return s.creds
}

func (s *CredentialStore) IsAuthenticated() bool {
	return s.Get().Access != ""
}

// Token implements oauth2.TokenSource.
func (s *CredentialStore) Token() (*oauth2.Token, error) {
	creds := s.Get()
	if creds.Access == "" {
		return nil, ErrNotAuthenticated
	}
	return creds.Token(), nil
}
