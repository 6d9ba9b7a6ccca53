package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harperbeck/authgate"
)

// MemoryStore is an in-process PrincipalStore for tests and examples.
// The single mutex gives every operation, including ConsumeToken, the
// per-record atomicity the interface requires.
type MemoryStore struct {
	mu       sync.Mutex
	byID     map[string]*authgate.Principal
	byIdent  map[string]string
	now      func() time.Time
	failWith error
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		byID:    make(map[string]*authgate.Principal),
		byIdent: make(map[string]string),
		now:     now,
	}
}

// FailWith makes every subsequent call return err, simulating a backend
// outage. Pass nil to heal.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*authgate.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	p, ok := s.byID[id]
	if !ok {
		return nil, authgate.ErrPrincipalNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) FindByIdentity(_ context.Context, identity string) (*authgate.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	id, ok := s.byIdent[authgate.NormalizeIdentity(identity)]
	if !ok {
		return nil, authgate.ErrPrincipalNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *MemoryStore) FindByToken(_ context.Context, kind authgate.TokenKind, value string) (*authgate.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	p := s.lookupByToken(kind, value)
	if p == nil {
		return nil, authgate.ErrTokenNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) Insert(_ context.Context, p *authgate.Principal) error {
	if p == nil || p.ID == "" || p.Identity == "" {
		return errors.New("insert requires id and identity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	ident := authgate.NormalizeIdentity(p.Identity)
	if _, taken := s.byIdent[ident]; taken {
		return authgate.ErrDuplicateIdentity
	}

	cp := clone(p)
	cp.Identity = ident
	s.byID[cp.ID] = cp
	s.byIdent[ident] = cp.ID
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch authgate.PrincipalPatch) (*authgate.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	p, ok := s.byID[id]
	if !ok {
		return nil, authgate.ErrPrincipalNotFound
	}
	applyPatch(p, patch, s.now())
	return clone(p), nil
}

func (s *MemoryStore) ConsumeToken(_ context.Context, kind authgate.TokenKind, value string, patch authgate.PrincipalPatch) (*authgate.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}

	p := s.lookupByToken(kind, value)
	if p == nil {
		return nil, authgate.ErrTokenNotFound
	}

	if kind == authgate.TokenReset {
		patch.ClearResetToken = true
		patch.ResetToken = nil
	} else {
		patch.ClearVerificationToken = true
		patch.VerificationToken = nil
	}
	applyPatch(p, patch, s.now())
	return clone(p), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	p, ok := s.byID[id]
	if !ok {
		return authgate.ErrPrincipalNotFound
	}
	delete(s.byIdent, p.Identity)
	delete(s.byID, id)
	return nil
}

// lookupByToken scans for a live token match. Caller holds the lock.
func (s *MemoryStore) lookupByToken(kind authgate.TokenKind, value string) *authgate.Principal {
	if value == "" {
		return nil
	}
	now := s.now()
	for _, p := range s.byID {
		tok := tokenOf(p, kind)
		if tok != nil && tok.Value == value && tok.Live(now) {
			return p
		}
	}
	return nil
}

func clone(p *authgate.Principal) *authgate.Principal {
	if p == nil {
		return nil
	}
	out := *p
	if p.VerificationToken != nil {
		t := *p.VerificationToken
		out.VerificationToken = &t
	}
	if p.ResetToken != nil {
		t := *p.ResetToken
		out.ResetToken = &t
	}
	if p.LastAuthenticatedAt != nil {
		t := *p.LastAuthenticatedAt
		out.LastAuthenticatedAt = &t
	}
	if p.Metadata != nil {
		out.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
