package identity

import (
	"context"
	"sync"
)

// StaticSource perfiles en memoria para modo dev y tests.
type StaticSource struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	err      error
}

// NewStaticSource crea la fuente con los perfiles dados (indexados por ID).
func NewStaticSource(profiles ...*Profile) *StaticSource {
	s := &StaticSource{profiles: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	return s
}

// Put agrega o reemplaza un perfil.
func (s *StaticSource) Put(p *Profile) {
	s.mu.Lock()
	s.profiles[p.ID] = p
	s.mu.Unlock()
}

// FailWith hace que GetProfile retorne err (nil restaura el comportamiento normal).
func (s *StaticSource) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *StaticSource) GetProfile(ctx context.Context, externalID string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[externalID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}
