package api

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// CascadeStore keeps finished cascade runs in memory.
type CascadeStore struct {
	mu       sync.Mutex
	cascades map[string]CascadeResponse
}

func NewCascadeStore() *CascadeStore {
	return &CascadeStore{
		cascades: make(map[string]CascadeResponse),
	}
}

func (s *CascadeStore) Save(resp CascadeResponse) {
	s.mu.Lock()
	s.cascades[resp.ID] = resp
	s.mu.Unlock()
}

func (s *CascadeStore) Get(id string) (CascadeResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.cascades[id]
	return resp, ok
}

func (s *CascadeStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cascades[id]; !ok {
		return false
	}
	delete(s.cascades, id)
	return true
}

// List returns every stored run, oldest first.
func (s *CascadeStore) List() []CascadeResponse {
	s.mu.Lock()
	out := make([]CascadeResponse, 0, len(s.cascades))
	for _, resp := range s.cascades {
		out = append(out, resp)
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b CascadeResponse) int {
		return cmp.Or(cmp.Compare(a.CreatedAt, b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out
}

func newCascadeID() string {
	return "cascade_" + uuid.NewString()
}
