package handlers

import (
	"log"
	"sync"
	"time"

	"cluster-tour-router/internal/models"
	"cluster-tour-router/internal/tour"
)

// DefaultSessionLimit is the number of solved tours kept in memory
const DefaultSessionLimit = 20

// TourSession is one completed solve
type TourSession struct {
	ID        string
	Options   tour.PlanOptions
	Result    *models.TourResult
	CreatedAt time.Time
}

// TourSessionStore keeps the most recent solves in memory, keyed by run ID.
// Results are copied on the way in and out so callers never share state.
type TourSessionStore struct {
	sessions map[string]*TourSession
	order    []string
	limit    int
	mu       sync.RWMutex
}

// NewTourSessionStore creates a store that keeps at most limit sessions
func NewTourSessionStore(limit int) *TourSessionStore {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	return &TourSessionStore{
		sessions: make(map[string]*TourSession),
		limit:    limit,
	}
}

func (s *TourSessionStore) Create(result *models.TourResult, opts tour.PlanOptions) *TourSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &TourSession{
		ID:        result.RunID,
		Options:   opts,
		Result:    deepCopyResult(result),
		CreatedAt: time.Now(),
	}

	if _, exists := s.sessions[session.ID]; !exists {
		s.order = append(s.order, session.ID)
	}
	s.sessions[session.ID] = session

	for len(s.order) > s.limit {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.sessions, evicted)
		log.Printf("[SESSION] Evicted tour session: id=%s", evicted)
	}

	log.Printf("[SESSION] Created tour session: id=%s stops=%d force=%q", session.ID, len(result.RouteIndices), opts.ForceLink)
	return copySession(session)
}

// Get returns a copy of the session, or nil
func (s *TourSessionStore) Get(id string) *TourSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.sessions[id])
}

// Latest returns a copy of the most recent session, or nil
func (s *TourSessionStore) Latest() *TourSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil
	}
	return copySession(s.sessions[s.order[len(s.order)-1]])
}

// List returns the stored run IDs, oldest first
func (s *TourSessionStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

func (s *TourSessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	log.Printf("[SESSION] Deleted tour session: id=%s", id)
}

func copySession(session *TourSession) *TourSession {
	if session == nil {
		return nil
	}
	out := *session
	out.Result = deepCopyResult(session.Result)
	return &out
}

func deepCopyResult(r *models.TourResult) *models.TourResult {
	if r == nil {
		return nil
	}
	out := *r
	out.RouteNames = append([]string(nil), r.RouteNames...)
	out.RouteIndices = append([]int(nil), r.RouteIndices...)

	out.Locations = make([]*models.Coordinates, len(r.Locations))
	for i, c := range r.Locations {
		out.Locations[i] = copyCoordinates(c)
	}

	out.Segments = make([]models.Segment, len(r.Segments))
	for i, seg := range r.Segments {
		out.Segments[i] = seg
		out.Segments[i].Steps = append([]models.Step(nil), seg.Steps...)
	}
	return &out
}

func copyCoordinates(c *models.Coordinates) *models.Coordinates {
	if c == nil {
		return nil
	}
	copy := *c
	return &copy
}
