// Package session tracks analysis conversations. A session owns bound
// datasets and a turn history, expires after idle time, and admits at most
// one running analysis at a time.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"datasage/internal/dataset"
	"datasage/internal/logging"
	"datasage/internal/oracle"
)

var (
	// ErrNotFound covers both unknown and expired sessions; callers cannot
	// tell the two apart.
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned when an analysis is already running in the session.
	ErrBusy = errors.New("session is busy with another analysis")
)

// Session is one conversation. Fields are snapshots; mutate through the
// store so access times stay correct.
type Session struct {
	ID         string
	Model      string
	CreatedAt  time.Time
	LastAccess time.Time
	Bindings   *dataset.Bindings
	Reports    []dataset.LoadReport
	Turns      []oracle.Turn
}

type entry struct {
	mu         sync.Mutex
	id         string
	model      string
	createdAt  time.Time
	lastAccess time.Time
	bindings   *dataset.Bindings
	reports    []dataset.LoadReport
	turns      []oracle.Turn
	busy       bool
}

// Store holds sessions in memory with sliding expiry. Every successful
// access refreshes the idle clock.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
}

// Options configures a store.
type Options struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// NewStore creates a store and starts its expiry janitor. Close releases
// it. A non-positive TTL falls back to one hour.
func NewStore(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	s := &Store{
		entries: make(map[string]*entry),
		ttl:     opts.TTL,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.janitor(opts.SweepInterval)
	return s
}

// Close stops the janitor. The store stays usable but no longer sweeps.
func (s *Store) Close() {
	close(s.stop)
	<-s.done
}

// Create registers a new session for the given model and returns its id.
func (s *Store) Create(model string) string {
	id := uuid.New().String()
	now := s.now()
	e := &entry{id: id, model: model, createdAt: now, lastAccess: now}

	s.mu.Lock()
	s.entries[id] = e
	s.mu.Unlock()

	logging.Session("Create: id=%s model=%s", id, model)
	return id
}

// lookup fetches a live entry and refreshes its access time. Expired
// entries are dropped on contact, unless an analysis holds the busy latch:
// a session must outlive any run still working on its behalf.
func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	if !e.busy && s.now().Sub(e.lastAccess) > s.ttl {
		e.mu.Unlock()
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		logging.SessionDebug("lookup: id=%s expired", id)
		return nil, ErrNotFound
	}
	e.lastAccess = s.now()
	e.mu.Unlock()
	return e, nil
}

// Get returns a snapshot of the session and refreshes its expiry.
func (s *Store) Get(id string) (Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Session{
		ID:         e.id,
		Model:      e.model,
		CreatedAt:  e.createdAt,
		LastAccess: e.lastAccess,
		Bindings:   e.bindings,
		Reports:    append([]dataset.LoadReport(nil), e.reports...),
		Turns:      append([]oracle.Turn(nil), e.turns...),
	}, nil
}

// Touch refreshes the session's expiry without reading it.
func (s *Store) Touch(id string) error {
	_, err := s.lookup(id)
	return err
}

// BindDatasets replaces the session's bound datasets.
func (s *Store) BindDatasets(id string, binds *dataset.Bindings, reports []dataset.LoadReport) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.bindings = binds
	e.reports = append([]dataset.LoadReport(nil), reports...)
	e.mu.Unlock()
	logging.Session("BindDatasets: id=%s datasets=%d", id, binds.Len())
	return nil
}

// AppendTurn records a completed question/answer pair.
func (s *Store) AppendTurn(id string, turn oracle.Turn) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.turns = append(e.turns, turn)
	e.mu.Unlock()
	return nil
}

// SetModel changes the session's generation model.
func (s *Store) SetModel(id, model string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.model = model
	e.mu.Unlock()
	return nil
}

// Acquire takes the session's analysis slot. It fails with ErrBusy while a
// previous acquisition is outstanding. Release must be called exactly once
// per successful Acquire.
func (s *Store) Acquire(id string) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return ErrBusy
	}
	e.busy = true
	return nil
}

// Release frees the analysis slot. Releasing an expired or deleted session
// is a no-op.
func (s *Store) Release(id string) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.busy = false
	e.lastAccess = s.now()
	e.mu.Unlock()
}

// Delete removes a session immediately.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	logging.Session("Delete: id=%s", id)
	return nil
}

// Len reports the number of live sessions, counting expired ones that have
// not been swept yet.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops sessions idle past the TTL. Busy sessions are kept; their
// running analysis refreshes the clock on release.
func (s *Store) sweep() {
	now := s.now()
	var expired []string

	s.mu.RLock()
	for id, e := range s.entries {
		e.mu.Lock()
		if !e.busy && now.Sub(e.lastAccess) > s.ttl {
			expired = append(expired, id)
		}
		e.mu.Unlock()
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return
	}
	s.mu.Lock()
	for _, id := range expired {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	logging.SessionDebug("sweep: removed %d expired sessions", len(expired))
}
