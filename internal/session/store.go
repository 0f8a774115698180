package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/artifacts"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

// Snapshot is an immutable view of the store. Session is nil when no job is
// mirrored and must not be modified by receivers.
type Snapshot struct {
	Session *types.ProcessingSession `json:"session"`
	Version uint64                   `json:"version"`
}

// Store is the single writer of the mirrored session
type Store struct {
	mu      sync.Mutex
	session *types.ProcessingSession
	version uint64

	subs    map[uint64]chan Snapshot
	nextSub uint64

	cache   *artifacts.Cache
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewStore creates an empty store. cache receives page_complete locations.
func NewStore(cache *artifacts.Cache, logger *zap.Logger, metrics *monitoring.Metrics) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		subs:    make(map[uint64]chan Snapshot),
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

// Apply reduces ev into the session and reports whether it changed
func (s *Store) Apply(ev types.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pc, ok := ev.(types.PageCompleteEvent); ok {
		s.registerArtifact(pc)
		s.metrics.RecordApplied(string(ev.Kind()), false)
		return false
	}

	next, changed := Reduce(s.session, ev)
	s.metrics.RecordApplied(string(ev.Kind()), changed)
	if !changed {
		if se, ok := ev.(types.StatusEvent); ok && s.session != nil && !types.CanTransition(s.session.Status, se.Status) {
			s.logger.Warn("Dropping illegal status transition",
				zap.String("file_id", s.session.FileID),
				zap.String("from", string(s.session.Status)),
				zap.String("to", string(se.Status)))
		}
		return false
	}

	s.commit(next)
	return true
}

// registerArtifact must be called with mu held
func (s *Store) registerArtifact(ev types.PageCompleteEvent) {
	if s.cache == nil || s.session == nil || ev.FileID != s.session.FileID {
		return
	}
	if ev.PageNumber < 1 || ev.PageNumber > s.session.TotalPages {
		s.logger.Debug("Ignoring page_complete outside page range",
			zap.String("file_id", ev.FileID),
			zap.Int("page", ev.PageNumber))
		return
	}
	loc := s.cache.Register(ev.FileID, ev.PageNumber)
	s.logger.Debug("Page artifact registered",
		zap.String("file_id", ev.FileID),
		zap.Int("page", ev.PageNumber),
		zap.String("location", loc),
		zap.Bool("in_completed_pages", s.session.HasPage(ev.PageNumber)))
}

// Replace swaps the session wholesale with a copy of next. Server wins, so the
// artifact cache is rebuilt to hold exactly next's completed pages.
func (s *Store) Replace(next *types.ProcessingSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.RecordReplacement()
	s.commit(next.Clone())
	if s.cache == nil {
		return
	}
	if next == nil {
		s.cache.Clear()
		return
	}
	s.cache.Rehydrate(next.FileID, next.CompletedPages)
}

// Reset clears the session
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return
	}
	s.commit(nil)
}

// Current returns a copy of the session, or nil
func (s *Store) Current() *types.ProcessingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// Snapshot returns the current snapshot
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Session: s.session, Version: s.version}
}

// Version returns a counter bumped on every change
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe returns a channel receiving a snapshot after every change, starting
// with the current one. A slow subscriber misses intermediate snapshots but
// always receives the latest. cancel closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- Snapshot{Session: s.session, Version: s.version}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// commit must be called with mu held
func (s *Store) commit(next *types.ProcessingSession) {
	s.session = next
	s.version++

	if next != nil {
		s.metrics.SetCompletedPages(len(next.CompletedPages))
	} else {
		s.metrics.SetCompletedPages(0)
	}

	snap := Snapshot{Session: next, Version: s.version}
	for _, ch := range s.subs {
		publish(ch, snap)
	}
}

// publish delivers snap, evicting the oldest queued snapshot when full
func publish(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
