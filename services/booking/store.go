package booking

import (
	"context"
	"sync"
	"time"

	"luxride/models"

	"go.uber.org/zap"
)

// SessionRepository is the durable mirror of the live session map. Writes
// to it are best-effort; the in-memory store stays the source of truth for
// the live conversation.
type SessionRepository interface {
	Persist(ctx context.Context, session *models.BookingSession) error
	LoadActiveSessions(ctx context.Context) ([]models.BookingSession, error)
}

// SessionStore holds every live booking session, keyed by booking id and
// indexed by customer so at most one pending session exists per customer.
// Every mutation is followed (not blocked) by an asynchronous durable write;
// writes for one booking are serialized so an older in-flight snapshot can
// never land after a newer one. A failed write is retried on the next
// mutation.
type SessionStore struct {
	mu         sync.Mutex
	byID       map[string]*models.BookingSession
	byCustomer map[string]string // customerKey -> pending bookingId

	repo    SessionRepository
	pending map[string]*models.BookingSession // latest snapshot awaiting a durable write
	writing map[string]bool                   // booking ids with an active writer
	failed  map[string]*models.BookingSession // last snapshot whose write failed
	logger  *zap.Logger
}

func NewSessionStore(repo SessionRepository, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		byID:       make(map[string]*models.BookingSession),
		byCustomer: make(map[string]string),
		repo:       repo,
		pending:    make(map[string]*models.BookingSession),
		writing:    make(map[string]bool),
		failed:     make(map[string]*models.BookingSession),
		logger:     logger,
	}
}

// LoadActive warms the store from the durable mirror on startup so an
// in-flight conversation survives a restart.
func (st *SessionStore) LoadActive(ctx context.Context) error {
	if st.repo == nil {
		return nil
	}
	sessions, err := st.repo.LoadActiveSessions(ctx)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range sessions {
		s := sessions[i]
		st.byID[s.BookingID] = s.Clone()
		if s.Status == models.BookingStatusPending {
			st.byCustomer[s.CustomerKey] = s.BookingID
		}
	}
	return nil
}

// Get returns a copy of the session, never the live record.
func (st *SessionStore) Get(bookingID string) (*models.BookingSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byID[bookingID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// GetActiveByCustomer returns the customer's pending session, if any.
func (st *SessionStore) GetActiveByCustomer(customerKey string) (*models.BookingSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	id, ok := st.byCustomer[customerKey]
	if !ok {
		return nil, false
	}
	s, ok := st.byID[id]
	if !ok || s.Status != models.BookingStatusPending {
		delete(st.byCustomer, customerKey)
		return nil, false
	}
	return s.Clone(), true
}

// Put inserts or replaces a session, enforcing the one-pending-session-per-
// customer invariant before touching either map.
func (st *SessionStore) Put(session *models.BookingSession) error {
	st.mu.Lock()
	if session.Status == models.BookingStatusPending {
		if existing, ok := st.byCustomer[session.CustomerKey]; ok && existing != session.BookingID {
			st.mu.Unlock()
			return NewAlreadyActiveError(existing)
		}
	}
	clone := session.Clone()
	st.byID[session.BookingID] = clone
	st.reindexLocked(clone)
	st.mu.Unlock()

	st.persistAsync(session.Clone())
	return nil
}

// Update re-reads the live session under the lock and applies fn to it, so
// a mutation never works from a snapshot that predates an I/O suspension.
// Returns a copy of the updated session.
func (st *SessionStore) Update(bookingID string, fn func(*models.BookingSession) error) (*models.BookingSession, error) {
	st.mu.Lock()
	s, ok := st.byID[bookingID]
	if !ok {
		st.mu.Unlock()
		return nil, NewNotFoundError(bookingID)
	}
	if err := fn(s); err != nil {
		st.mu.Unlock()
		return nil, err
	}
	s.UpdatedAt = time.Now()
	st.reindexLocked(s)
	out := s.Clone()
	st.mu.Unlock()

	st.persistAsync(out.Clone())
	return out, nil
}

// Remove drops the session from the live maps. The durable mirror keeps
// whatever state was last persisted.
func (st *SessionStore) Remove(bookingID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byID[bookingID]
	if !ok {
		return
	}
	delete(st.byID, bookingID)
	if st.byCustomer[s.CustomerKey] == bookingID {
		delete(st.byCustomer, s.CustomerKey)
	}
}

// DropTerminalByCustomer discards confirmed or cancelled sessions left over
// for a customer, so a fresh booking intent starts clean.
func (st *SessionStore) DropTerminalByCustomer(customerKey string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.byID {
		if s.CustomerKey == customerKey && s.Status != models.BookingStatusPending {
			delete(st.byID, id)
		}
	}
}

// Exists reports whether a booking id is already taken. Used for the
// collision check at id generation.
func (st *SessionStore) Exists(bookingID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.byID[bookingID]
	return ok
}

// Pending returns copies of every pending session, for the ops dashboard.
func (st *SessionStore) Pending() []*models.BookingSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*models.BookingSession, 0, len(st.byCustomer))
	for _, id := range st.byCustomer {
		if s, ok := st.byID[id]; ok {
			out = append(out, s.Clone())
		}
	}
	return out
}

// SweepStale removes sessions that have been confirmed for longer than
// threshold and returns how many were dropped.
func (st *SessionStore) SweepStale(threshold time.Duration) int {
	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.byID {
		if s.Status == models.BookingStatusConfirmed && s.ConfirmedAt != nil && now.Sub(*s.ConfirmedAt) > threshold {
			delete(st.byID, id)
			if st.byCustomer[s.CustomerKey] == id {
				delete(st.byCustomer, s.CustomerKey)
			}
			removed++
		}
	}
	return removed
}

// reindexLocked keeps the customer index in step with the session's status.
func (st *SessionStore) reindexLocked(s *models.BookingSession) {
	if s.Status == models.BookingStatusPending {
		st.byCustomer[s.CustomerKey] = s.BookingID
	} else if st.byCustomer[s.CustomerKey] == s.BookingID {
		delete(st.byCustomer, s.CustomerKey)
	}
}

// persistAsync queues the session for a durable write without blocking the
// caller. At most one writer runs per booking id and it always writes the
// newest queued snapshot, so writes cannot reorder and an interleaved older
// state can never overwrite a newer one. Failures are logged and retried on
// the next mutation; they never roll back in-memory state.
func (st *SessionStore) persistAsync(session *models.BookingSession) {
	if st.repo == nil {
		return
	}
	st.mu.Lock()
	// Give earlier failures another attempt, unless a newer snapshot for
	// that booking is already queued.
	for id, s := range st.failed {
		if _, queued := st.pending[id]; !queued {
			st.pending[id] = s
		}
		delete(st.failed, id)
	}
	st.pending[session.BookingID] = session

	var starts []string
	for id := range st.pending {
		if !st.writing[id] {
			st.writing[id] = true
			starts = append(starts, id)
		}
	}
	st.mu.Unlock()

	for _, id := range starts {
		go st.writeLoop(id)
	}
}

// writeLoop drains queued snapshots for one booking id, newest state wins.
// On failure the snapshot is parked for the next mutation to re-queue.
func (st *SessionStore) writeLoop(bookingID string) {
	for {
		st.mu.Lock()
		snapshot, ok := st.pending[bookingID]
		if !ok {
			delete(st.writing, bookingID)
			st.mu.Unlock()
			return
		}
		delete(st.pending, bookingID)
		st.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := st.repo.Persist(ctx, snapshot)
		cancel()
		if err == nil {
			continue
		}
		st.logger.Warn("durable session write failed, will retry on next mutation",
			zap.String("bookingId", bookingID), zap.Error(err))

		st.mu.Lock()
		if _, queued := st.pending[bookingID]; !queued {
			st.failed[bookingID] = snapshot
			delete(st.writing, bookingID)
			st.mu.Unlock()
			return
		}
		st.mu.Unlock()
	}
}
