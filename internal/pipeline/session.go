package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fjacquet/fintrack/internal/factory"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/normalizer"
	"fjacquet/fintrack/internal/parsererror"
)

// SessionState tracks a preview from creation to its single outcome.
type SessionState int

const (
	StatePending SessionState = iota
	StateConfirmed
	StateCancelled
)

func (s SessionState) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StateCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// ErrSessionClosed is returned when a confirmed or cancelled preview is
// used again.
var ErrSessionClosed = errors.New("import session already closed")

// Session is an import preview awaiting the user's decision.
type Session struct {
	ID           string                     `json:"id"`
	UserID       string                     `json:"-"`
	FileName     string                     `json:"file_name"`
	Format       factory.ParserType         `json:"format"`
	Transactions []models.ParsedTransaction `json:"transactions"`
	CreatedAt    time.Time                  `json:"created_at"`

	mu       sync.Mutex
	state    SessionState
	importer *Importer
}

// State returns the session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Build converts the preview to transactions. Every date is parsed and
// rendered as YYYY-MM-DD; the first unparseable date fails the whole batch.
func (s *Session) Build() ([]models.Transaction, error) {
	out := make([]models.Transaction, 0, len(s.Transactions))
	for i, p := range s.Transactions {
		date, err := normalizer.ToISODate(p.Date)
		if err != nil {
			return nil, &parsererror.ValidationError{
				Field:  fmt.Sprintf("the date on row %d", i+1),
				Value:  p.Date,
				Reason: "it is not a recognizable date",
			}
		}
		p.Date = date
		p.Description = normalizer.SanitizeDescription(p.Description)

		tx, err := models.NewTransactionBuilder().
			WithUserID(s.UserID).
			FromParsed(p).
			Build()
		if err != nil {
			return nil, &parsererror.ValidationError{
				Field:  fmt.Sprintf("row %d", i+1),
				Reason: err.Error(),
			}
		}
		out = append(out, tx)
	}
	return out, nil
}

// Confirm persists the preview with one bulk insert in source order and
// returns the number of rows stored. A failed confirm leaves the session
// pending so it can be retried.
func (s *Session) Confirm(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePending {
		return 0, ErrSessionClosed
	}
	im := s.importer

	txs, err := s.Build()
	if err == nil {
		err = im.inserter.BulkInsert(ctx, s.UserID, txs)
	}
	if err != nil {
		im.logger.WithError(err).Warn("Import confirm failed",
			logging.F(logging.FieldSession, s.ID),
			logging.F(logging.FieldUserID, s.UserID))
		return 0, im.fail(ctx, s.UserID, err)
	}

	s.state = StateConfirmed
	s.Transactions = nil
	im.forget(s.ID)

	im.notifier.Notify(ctx, Notification{
		UserID:  s.UserID,
		Level:   LevelSuccess,
		Message: fmt.Sprintf("Imported %d transactions", len(txs)),
	})
	im.logger.Info("Import confirmed",
		logging.F(logging.FieldSession, s.ID),
		logging.F(logging.FieldUserID, s.UserID),
		logging.F(logging.FieldCount, len(txs)))
	return len(txs), nil
}

// Cancel discards the preview. Nothing was persisted, so there is nothing
// to undo. Cancelling twice is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePending {
		return
	}
	s.state = StateCancelled
	s.Transactions = nil
	s.importer.forget(s.ID)
	s.importer.logger.Debug("Import cancelled", logging.F(logging.FieldSession, s.ID))
}

func (im *Importer) forget(id string) {
	if im.sessions != nil {
		im.sessions.Remove(id)
	}
}

// Sessions holds pending previews by id for clients that confirm in a
// later request.
type Sessions struct {
	mu  sync.Mutex
	m   map[string]*Session
	ttl time.Duration
}

// NewSessions creates a registry. Previews older than ttl are dropped by
// Sweep.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{m: make(map[string]*Session), ttl: ttl}
}

// Put registers s.
func (r *Sessions) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[s.ID] = s
}

// Get returns the pending session id owned by userID.
func (r *Sessions) Get(userID, id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || s.UserID != userID {
		return nil, false
	}
	return s, true
}

// Remove drops id.
func (r *Sessions) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
}

// Sweep drops sessions created before now minus the ttl and returns how
// many were removed.
func (r *Sessions) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	var stale []*Session
	for id, s := range r.m {
		if now.Sub(s.CreatedAt) > r.ttl {
			stale = append(stale, s)
			delete(r.m, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Cancel()
	}
	return len(stale)
}
