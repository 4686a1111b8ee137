package session

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/catalog"
)

// State names the step a user's session currently waits on.
type State int

const (
	StateIdle State = iota
	StateInputtingParams
	StateConfirmingGeneration
	StateSelectingAmount
	StateWaitingPaymentScreenshot
	StateAdminTestOCR
)

// Session is the per-user in-progress state of either the generation form
// or the top-up flow. At most one exists per user; a new flow entry
// overwrites the prior one.
type Session struct {
	State  State
	Schema catalog.Schema
	Params map[string]any

	// WaitingFor names the param the next free-text message answers.
	WaitingFor string
	// CollectingImages is set while the image sub-flow accepts photos.
	CollectingImages bool
	Images           []string
	imagesDone       bool

	// Top-up flow.
	TopUpAmount     decimal.Decimal
	AwaitAmountText bool

	// AdminUserMode lets an admin browse at user prices.
	AdminUserMode bool
}

// Saved is the immutable snapshot used to re-seed a fresh form for
// "generate again". Collected values are never restored.
type Saved struct {
	ModelID string
}

type entry struct {
	mu      sync.Mutex
	session Session
	saved   *Saved
}

// Store holds sessions keyed by user id with per-user locking: mutations
// for one user are serialized, distinct users proceed concurrently.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

func NewStore() *Store {
	return &Store{entries: make(map[int64]*entry)}
}

func (s *Store) entryFor(userID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry{}
		s.entries[userID] = e
	}
	return e
}

// Do runs fn with exclusive access to the user's session.
func (s *Store) Do(userID int64, fn func(sess *Session)) {
	e := s.entryFor(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.session)
}

// Snapshot returns a copy of the user's session.
func (s *Store) Snapshot(userID int64) Session {
	var out Session
	s.Do(userID, func(sess *Session) {
		out = *sess
		out.Params = copyParams(sess.Params)
		out.Images = append([]string(nil), sess.Images...)
	})
	return out
}

// Clear resets the session to idle, preserving the admin view mode.
func (s *Store) Clear(userID int64) {
	s.Do(userID, func(sess *Session) {
		adminMode := sess.AdminUserMode
		*sess = Session{AdminUserMode: adminMode}
	})
}

// SaveGeneration records the model id for "generate again".
func (s *Store) SaveGeneration(userID int64, modelID string) {
	e := s.entryFor(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saved = &Saved{ModelID: modelID}
}

// SavedGeneration returns the last snapshot, if any.
func (s *Store) SavedGeneration(userID int64) (Saved, bool) {
	e := s.entryFor(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.saved == nil {
		return Saved{}, false
	}
	return *e.saved, true
}

func copyParams(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
