package gatekeeper

import (
	"context"
	"sync"
)

// DraftSlotKey is the single well-known slot a pending signup draft lives
// in. There is at most one draft at a time; a new attempt overwrites it.
const DraftSlotKey = "pending_admin_signup"

// MemoryDraftStore is an in-process DraftStore. It survives within one
// process but not across restarts; use the bun-backed store for the real
// redirect boundary. Useful as a test double and for embedded scenarios.
type MemoryDraftStore struct {
	mu    sync.Mutex
	draft *SignupDraft
}

// NewMemoryDraftStore returns an empty in-memory draft store.
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{}
}

// Save overwrites the slot with a copy of the draft.
func (s *MemoryDraftStore) Save(_ context.Context, draft *SignupDraft) error {
	if draft == nil {
		return ErrDraftInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *draft
	s.draft = &copied
	return nil
}

// Load returns a copy of the stored draft, or ErrDraftNotFound when the
// slot is empty.
func (s *MemoryDraftStore) Load(_ context.Context) (*SignupDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil {
		return nil, ErrDraftNotFound
	}

	copied := *s.draft
	return &copied, nil
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (s *MemoryDraftStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
	return nil
}

var _ DraftStore = (*MemoryDraftStore)(nil)
