package gatekeeper

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// DraftRecord is the bun model for the persisted signup draft slot.
type DraftRecord struct {
	bun.BaseModel `bun:"table:signup_drafts,alias:sdr"`

	Slot      string    `bun:"slot,pk"`
	Payload   []byte    `bun:"payload,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// DraftsRepository is the bun-backed DraftStore. The draft survives the
// process exiting during an external checkout redirect, which the in-memory
// store cannot do.
type DraftsRepository struct {
	db   *bun.DB
	slot string
}

var _ DraftStore = (*DraftsRepository)(nil)

// NewDraftsRepository creates the store on top of the shared bun DB, using
// the default slot key.
func NewDraftsRepository(db *bun.DB) *DraftsRepository {
	return &DraftsRepository{db: db, slot: DraftSlotKey}
}

// Save overwrites the slot with the serialized draft.
func (r *DraftsRepository) Save(ctx context.Context, draft *SignupDraft) error {
	if draft == nil {
		return ErrDraftInvalid
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize signup draft")
	}

	record := &DraftRecord{
		Slot:      r.slot,
		Payload:   payload,
		UpdatedAt: time.Now(),
	}

	if _, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (slot) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist signup draft")
	}

	return nil
}

// Load returns the stored draft, or ErrDraftNotFound when the slot is empty.
func (r *DraftsRepository) Load(ctx context.Context) (*SignupDraft, error) {
	record := &DraftRecord{}
	if err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.slot = ?", r.slot).
		Scan(ctx); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load signup draft")
	}

	draft := &SignupDraft{}
	if err := json.Unmarshal(record.Payload, draft); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode signup draft")
	}

	return draft, nil
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (r *DraftsRepository) Clear(ctx context.Context) error {
	if _, err := r.db.NewDelete().
		Model((*DraftRecord)(nil)).
		Where("slot = ?", r.slot).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear signup draft")
	}
	return nil
}
