package gatekeeper

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfilesRepository is the bun-backed ProfileStore. Profile documents are
// keyed by identity id, one row per identity.
type ProfilesRepository struct {
	repo repository.Repository[*Profile]
	db   *bun.DB
}

var _ ProfileStore = (*ProfilesRepository)(nil)

// NewProfilesRepository creates the repository on top of the shared bun DB.
func NewProfilesRepository(db *bun.DB) *ProfilesRepository {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &ProfilesRepository{repo: repo, db: db}
}

// Get fetches the profile for an identity id. Returns an error satisfying
// errors.IsNotFound when no profile exists.
func (r *ProfilesRepository) Get(ctx context.Context, identityID string) (*Profile, error) {
	if _, err := parseIdentityID(identityID); err != nil {
		return nil, err
	}

	record, err := r.repo.GetByID(ctx, identityID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrProfileNotFound.WithMetadata(map[string]any{
				"identity_id": identityID,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to fetch profile")
	}

	return record, nil
}

// GetByEmail resolves a profile by its email identifier.
func (r *ProfilesRepository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	record, err := r.repo.GetByIdentifierTx(ctx, r.db, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrProfileNotFound.WithMetadata(map[string]any{"email": email})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to fetch profile by email")
	}
	return record, nil
}

// Set writes the full profile document for an identity, creating it when
// absent.
func (r *ProfilesRepository) Set(ctx context.Context, identityID string, profile *Profile) error {
	id, err := parseIdentityID(identityID)
	if err != nil {
		return err
	}

	profile.ID = id
	if _, err := r.repo.Upsert(ctx, profile); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write profile")
	}
	return nil
}

// Update applies a partial field update to an existing profile document.
func (r *ProfilesRepository) Update(ctx context.Context, identityID string, fields map[string]any) error {
	id, err := parseIdentityID(identityID)
	if err != nil {
		return err
	}

	if len(fields) == 0 {
		return nil
	}

	q := r.db.NewUpdate().
		Model((*Profile)(nil)).
		Where("?TableAlias.id = ?", id)

	for column, value := range fields {
		q = q.Set("? = ?", bun.Ident(column), value)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrProfileNotFound.WithMetadata(map[string]any{"identity_id": identityID})
	}
	return nil
}

// Delete removes the profile document for an identity.
func (r *ProfilesRepository) Delete(ctx context.Context, identityID string) error {
	id, err := parseIdentityID(identityID)
	if err != nil {
		return err
	}

	if _, err := r.db.NewDelete().
		Model((*Profile)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete profile")
	}
	return nil
}

// ListAll returns every profile, newest first. Used by the administrative
// listing view.
func (r *ProfilesRepository) ListAll(ctx context.Context) ([]*Profile, error) {
	var records []*Profile
	if err := r.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Scan(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list profiles")
	}
	return records, nil
}

func parseIdentityID(identityID string) (uuid.UUID, error) {
	id, err := uuid.Parse(identityID)
	if err != nil {
		return uuid.Nil, ErrInvalidIdentityID.WithMetadata(map[string]any{
			"identity_id": identityID,
		})
	}
	return id, nil
}
