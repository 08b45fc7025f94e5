package gatekeeper

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Profiles() *ProfilesRepository
	Drafts() *DraftsRepository
}

type mngr struct {
	db       *bun.DB
	profiles *ProfilesRepository
	drafts   *DraftsRepository
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		profiles: NewProfilesRepository(db),
		drafts:   NewDraftsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.profiles == nil {
		return stderrors.New("repository profiles should be initialized")
	}

	if m.drafts == nil {
		return stderrors.New("repository drafts should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Profiles() *ProfilesRepository {
	return m.profiles
}

func (m mngr) Drafts() *DraftsRepository {
	return m.drafts
}
