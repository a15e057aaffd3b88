package connect

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager bundles the persistence repositories behind one
// handle so callers wire a single dependency instead of two.
type RepositoryManager struct {
	db    *bun.DB
	conns *ConnectionRepository
	users *UserRepository
}

func NewRepositoryManager(db *bun.DB) *RepositoryManager {
	return &RepositoryManager{
		db:    db,
		conns: NewConnectionRepository(db),
		users: NewUserRepository(db),
	}
}

func (m *RepositoryManager) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database handle")
	}
	if m.conns == nil {
		return errors.New("repository connections should be initialized")
	}
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}
	return nil
}

func (m *RepositoryManager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f inside a database transaction.
func (m *RepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *RepositoryManager) Connections() *ConnectionRepository {
	return m.conns
}

func (m *RepositoryManager) Users() *UserRepository {
	return m.users
}
