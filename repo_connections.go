package connect

import (
	"context"
	"database/sql"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConnectionRepository implements Connections using Bun. Writes for the
// same (user, provider) pair are serialized in-process so a double
// callback cannot interleave its read-modify-write.
type ConnectionRepository struct {
	db *bun.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewConnectionRepository creates a new repository.
func NewConnectionRepository(db *bun.DB) *ConnectionRepository {
	return &ConnectionRepository{
		db:    db,
		locks: map[string]*sync.Mutex{},
	}
}

// ConnectionID derives the stable connection id for a (user, provider)
// pair, so repeated connects update in place instead of piling up rows.
func ConnectionID(userID uuid.UUID, provider Provider) uuid.UUID {
	if id, err := hashid.NewUUID(userID.String() + ":" + provider); err == nil {
		return id
	}
	return uuid.New()
}

// FindActive implements Connections. Soft-deleted rows are not returned.
func (r *ConnectionRepository) FindActive(ctx context.Context, userID uuid.UUID, provider Provider) (*SocialConnection, error) {
	var record SocialConnection
	err := r.db.NewSelect().
		Model(&record).
		Where("user_id = ? AND provider = ?", userID, provider).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) || err == sql.ErrNoRows {
			return nil, goerrors.New("connection not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load connection")
	}
	return &record, nil
}

// ListByUser implements Connections.
func (r *ConnectionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*SocialConnection, error) {
	var records []*SocialConnection
	err := r.db.NewSelect().
		Model(&records).
		Where("user_id = ?", userID).
		Order("provider ASC").
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return []*SocialConnection{}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list connections")
	}
	if records == nil {
		records = []*SocialConnection{}
	}
	return records, nil
}

// Upsert implements Connections. The row is keyed by the deterministic
// connection id; a previously disconnected (soft-deleted) row is revived.
func (r *ConnectionRepository) Upsert(ctx context.Context, record *SocialConnection) (*SocialConnection, error) {
	if record == nil {
		return nil, goerrors.New("nil connection record", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}
	if record.UserID == uuid.Nil {
		return nil, goerrors.New("connection record requires a user id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}
	if !IsValidProvider(record.Provider) {
		return nil, goerrors.New("unsupported provider: "+record.Provider, goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	key := record.UserID.String() + ":" + record.Provider
	lock := r.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if record.ID == uuid.Nil {
		record.ID = ConnectionID(record.UserID, record.Provider)
	}

	now := time.Now()
	record.UpdatedAt = now
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.DeletedAt = nil

	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("metadata = EXCLUDED.metadata").
		Set("updated_at = EXCLUDED.updated_at").
		Set("deleted_at = NULL").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to upsert connection")
	}

	var saved SocialConnection
	err = r.db.NewSelect().
		Model(&saved).
		Where("id = ?", record.ID).
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reload connection")
	}
	return &saved, nil
}

// DeleteByUserAndProvider implements Connections with a soft delete, so
// reconnecting later revives the same row.
func (r *ConnectionRepository) DeleteByUserAndProvider(ctx context.Context, userID uuid.UUID, provider Provider) error {
	_, err := r.db.NewDelete().
		Model((*SocialConnection)(nil)).
		Where("user_id = ? AND provider = ?", userID, provider).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete connection")
	}
	return nil
}

func (r *ConnectionRepository) lockFor(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}
