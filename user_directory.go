package connect

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRepository implements UserDirectory using Bun.
type UserRepository struct {
	db *bun.DB
}

// NewUserRepository creates a new repository.
func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID implements UserDirectory.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := r.db.NewSelect().
		Model(&user).
		Where("usr.id = ?", id).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) || err == sql.ErrNoRows {
			return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}
	return &user, nil
}

// FindByEmail implements UserDirectory.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.NewSelect().
		Model(&user).
		Where("usr.email = ?", email).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) || err == sql.ErrNoRows {
			return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}
	return &user, nil
}

// UpdateProfile implements UserDirectory, writing only the fields the
// connection flows reconcile.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *User) error {
	if user == nil || user.ID == uuid.Nil {
		return goerrors.New("user record requires an id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	now := time.Now()
	user.UpdatedAt = &now

	_, err := r.db.NewUpdate().
		Model(user).
		Column("first_name", "last_name", "email", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user profile")
	}
	return nil
}

// IsNotFound reports whether err is the directory/repository not-found
// condition.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if repository.IsRecordNotFound(err) || err == sql.ErrNoRows {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryNotFound
	}
	return false
}
