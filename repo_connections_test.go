package connect

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared&mode=memory")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = db.NewCreateTable().Model((*SocialConnection)(nil)).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewCreateTable().Model((*User)(nil)).Exec(ctx)
	require.NoError(t, err)

	return db
}

func TestConnectionID_Deterministic(t *testing.T) {
	userID := uuid.New()
	a := ConnectionID(userID, ProviderFacebook)
	b := ConnectionID(userID, ProviderFacebook)
	c := ConnectionID(userID, ProviderTikTok)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, uuid.Nil, a)
}

func TestConnectionRepository_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewConnectionRepository(newTestDB(t))

	userID := uuid.New()
	record := &SocialConnection{UserID: userID, Provider: ProviderFacebook}
	record.SetMetadata(FacebookMetadata{AccessToken: "fb-token", AccountID: "1001"})

	saved, err := repo.Upsert(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, ConnectionID(userID, ProviderFacebook), saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	found, err := repo.FindActive(ctx, userID, ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)

	tok, ok := AccessTokenFrom(found.Metadata)
	require.True(t, ok)
	assert.Equal(t, "fb-token", tok)
}

func TestConnectionRepository_UpsertReplacesMetadata(t *testing.T) {
	ctx := context.Background()
	repo := NewConnectionRepository(newTestDB(t))

	userID := uuid.New()

	first := &SocialConnection{UserID: userID, Provider: ProviderTikTok}
	first.SetMetadata(TikTokMetadata{AccessToken: "token-1", RefreshToken: "refresh-1", OpenID: "open-abc"})
	_, err := repo.Upsert(ctx, first)
	require.NoError(t, err)

	second := &SocialConnection{UserID: userID, Provider: ProviderTikTok}
	second.SetMetadata(TikTokMetadata{AccessToken: "token-2", RefreshToken: "refresh-2", OpenID: "open-abc"})
	saved, err := repo.Upsert(ctx, second)
	require.NoError(t, err)

	// same row, fresher credentials
	assert.Equal(t, ConnectionID(userID, ProviderTikTok), saved.ID)
	tok, _ := AccessTokenFrom(saved.Metadata)
	assert.Equal(t, "token-2", tok)

	all, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConnectionRepository_UpsertValidation(t *testing.T) {
	ctx := context.Background()
	repo := NewConnectionRepository(newTestDB(t))

	_, err := repo.Upsert(ctx, nil)
	assert.Error(t, err)

	_, err = repo.Upsert(ctx, &SocialConnection{Provider: ProviderFacebook})
	assert.Error(t, err)

	_, err = repo.Upsert(ctx, &SocialConnection{UserID: uuid.New(), Provider: "myspace"})
	assert.Error(t, err)
}

func TestConnectionRepository_ListByUser(t *testing.T) {
	ctx := context.Background()
	repo := NewConnectionRepository(newTestDB(t))

	userID := uuid.New()
	for _, provider := range []Provider{ProviderFacebook, ProviderTikTok} {
		record := &SocialConnection{UserID: userID, Provider: provider}
		record.Metadata = map[string]any{"access_token": "tok-" + provider}
		_, err := repo.Upsert(ctx, record)
		require.NoError(t, err)
	}

	other := &SocialConnection{UserID: uuid.New(), Provider: ProviderThreads}
	other.Metadata = map[string]any{"access_token": "tok-other"}
	_, err := repo.Upsert(ctx, other)
	require.NoError(t, err)

	all, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ProviderFacebook, all[0].Provider)
	assert.Equal(t, ProviderTikTok, all[1].Provider)
}

func TestConnectionRepository_DeleteAndRevive(t *testing.T) {
	ctx := context.Background()
	repo := NewConnectionRepository(newTestDB(t))

	userID := uuid.New()
	record := &SocialConnection{UserID: userID, Provider: ProviderThreads}
	record.Metadata = map[string]any{"access_token": "tok-1"}
	saved, err := repo.Upsert(ctx, record)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByUserAndProvider(ctx, userID, ProviderThreads))

	_, err = repo.FindActive(ctx, userID, ProviderThreads)
	assert.True(t, IsNotFound(err))

	// reconnecting revives the same soft-deleted row
	again := &SocialConnection{UserID: userID, Provider: ProviderThreads}
	again.Metadata = map[string]any{"access_token": "tok-2"}
	revived, err := repo.Upsert(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, revived.ID)
	assert.Nil(t, revived.DeletedAt)

	found, err := repo.FindActive(ctx, userID, ProviderThreads)
	require.NoError(t, err)
	tok, _ := AccessTokenFrom(found.Metadata)
	assert.Equal(t, "tok-2", tok)
}

func TestConnectionRepository_FindActiveNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewConnectionRepository(newTestDB(t))

	_, err := repo.FindActive(ctx, uuid.New(), ProviderFacebook)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)

	userID := uuid.New()
	_, err := db.NewInsert().Model(&User{
		ID:        userID,
		FirstName: "Old",
		LastName:  "Name",
		Email:     "old@example.com",
	}).Exec(ctx)
	require.NoError(t, err)

	user, err := repo.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Old Name", user.FullName())

	user.FirstName, user.LastName = "Jane", "Smith"
	user.Email = "jane@example.com"
	require.NoError(t, repo.UpdateProfile(ctx, user))

	byEmail, err := repo.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, byEmail.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, IsNotFound(err))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, IsNotFound(err))
}
