package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.Close()) }()

	assert.Empty(t, store.Load(context.Background()), "fresh database is empty")

	require.NoError(t, store.Save(context.Background(), testRecords()))
	assert.Equal(t, testRecords(), store.Load(context.Background()))
}

func TestSQLiteStore_SaveIsFullReplace(t *testing.T) {
	store, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(context.Background(), testRecords()))

	next := domain.Records{"https://www.legislation.gov.uk/uksi/2024/1": {
		FirstSeen: "2024-03-03", LastSeen: "2024-03-03", LastContentFingerprint: "cc",
		LastTitle: "The Immigration (Amendment) Regulations 2024", LastSource: "legislation.gov.uk (New)"}}
	require.NoError(t, store.Save(context.Background(), next))
	assert.Equal(t, next, store.Load(context.Background()))

	require.NoError(t, store.Save(context.Background(), domain.Records{}))
	assert.Empty(t, store.Load(context.Background()))
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	dsn := "file:" + t.TempDir() + "/state.db?mode=rwc&_txlock=immediate"
	store, err := NewSQLiteStore(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), testRecords()))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(context.Background(), dsn)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, testRecords(), reopened.Load(context.Background()))
}

func TestSQLiteStore_LoadAfterCloseIsEmpty(t *testing.T) {
	store, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), testRecords()))
	require.NoError(t, store.Close())

	recs := store.Load(context.Background())
	require.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestIsLockError(t *testing.T) {
	assert.False(t, isLockError(nil))
	assert.False(t, isLockError(errors.New("no such table")))
	assert.True(t, isLockError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, isLockError(errors.New("database table is locked")))
}
