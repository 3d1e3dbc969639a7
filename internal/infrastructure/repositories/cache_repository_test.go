package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/infrastructure/db"
	tmocks "github.com/updateme/engine/test/mocks"
)

func newSQLiteRepo(t *testing.T) *CacheRepository {
	t.Helper()
	database, err := db.NewSQLiteDatabase(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewCacheRepository(database, nil)
}

func entry(key, tag string, at time.Time, p cache.Payload) *cache.Entry {
	q := "query for " + key
	return &cache.Entry{
		CacheKey:     key,
		Payload:      p,
		CreatedAt:    at,
		CreatedDate:  at.Format(cache.DateLayout),
		ProviderType: tag,
		Query:        &q,
		Tags:         []string{tag},
		TTLDays:      1,
	}
}

func TestCacheRepository_SQLiteRoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC)

	missing, err := repo.FindByKey(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.Insert(ctx, entry("k1", "groq_content", at, cache.TextPayload("hello"))))
	require.NoError(t, repo.Insert(ctx, entry("k2", "groq_web_search", at, cache.RecordPayload(map[string]any{"content": "c", "success": true}))))

	got, err := repo.FindByKey(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "hello", got.Payload.Text)
	require.True(t, got.CreatedAt.Equal(at))
	require.Equal(t, "2025-04-15", got.CreatedDate)
	require.Equal(t, []string{"groq_content"}, got.Tags)
	require.Equal(t, "query for k1", *got.Query)

	rec, err := repo.FindByKey(ctx, "k2")
	require.NoError(t, err)
	require.Equal(t, cache.PayloadRecord, rec.Payload.Kind)
	require.Equal(t, true, rec.Payload.Record["success"])

	require.Error(t, repo.Insert(ctx, entry("k1", "groq_content", at, cache.TextPayload("dup"))), "cache_key is unique")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestCacheRepository_SQLiteReplace(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Replace(ctx, entry("k", "groq_content", at, cache.TextPayload("v1"))))
	require.NoError(t, repo.Replace(ctx, entry("k", "groq_content", at.Add(time.Hour), cache.TextPayload("v2"))))

	got, err := repo.FindByKey(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v2", got.Payload.Text)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, repo.DeleteByKey(ctx, "k"))
	got, err = repo.FindByKey(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCacheRepository_SQLiteByProviderAndDateAndSweep(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	day := time.Date(2025, 4, 15, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, entry("old", "groq_news", day, cache.TextPayload("a"))))
	require.NoError(t, repo.Insert(ctx, entry("new", "groq_news", day.Add(2*time.Hour), cache.TextPayload("b"))))
	require.NoError(t, repo.Insert(ctx, entry("other", "openai_news", day, cache.TextPayload("c"))))
	require.NoError(t, repo.Insert(ctx, entry("prev", "groq_news", day.AddDate(0, 0, -9), cache.TextPayload("d"))))

	list, err := repo.FindByProviderAndDate(ctx, "groq_news", "2025-04-15")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].CacheKey)
	require.Equal(t, "old", list[1].CacheKey)

	deleted, err := repo.DeleteOlderThan(ctx, day.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

func TestCachingCacheRepository_ExpiresWithDayBucket(t *testing.T) {
	inner := tmocks.NewMemoryCacheRepository()
	hot := tmocks.NewMemoryCache()
	repo := NewCachingCacheRepository(inner, hot, time.UTC)
	now := time.Date(2025, 4, 15, 10, 30, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, entry("today", "groq_content", now, cache.TextPayload("x"))))
	require.Equal(t, 13*time.Hour+30*time.Minute, hot.TTLs[cacheEntryKey("today")])

	yesterday := now.AddDate(0, 0, -1)
	require.NoError(t, repo.Insert(ctx, entry("stale", "groq_content", yesterday, cache.TextPayload("y"))))
	_, cached := hot.TTLs[cacheEntryKey("stale")]
	require.False(t, cached, "entries from a finished day are not copied")
}

func TestCachingCacheRepository_ReadThroughAndDelete(t *testing.T) {
	inner := tmocks.NewMemoryCacheRepository()
	hot := tmocks.NewMemoryCache()
	repo := NewCachingCacheRepository(inner, hot, time.UTC)
	now := time.Now().UTC()
	ctx := context.Background()

	inner.Put(entry("k", "groq_content", now, cache.TextPayload("v")))
	got, err := repo.FindByKey(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got.Payload.Text)
	b, ok, _ := hot.Get(ctx, cacheEntryKey("k"))
	require.True(t, ok)
	require.NotEmpty(t, b)

	// served from the hot copy once the store forgets it
	require.NoError(t, inner.DeleteByKey(ctx, "k"))
	got, err = repo.FindByKey(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, repo.DeleteByKey(ctx, "k"))
	got, err = repo.FindByKey(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got)
}
