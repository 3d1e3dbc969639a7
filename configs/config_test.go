package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/updateme/engine/internal/core/domain/search"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, 7, cfg.Cache.DaysToKeep)
	require.Equal(t, 6, cfg.Newsletter.DaysInterval)
	require.Equal(t, 2*time.Minute, cfg.LLM.CandidateTimeout)
	require.Equal(t, 3, cfg.LLM.LookbackDays)
	require.Contains(t, cfg.Database.DSN, "dbname=updateme")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "SQLite")
	t.Setenv("LLM_PROVIDERS", " OpenAI, ,groq ")
	t.Setenv("NEWSLETTER_SEND_DELAY", "250ms")
	t.Setenv("RATE_LIMIT_GROQ_CPM", "12")
	t.Setenv("REDIS_ENABLED", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Cache.Backend)
	require.Equal(t, []string{"openai", "groq"}, cfg.LLM.Providers)
	require.Equal(t, 250*time.Millisecond, cfg.Newsletter.SendDelay)
	require.Equal(t, 12, cfg.RateLimit.ProviderLimits()["groq"])
	require.True(t, cfg.Redis.Enabled, "unparsable values keep the default")
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("cache backend", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "mongo")
		_, err := Load()
		require.ErrorContains(t, err, "CACHE_BACKEND")
	})
	t.Run("timezone", func(t *testing.T) {
		t.Setenv("CACHE_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		require.ErrorContains(t, err, "CACHE_TIMEZONE")
	})
}

func TestLoadSearchDefaults(t *testing.T) {
	none, err := LoadSearchDefaults("")
	require.NoError(t, err)
	require.True(t, none.For(search.BackendTavily).IsZero())

	t.Setenv("NEWS_DEPTH", "advanced")
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tavily:\n  max_results: 9\n  search_depth: ${NEWS_DEPTH}\n  include_domains: [a.com]\nserpapi:\n  safe_search: active\n  unknown_option: 1\n"), 0o600))

	d, err := LoadSearchDefaults(path)
	require.NoError(t, err)
	tv := d.For(search.BackendTavily)
	require.Equal(t, 9, *tv.MaxResults)
	require.Equal(t, "advanced", *tv.SearchDepth)
	require.Equal(t, []string{"a.com"}, tv.IncludeDomains)
	require.Equal(t, "active", *d.For(search.BackendSerpAPI).SafeSearch)

	_, err = LoadSearchDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestShippedSearchDefaultsParse(t *testing.T) {
	d, err := LoadSearchDefaults("search_defaults.yaml")
	require.NoError(t, err)
	require.Equal(t, "news", *d.For(search.BackendTavily).Topic)
	require.Equal(t, "off", *d.For(search.BackendSerpAPI).SafeSearch)
}
