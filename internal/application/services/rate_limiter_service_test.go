package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	impl "github.com/updateme/engine/internal/application/services"
	tmocks "github.com/updateme/engine/test/mocks"
)

func counterRepo() (*tmocks.RateLimitRepositoryMock, map[string]int) {
	counts := map[string]int{}
	return &tmocks.RateLimitRepositoryMock{IncrementWindowFn: func(ctx context.Context, subject string, window time.Duration, prefix string, ttl time.Duration) (int, time.Time, error) {
		counts[subject]++
		return counts[subject], time.Unix(0, 0), nil
	}}, counts
}

func TestAllow_UsesProviderLimit(t *testing.T) {
	repo, _ := counterRepo()
	svc := impl.NewRateLimiterService(repo, &impl.RateLimiterConfig{
		DefaultCallsPerMinute:  5,
		ProviderCallsPerMinute: map[string]int{"groq": 2, "openai": 0},
	}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, _, err := svc.Allow(ctx, "groq")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, remaining, reset, err := svc.Allow(ctx, "groq")
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, remaining)
	require.Equal(t, time.Unix(0, 0).Add(time.Minute), reset)

	// zero override falls back to the default
	for i := 0; i < 5; i++ {
		ok, _, _, _ = svc.Allow(ctx, "openai")
		require.True(t, ok)
	}
	ok, _, _, _ = svc.Allow(ctx, "openai")
	require.False(t, ok)
}

func TestAllow_BurstMultiplier(t *testing.T) {
	repo, _ := counterRepo()
	svc := impl.NewRateLimiterService(repo, &impl.RateLimiterConfig{DefaultCallsPerMinute: 2, BurstMultiplier: 1.5}, nil)

	ok, remaining, _, err := svc.Allow(context.Background(), "tavily")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, remaining)
}

func TestAllow_FailsOpen(t *testing.T) {
	repo := &tmocks.RateLimitRepositoryMock{IncrementWindowFn: func(ctx context.Context, subject string, window time.Duration, prefix string, ttl time.Duration) (int, time.Time, error) {
		return 0, time.Now(), errors.New("redis down")
	}}
	svc := impl.NewRateLimiterService(repo, nil, nil)

	ok, _, _, err := svc.Allow(context.Background(), "groq")
	require.Error(t, err)
	require.True(t, ok)
}
