package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/updateme/engine/internal/core/domain/subscriber"
	"github.com/updateme/engine/internal/core/ports"
	tmocks "github.com/updateme/engine/test/mocks"
)

func TestCachingSubscriberRepository_GetByEmailCachesHits(t *testing.T) {
	sub := &subscriber.Subscriber{ID: uuid.New(), Email: "Ana@Example.com", Language: subscriber.LanguageEN}
	lookups := 0
	inner := &tmocks.SubscriberRepositoryMock{GetByEmailFn: func(ctx context.Context, email string) (*subscriber.Subscriber, error) {
		lookups++
		return sub, nil
	}}
	hot := tmocks.NewMemoryCache()
	repo := NewCachingSubscriberRepository(inner, hot, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := repo.GetByEmail(ctx, "ana@example.com")
		require.NoError(t, err)
		require.Equal(t, sub.ID, got.ID)
	}
	require.Equal(t, 1, lookups)
	require.Equal(t, 5*time.Minute, hot.TTLs[subscriberIDKey(sub.ID)])
	require.Equal(t, 5*time.Minute, hot.TTLs["subscriber:email:ana@example.com"])
}

func TestCachingSubscriberRepository_NotFoundIsNotCached(t *testing.T) {
	lookups := 0
	inner := &tmocks.SubscriberRepositoryMock{GetByEmailFn: func(ctx context.Context, email string) (*subscriber.Subscriber, error) {
		lookups++
		return nil, ports.ErrSubscriberNotFound
	}}
	repo := NewCachingSubscriberRepository(inner, tmocks.NewMemoryCache(), time.Minute)

	for i := 0; i < 2; i++ {
		_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
		require.ErrorIs(t, err, ports.ErrSubscriberNotFound)
	}
	require.Equal(t, 2, lookups)
}

func TestCachingSubscriberRepository_MarkEmailSentInvalidates(t *testing.T) {
	sub := &subscriber.Subscriber{ID: uuid.New(), Email: "bo@example.com"}
	var marked time.Time
	inner := &tmocks.SubscriberRepositoryMock{
		GetByIDFn: func(ctx context.Context, id uuid.UUID) (*subscriber.Subscriber, error) { return sub, nil },
		MarkEmailSentFn: func(ctx context.Context, id uuid.UUID, at time.Time) error {
			marked = at
			return nil
		},
	}
	hot := tmocks.NewMemoryCache()
	repo := NewCachingSubscriberRepository(inner, hot, time.Minute)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	_, ok, _ := hot.Get(ctx, subscriberEmailKey(sub.Email))
	require.True(t, ok)

	at := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkEmailSent(ctx, sub.ID, at))
	require.Equal(t, at, marked)

	_, ok, _ = hot.Get(ctx, subscriberIDKey(sub.ID))
	require.False(t, ok)
	_, ok, _ = hot.Get(ctx, subscriberEmailKey(sub.Email))
	require.False(t, ok)
}
